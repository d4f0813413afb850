// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

// Stats tracks saturating counters for one Channel's lifetime (or since
// its last restart).
type Stats struct {
	HWOverflowCnt    uint32
	ShortIntervalErr uint32
	LongIntervalErr  uint32
	SyncErr          uint32
	CrcErrCnt        uint32
	FrameCnt         uint32
	PauseCnt         uint32
	RestartCnt       uint32

	// Slow channel.
	SC12     uint32 // 12-bit data, 8-bit message ID (ESM)
	SC16     uint32 // 16-bit data, 4-bit message ID (ESM)
	SCCrcErr uint32
}

// TotalError sums the four fast-channel error counters.
func (s Stats) TotalError() uint32 {
	return satAdd(satAdd(s.ShortIntervalErr, s.LongIntervalErr), satAdd(s.SyncErr, s.CrcErrCnt))
}

// ErrorRate returns the fraction of frame attempts that failed.
func (s Stats) ErrorRate() float64 {
	total := s.TotalError()
	denom := s.FrameCnt + total
	if denom == 0 {
		return 0
	}
	return float64(total) / float64(denom)
}

// satAdd adds two uint32s, clamping at the maximum value instead of
// wrapping.
func satAdd(a, b uint32) uint32 {
	sum := a + b
	if sum < a {
		return ^uint32(0)
	}
	return sum
}

// satInc increments *c by one, saturating at the maximum uint32 value.
func satInc(c *uint32) {
	if *c != ^uint32(0) {
		*c++
	}
}
