// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capturelink

import (
	"fmt"
	"time"
)

// Statistics tracks capture-link packet counts and error rates, separate
// from the SENT decoder's own internal/sent.Stats (which counts protocol
// errors on the pulse stream itself, not link framing errors).
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	TotalPackets     uint64
	ValidPackets     uint64
	CRCErrors        uint64
	DecodeErrors     uint64
	MalformedPackets uint64
	AnomalousValues  uint64
	TicksOutOfRange  uint64
	OverflowEvents   uint64

	PacketRate float64
	ErrorRate  float64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{StartTime: now, LastUpdateTime: now}
}

// Update folds one decode attempt's outcome into the running counters.
func (s *Statistics) Update(packet *Packet, decodeErr error, anomalies []ValidationError) {
	s.TotalPackets++

	if decodeErr != nil {
		if len(decodeErr.Error()) >= 17 && decodeErr.Error()[:17] == "capturelink: CRC " {
			s.CRCErrors++
		} else {
			s.DecodeErrors++
		}
		return
	}

	if packet.msgType == MsgOverflowEvent {
		s.OverflowEvents++
	}

	if len(anomalies) > 0 {
		s.MalformedPackets++
		for _, a := range anomalies {
			if a.Type == AnomalyTicksOutOfRange {
				s.TicksOutOfRange++
			}
			s.AnomalousValues++
		}
		return
	}

	s.ValidPackets++
	s.LastUpdateTime = time.Now()
}

// CalculateRates recomputes PacketRate and ErrorRate from elapsed time.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.PacketRate = float64(s.TotalPackets) / elapsed
		errorCount := s.CRCErrors + s.DecodeErrors + s.MalformedPackets
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPct, crcPct, decodePct float64
	if s.TotalPackets > 0 {
		validPct = float64(s.ValidPackets) * 100.0 / float64(s.TotalPackets)
		crcPct = float64(s.CRCErrors) * 100.0 / float64(s.TotalPackets)
		decodePct = float64(s.DecodeErrors) * 100.0 / float64(s.TotalPackets)
	}

	elapsed := time.Since(s.StartTime)
	out := fmt.Sprintf("=== Capture-link statistics (%.0f seconds) ===\n", elapsed.Seconds())
	out += fmt.Sprintf("Total Packets:   %8d\n", s.TotalPackets)
	out += fmt.Sprintf("Valid Packets:   %8d (%.1f%%)\n", s.ValidPackets, validPct)
	if s.CRCErrors > 0 {
		out += fmt.Sprintf("CRC Errors:      %8d (%.1f%%)\n", s.CRCErrors, crcPct)
	}
	if s.DecodeErrors > 0 {
		out += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, decodePct)
	}
	if s.MalformedPackets > 0 {
		out += fmt.Sprintf("Malformed Pkts:  %8d\n", s.MalformedPackets)
		if s.TicksOutOfRange > 0 {
			out += fmt.Sprintf("  Ticks out of range: %5d\n", s.TicksOutOfRange)
		}
	}
	if s.OverflowEvents > 0 {
		out += fmt.Sprintf("Overflow Events: %8d\n", s.OverflowEvents)
	}
	out += fmt.Sprintf("Packet Rate:     %8.1f pkts/sec\n", s.PacketRate)
	out += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	out += "===============================================\n"
	return out
}

// Reset zeroes all counters and restarts the rate clock.
func (s *Statistics) Reset() {
	now := time.Now()
	*s = Statistics{StartTime: now, LastUpdateTime: now}
}
