// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

// calcTickPerUnit recomputes tickPerUnit from a pulse assumed to be sync.
// Division rounds to nearest; the calibrator has no memory of prior
// estimates, so every sync fully overrides it.
func calcTickPerUnit(ticks uint32) uint32 {
	return (ticks + (syncInterval+offsetInterval)/2) / (syncInterval + offsetInterval)
}

// isSyncPulse reports whether ticks falls within +/-20% of the expected
// sync pulse length for the current tickPerUnit estimate.
func isSyncPulse(ticks, tickPerUnit uint32) bool {
	syncClocks := uint64(syncInterval+offsetInterval) * uint64(tickPerUnit)
	return 100*uint64(ticks) >= 80*syncClocks && 100*uint64(ticks) <= 120*syncClocks
}

// toInterval converts a raw tick count to a 0..15 nibble value using the
// current tickPerUnit estimate, rounding to nearest. The result may fall
// outside [0,15]; callers classify that as a short or long interval error.
func toInterval(ticks, tickPerUnit uint32) int {
	return int((ticks+tickPerUnit/2)/tickPerUnit) - offsetInterval
}

// fastChannelDecode drives calibration, sync acquisition, and nibble
// capture for a single pulse. Returns +1 on a newly validated frame, -1 on
// a framing or CRC error, 0 while still assembling.
func (c *Channel) fastChannelDecode(ticks uint32) int32 {
	c.pulseCounter++

	if c.state == stateCalib {
		return c.decodeCalib(ticks)
	}

	if c.state == stateInit {
		return c.decodeInit(ticks)
	}

	interval := toInterval(ticks, c.tickPerUnit)
	if interval < 0 {
		satInc(&c.stats.ShortIntervalErr)
		c.state = stateInit
		return -1
	}

	switch c.state {
	case stateSync:
		return c.decodeSync(ticks, interval)
	case stateStatus:
		if !c.pausePulseReceived && isSyncPulse(ticks, c.tickPerUnit) {
			satInc(&c.stats.PauseCnt)
			c.tickPerUnit = calcTickPerUnit(ticks)
			return 0
		}
		return c.decodeDataNibble(interval)
	default: // SIG1_D1..SIG2_D3, CRC
		return c.decodeDataNibble(interval)
	}
}

// decodeCalib acquires tickPerUnit without a known sync. The first pulse
// is assumed to be sync; each subsequent pulse is checked against the
// running estimate until a full frame's worth (sync + payload) validates,
// or the calibration budget is exhausted.
func (c *Channel) decodeCalib(ticks uint32) int32 {
	if c.tickPerUnit == 0 || c.statePulseCounter == 0 {
		c.tickPerUnit = calcTickPerUnit(ticks)
		c.statePulseCounter = 1
	} else {
		interval := toInterval(ticks, c.tickPerUnit)
		if interval >= 0 && interval <= maxInterval {
			c.statePulseCounter++
			if c.statePulseCounter == 1+payloadPulses {
				c.pulseCounter = 0
				c.statePulseCounter = 0
				c.state = stateInit
			}
		} else {
			c.statePulseCounter = 1
			c.tickPerUnit = calcTickPerUnit(ticks)
		}
	}

	if c.pulseCounter >= calibrationPulses {
		c.restart()
	}
	return 0
}

// decodeInit hunts for a true sync pulse after calibration or a framing
// error. A single skipped pulse before sync is remembered as a tolerated
// inter-frame pause.
func (c *Channel) decodeInit(ticks uint32) int32 {
	if isSyncPulse(ticks, c.tickPerUnit) {
		c.tickPerUnit = calcTickPerUnit(ticks)
		c.pausePulseReceived = c.statePulseCounter == 1
		c.statePulseCounter = 0
		c.state = stateStatus
		return 0
	}

	c.statePulseCounter++
	if c.statePulseCounter >= 3*framePulses {
		c.restart()
	}
	return 0
}

// decodeSync awaits the next sync pulse at a known frame boundary,
// tolerating at most one non-sync pulse as a pause.
func (c *Channel) decodeSync(ticks uint32, interval int) int32 {
	if isSyncPulse(ticks, c.tickPerUnit) {
		c.tickPerUnit = calcTickPerUnit(ticks)
		c.rxReg = 0
		c.state = stateStatus
		return 0
	}

	if c.pausePulseReceived {
		satInc(&c.stats.SyncErr)
		if interval > syncInterval {
			satInc(&c.stats.LongIntervalErr)
		} else {
			satInc(&c.stats.ShortIntervalErr)
		}
		c.state = stateInit
		return -1
	}

	satInc(&c.stats.PauseCnt)
	c.pausePulseReceived = true
	return 0
}

// decodeDataNibble captures one payload nibble (status, a signal nibble,
// or the CRC nibble) and, on the CRC nibble, closes out the frame.
func (c *Channel) decodeDataNibble(interval int) int32 {
	if interval > maxInterval {
		satInc(&c.stats.LongIntervalErr)
		c.state = stateInit
		return -1
	}

	c.rxReg = (c.rxReg << 4) | uint32(interval)

	if c.state != stateCRC {
		c.state = c.state.next()
		return 0
	}

	satInc(&c.stats.FrameCnt)
	c.pausePulseReceived = false
	c.state = stateSync

	if crcMatchesAny(c.rxReg) {
		c.rxLast = c.rxReg
		c.hasValidFast = true
		return 1
	}

	satInc(&c.stats.CrcErrCnt)
	return -1
}

// restart drops back to CALIB and zeroes runtime state. Mirrors the
// source: the error/frame counters are cleared along with the FSM state,
// but hwOverflowCnt and RestartCnt itself are not.
func (c *Channel) restart() {
	c.state = stateCalib
	c.pulseCounter = 0
	c.statePulseCounter = 0
	c.pausePulseReceived = false
	c.tickPerUnit = 0

	c.sc.reset()

	c.stats.ShortIntervalErr = 0
	c.stats.LongIntervalErr = 0
	c.stats.SyncErr = 0
	c.stats.CrcErrCnt = 0
	c.stats.FrameCnt = 0
	c.stats.PauseCnt = 0
	c.stats.SC12 = 0
	c.stats.SC16 = 0
	c.stats.SCCrcErr = 0
	satInc(&c.stats.RestartCnt)
}
