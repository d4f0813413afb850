// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sent decodes a SENT / SAE J2716 pulse stream: the fast-channel
// status + two 12-bit signals + CRC-4 frame, and the slow channel
// multiplexed across the status nibble's low two bits.
package sent

import "fmt"

// Channel holds all decoder state for one physical SENT line. It is
// mutated exclusively by Decode (one pulse at a time) and is not safe for
// concurrent use without an external critical section.
type Channel struct {
	state fsmState

	tickPerUnit        uint32
	pulseCounter       uint32
	statePulseCounter  uint32
	pausePulseReceived bool

	rxReg        uint32
	rxLast       uint32
	hasValidFast bool

	sc slowChannel

	stats Stats
}

// NewChannel returns a Channel in the CALIB state with all counters zero
// and all mailboxes invalid.
func NewChannel() *Channel {
	return &Channel{state: stateCalib}
}

// Decode processes one pulse interval measurement. ticks is the interval
// since the previous falling edge, in capture-clock counts; flags' bit 0
// signals a caller-observed hardware capture overflow.
//
// Returns +1 when a frame has just been validated (and the slow channel
// processed), 0 while still assembling, -1 on a framing or CRC error (the
// slow channel's shift registers and mailbox are cleared).
func (c *Channel) Decode(ticks uint32, flags uint8) int32 {
	if flags&FlagHWOverflow != 0 {
		satInc(&c.stats.HWOverflowCnt)
	}

	ret := c.fastChannelDecode(ticks)
	switch {
	case ret > 0:
		status := uint8((c.rxLast >> 28) & 0xf)
		c.sc.feed(status, &c.stats)
	case ret < 0:
		c.sc.reset()
	}
	return ret
}

// GetMsg returns the most recently validated raw 32-bit frame. It errors
// only if no frame has ever validated since construction; a restart does
// not discard the last validated frame.
func (c *Channel) GetMsg() (uint32, error) {
	if !c.hasValidFast {
		return 0, fmt.Errorf("sent: no data")
	}
	return c.rxLast, nil
}

// GetSignals decomposes the last validated frame into its status nibble
// and two 12-bit signals. sig1 is emitted with its nibble order reversed
// relative to sig0 — preserved verbatim from the source as a device
// quirk, not a protocol requirement.
func (c *Channel) GetSignals() (status uint8, sig0, sig1 uint16, err error) {
	rx, err := c.GetMsg()
	if err != nil {
		return 0, 0, 0, err
	}

	status = uint8((rx >> 28) & 0xf)
	sig0 = uint16((rx >> 16) & 0xfff)

	tmp := uint16((rx >> 4) & 0xfff)
	sig1 = ((tmp >> 8) & 0x00f) | (tmp & 0x0f0) | ((tmp << 8) & 0xf00)

	return status, sig0, sig1, nil
}

// GetSlowChannelValue returns the current value stored for a slow-channel
// id, or an error if no valid entry has that id.
func (c *Channel) GetSlowChannelValue(id uint8) (uint16, error) {
	data, ok := c.sc.value(id)
	if !ok {
		return 0, fmt.Errorf("sent: slow channel id %d not found", id)
	}
	return data, nil
}

// SlowChannelEntry is one populated mailbox slot's current id/value, for
// callers that want to display the whole mailbox rather than look up a
// single id.
type SlowChannelEntry struct {
	ID   uint8
	Data uint16
}

// SlowChannelSnapshot returns every populated slow-channel mailbox entry,
// in slot order.
func (c *Channel) SlowChannelSnapshot() []SlowChannelEntry {
	return c.sc.snapshot()
}

// GetTickTime returns the current tickPerUnit estimate, a diagnostic
// value expressed in capture-clock ticks per protocol unit.
func (c *Channel) GetTickTime() float64 {
	return float64(c.tickPerUnit)
}

// Stats returns a snapshot of the channel's running counters.
func (c *Channel) Stats() Stats {
	return c.stats
}

// Info returns a short human-readable status summary, in the spirit of
// the source's diagnostic dump.
func (c *Channel) Info() string {
	s := c.stats
	msg := "no frame yet"
	if c.hasValidFast {
		msg = fmt.Sprintf("0x%08X", c.rxLast)
	}
	return fmt.Sprintf(
		"state=%v tickPerUnit=%d lastFrame=%s frames=%d errors=%d (rate=%.4f) restarts=%d",
		c.state, c.tickPerUnit, msg, s.FrameCnt, s.TotalError(), s.ErrorRate(), s.RestartCnt,
	)
}

func (s fsmState) String() string {
	switch s {
	case stateCalib:
		return "CALIB"
	case stateInit:
		return "INIT"
	case stateSync:
		return "SYNC"
	case stateStatus:
		return "STATUS"
	case stateSig1D1:
		return "SIG1_D1"
	case stateSig1D2:
		return "SIG1_D2"
	case stateSig1D3:
		return "SIG1_D3"
	case stateSig2D1:
		return "SIG2_D1"
	case stateSig2D2:
		return "SIG2_D2"
	case stateSig2D3:
		return "SIG2_D3"
	case stateCRC:
		return "CRC"
	default:
		return "UNKNOWN"
	}
}
