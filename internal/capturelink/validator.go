// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capturelink

import "fmt"

// AnomalyType categorizes a packet-level validation failure. These are
// link/transport anomalies only; they never touch internal/sent.Stats,
// which counts protocol errors on the decoded pulse stream itself.
type AnomalyType int

const (
	AnomalyLengthMismatch AnomalyType = iota
	AnomalyTicksOutOfRange
	AnomalyInvalidChannelCount
	AnomalyZeroClock
)

// ValidationError describes one anomaly found in a packet.
type ValidationError struct {
	Type    AnomalyType
	Message string
}

func (v *ValidationError) Error() string { return v.Message }

// Limits bounds what counts as a plausible pulse measurement. SENT's own
// interval range is narrow (roughly 12-1300 units at typical capture
// clocks), but the range is configurable because the capture clock
// frequency varies with the probe's hardware.
type Limits struct {
	MinTicks, MaxTicks uint32
}

// DefaultLimits is permissive: reject only the pathological cases (a
// zero-length pulse or a multi-second one, either of which indicates the
// probe or the link is malfunctioning, not an unusual but valid signal).
var DefaultLimits = Limits{MinTicks: 1, MaxTicks: 10_000_000}

// ValidatePacket checks packet structure and flags anomalies. Returns an
// empty slice if the packet is valid.
func ValidatePacket(p *Packet, limits Limits) []ValidationError {
	switch p.msgType {
	case MsgPulseSample:
		return validatePulseSample(p, limits)
	case MsgPulseBatch:
		return validatePulseBatch(p, limits)
	case MsgProbeInfo:
		return validateProbeInfo(p)
	}
	return nil
}

func validatePulseSample(p *Packet, limits Limits) []ValidationError {
	sample, err := DecodePulseSample(p.payload)
	if err != nil {
		return []ValidationError{{Type: AnomalyLengthMismatch, Message: err.Error()}}
	}
	return checkTicks(sample.Ticks, limits)
}

func validatePulseBatch(p *Packet, limits Limits) []ValidationError {
	samples, err := DecodePulseBatch(p.payload)
	if err != nil {
		return []ValidationError{{Type: AnomalyLengthMismatch, Message: err.Error()}}
	}
	var errs []ValidationError
	for _, s := range samples {
		errs = append(errs, checkTicks(s.Ticks, limits)...)
	}
	return errs
}

func checkTicks(ticks uint32, limits Limits) []ValidationError {
	if ticks < limits.MinTicks || ticks > limits.MaxTicks {
		return []ValidationError{{
			Type:    AnomalyTicksOutOfRange,
			Message: fmt.Sprintf("pulse interval %d ticks outside [%d, %d]", ticks, limits.MinTicks, limits.MaxTicks),
		}}
	}
	return nil
}

func validateProbeInfo(p *Packet) []ValidationError {
	info, err := DecodeProbeInfo(p.payload)
	if err != nil {
		return []ValidationError{{Type: AnomalyLengthMismatch, Message: err.Error()}}
	}
	var errs []ValidationError
	if info.ChannelCount == 0 || info.ChannelCount > 8 {
		errs = append(errs, ValidationError{
			Type:    AnomalyInvalidChannelCount,
			Message: fmt.Sprintf("probe reports %d channels (valid: 1-8)", info.ChannelCount),
		})
	}
	if info.ClockHz == 0 {
		errs = append(errs, ValidationError{Type: AnomalyZeroClock, Message: "probe reports 0 Hz capture clock"})
	}
	return errs
}
