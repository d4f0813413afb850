// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capturelink

import "fmt"

// FormatPacket formats a packet into a human-readable string for the decode
// command's diagnostic output.
func FormatPacket(p *Packet) string {
	ts := p.timestamp.Format("15:04:05.000")
	name := FormatMessageType(p.msgType)
	out := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", ts, name, p.msgType, p.length)
	if len(p.payload) > 0 {
		out += FormatPayload(p.msgType, p.payload)
	}
	return out
}

// FormatMessageType returns the human-readable name for a message type.
func FormatMessageType(msgType uint8) string {
	switch msgType {
	case MsgPulseSample:
		return "PULSE_SAMPLE"
	case MsgPulseBatch:
		return "PULSE_BATCH"
	case MsgProbeInfo:
		return "PROBE_INFO"
	case MsgOverflowEvent:
		return "OVERFLOW_EVENT"
	case MsgProbeInfoRequest:
		return "PROBE_INFO_REQUEST"
	case MsgErrorInvalidType:
		return "ERROR_INVALID_TYPE"
	case MsgErrorInvalidCRC:
		return "ERROR_INVALID_CRC"
	case MsgErrorInvalidLength:
		return "ERROR_INVALID_LENGTH"
	case MsgErrorTimeout:
		return "ERROR_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// FormatPayload formats a packet's payload according to its message type,
// falling back to a hex dump for anything it doesn't recognize.
func FormatPayload(msgType uint8, payload []byte) string {
	switch msgType {
	case MsgPulseSample:
		if s, err := DecodePulseSample(payload); err == nil {
			return fmt.Sprintf("  ticks=%d flags=0x%02X\n", s.Ticks, s.Flags)
		}

	case MsgPulseBatch:
		if samples, err := DecodePulseBatch(payload); err == nil {
			out := fmt.Sprintf("  %d samples:\n", len(samples))
			for i, s := range samples {
				out += fmt.Sprintf("    [%d] ticks=%d flags=0x%02X\n", i, s.Ticks, s.Flags)
			}
			return out
		}

	case MsgProbeInfo:
		if info, err := DecodeProbeInfo(payload); err == nil {
			return fmt.Sprintf("  firmware=%d.%d clock=%d Hz channels=%d\n",
				info.FirmwareMajor, info.FirmwareMinor, info.ClockHz, info.ChannelCount)
		}

	case MsgOverflowEvent:
		if dropped, err := DecodeOverflowEvent(payload); err == nil {
			return fmt.Sprintf("  dropped=%d pulses\n", dropped)
		}

	case MsgErrorInvalidCRC:
		if len(payload) >= 4 {
			received := uint16(payload[0]) | uint16(payload[1])<<8
			calculated := uint16(payload[2]) | uint16(payload[3])<<8
			return fmt.Sprintf("  received CRC: 0x%04X, calculated: 0x%04X\n", received, calculated)
		}
	}

	out := "  payload: "
	for i, b := range payload {
		if i > 0 && i%16 == 0 {
			out += "\n           "
		}
		out += fmt.Sprintf("%02X ", b)
	}
	return out + "\n"
}
