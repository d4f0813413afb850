// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capturelink

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Packet represents a decoded capture-link frame.
type Packet struct {
	length    uint8
	msgType   uint8
	payload   []byte
	crc       uint16
	timestamp time.Time
}

// NewPacket creates a new packet with the given fields.
func NewPacket(length uint8, msgType uint8, payload []byte, crc uint16) *Packet {
	return &Packet{length: length, msgType: msgType, payload: payload, crc: crc, timestamp: time.Now()}
}

func (p *Packet) Length() uint8        { return p.length }
func (p *Packet) Type() uint8          { return p.msgType }
func (p *Packet) Payload() []byte      { return p.payload }
func (p *Packet) CRC() uint16          { return p.crc }
func (p *Packet) Timestamp() time.Time { return p.timestamp }

// PulseSample is the decoded payload of a MsgPulseSample packet.
type PulseSample struct {
	Ticks uint32
	Flags uint8
}

// DecodePulseSample extracts a PulseSample from a MsgPulseSample packet's
// payload (5 bytes: ticks little-endian uint32, flags byte).
func DecodePulseSample(payload []byte) (PulseSample, error) {
	if len(payload) != 5 {
		return PulseSample{}, fmt.Errorf("capturelink: pulse sample payload length %d, want 5", len(payload))
	}
	return PulseSample{
		Ticks: binary.LittleEndian.Uint32(payload[0:4]),
		Flags: payload[4],
	}, nil
}

// EncodePulseSample builds the payload for a MsgPulseSample packet.
func EncodePulseSample(s PulseSample) []byte {
	buf := make([]byte, 5)
	binary.LittleEndian.PutUint32(buf[0:4], s.Ticks)
	buf[4] = s.Flags
	return buf
}

// DecodePulseBatch extracts a run of PulseSamples from a MsgPulseBatch
// packet's payload (1 count byte followed by count*5 bytes).
func DecodePulseBatch(payload []byte) ([]PulseSample, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("capturelink: pulse batch payload empty")
	}
	count := int(payload[0])
	want := 1 + count*5
	if len(payload) != want {
		return nil, fmt.Errorf("capturelink: pulse batch payload length %d, want %d for count=%d", len(payload), want, count)
	}
	samples := make([]PulseSample, count)
	for i := 0; i < count; i++ {
		off := 1 + i*5
		samples[i] = PulseSample{
			Ticks: binary.LittleEndian.Uint32(payload[off : off+4]),
			Flags: payload[off+4],
		}
	}
	return samples, nil
}

// EncodePulseBatch builds the payload for a MsgPulseBatch packet.
func EncodePulseBatch(samples []PulseSample) ([]byte, error) {
	if len(samples) > 24 {
		return nil, fmt.Errorf("capturelink: pulse batch of %d exceeds 24-sample link limit", len(samples))
	}
	buf := make([]byte, 1+len(samples)*5)
	buf[0] = uint8(len(samples))
	for i, s := range samples {
		off := 1 + i*5
		binary.LittleEndian.PutUint32(buf[off:off+4], s.Ticks)
		buf[off+4] = s.Flags
	}
	return buf, nil
}

// ProbeInfo is the decoded payload of a MsgProbeInfo packet.
type ProbeInfo struct {
	FirmwareMajor uint8
	FirmwareMinor uint8
	ClockHz       uint32
	ChannelCount  uint8
}

// DecodeProbeInfo extracts a ProbeInfo from a MsgProbeInfo packet's payload
// (7 bytes: major, minor, clockHz little-endian uint32, channel count).
func DecodeProbeInfo(payload []byte) (ProbeInfo, error) {
	if len(payload) != 7 {
		return ProbeInfo{}, fmt.Errorf("capturelink: probe info payload length %d, want 7", len(payload))
	}
	return ProbeInfo{
		FirmwareMajor: payload[0],
		FirmwareMinor: payload[1],
		ClockHz:       binary.LittleEndian.Uint32(payload[2:6]),
		ChannelCount:  payload[6],
	}, nil
}

// EncodeProbeInfo builds the payload for a MsgProbeInfo packet.
func EncodeProbeInfo(info ProbeInfo) []byte {
	buf := make([]byte, 7)
	buf[0] = info.FirmwareMajor
	buf[1] = info.FirmwareMinor
	binary.LittleEndian.PutUint32(buf[2:6], info.ClockHz)
	buf[6] = info.ChannelCount
	return buf
}

// DecodeOverflowEvent extracts the dropped-pulse count from a
// MsgOverflowEvent packet's payload (4 bytes, little-endian uint32).
func DecodeOverflowEvent(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("capturelink: overflow event payload length %d, want 4", len(payload))
	}
	return binary.LittleEndian.Uint32(payload), nil
}

// EncodeOverflowEvent builds the payload for a MsgOverflowEvent packet.
func EncodeOverflowEvent(dropped uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, dropped)
	return buf
}
