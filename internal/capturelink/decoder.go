// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capturelink

import (
	"fmt"
	"time"
)

// Decoder implements the capture-link packet decoder state machine: a
// byte-stuffed, length-prefixed, CRC-16-CCITT-checked frame format.
type Decoder struct {
	state       int
	buffer      []byte
	bufferIndex int
	escapeNext  bool
	packet      *Packet
	rawBuffer   []byte // accumulates raw bytes since the last START byte
}

// NewDecoder creates a new capture-link decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		state:     StateIdle,
		buffer:    make([]byte, MaxPacketSize),
		rawBuffer: make([]byte, 0, MaxPacketSize*2),
	}
}

// Reset returns the decoder to StateIdle, discarding any partial packet.
func (d *Decoder) Reset() {
	d.state = StateIdle
	d.bufferIndex = 0
	d.escapeNext = false
	d.packet = nil
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the raw bytes accumulated since the last START byte.
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed packet, or nil if the packet is incomplete. Returns
// an error if framing or the CRC check fails.
func (d *Decoder) DecodeByte(b byte) (*Packet, error) {
	d.rawBuffer = append(d.rawBuffer, b)

	if b == EscByte && !d.escapeNext {
		d.escapeNext = true
		return nil, nil
	}

	originalB := b
	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	if originalB == StartByte && !d.escapeNext {
		d.Reset()
		d.rawBuffer = append(d.rawBuffer[:0], originalB)
		d.state = StateLength
		return nil, nil
	}

	if originalB == EndByte && !d.escapeNext {
		if d.state == StateCRC2 {
			packet := d.packet
			calculatedCRC := CalculateCRC(d.buffer[:d.bufferIndex])

			if packet.crc != calculatedCRC {
				err := fmt.Errorf("capturelink: CRC mismatch: expected 0x%04X, got 0x%04X", calculatedCRC, packet.crc)
				d.Reset()
				return nil, err
			}

			packet.timestamp = time.Now()
			d.Reset()
			return packet, nil
		}
		d.Reset()
		return nil, fmt.Errorf("capturelink: unexpected END byte in state %d", d.state)
	}

	switch d.state {
	case StateIdle:
		return nil, nil

	case StateLength:
		if b > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("capturelink: invalid length: %d", b)
		}
		if d.bufferIndex >= MaxPacketSize {
			d.Reset()
			return nil, fmt.Errorf("capturelink: buffer overflow at length byte")
		}
		d.packet = &Packet{length: b, payload: make([]byte, 0, b)}
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
		d.state = StateType
		return nil, nil

	case StateType:
		if d.bufferIndex >= MaxPacketSize {
			d.Reset()
			return nil, fmt.Errorf("capturelink: buffer overflow at type byte")
		}
		d.packet.msgType = b
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
		if d.packet.length == 0 {
			d.state = StateCRC1
		} else {
			d.state = StatePayload
		}
		return nil, nil

	case StatePayload:
		if d.bufferIndex >= MaxPacketSize {
			d.Reset()
			return nil, fmt.Errorf("capturelink: buffer overflow: packet exceeds max size")
		}
		d.packet.payload = append(d.packet.payload, b)
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
		if len(d.packet.payload) >= int(d.packet.length) {
			d.state = StateCRC1
		}
		return nil, nil

	case StateCRC1:
		d.packet.crc = uint16(b) << 8
		d.state = StateCRC2
		return nil, nil

	case StateCRC2:
		d.packet.crc |= uint16(b)
		return nil, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("capturelink: invalid state: %d", d.state)
	}
}
