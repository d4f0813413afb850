// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capturelink

import "testing"

func decodeAll(t *testing.T, d *Decoder, wire []byte) *Packet {
	t.Helper()
	var pkt *Packet
	for _, b := range wire {
		p, err := d.DecodeByte(b)
		if err != nil {
			t.Fatalf("DecodeByte(0x%02X): %v", b, err)
		}
		if p != nil {
			pkt = p
		}
	}
	return pkt
}

func TestEncodeDecodeRoundTrip_PulseSample(t *testing.T) {
	sample := PulseSample{Ticks: 168, Flags: 0}
	wire, err := EncodePacket(MsgPulseSample, EncodePulseSample(sample))
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}

	pkt := decodeAll(t, NewDecoder(), wire)
	if pkt == nil {
		t.Fatalf("no packet decoded from %d-byte wire frame", len(wire))
	}
	if pkt.Type() != MsgPulseSample {
		t.Errorf("Type() = 0x%02X, want 0x%02X", pkt.Type(), MsgPulseSample)
	}

	got, err := DecodePulseSample(pkt.Payload())
	if err != nil {
		t.Fatalf("DecodePulseSample: %v", err)
	}
	if got != sample {
		t.Errorf("got %+v, want %+v", got, sample)
	}
}

func TestEncodeDecodeRoundTrip_PulseBatch(t *testing.T) {
	samples := []PulseSample{{Ticks: 100, Flags: 0}, {Ticks: 200, Flags: 1}, {Ticks: 300, Flags: 0}}
	payload, err := EncodePulseBatch(samples)
	if err != nil {
		t.Fatalf("EncodePulseBatch: %v", err)
	}
	wire, err := EncodePacket(MsgPulseBatch, payload)
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}

	pkt := decodeAll(t, NewDecoder(), wire)
	if pkt == nil {
		t.Fatalf("no packet decoded")
	}
	got, err := DecodePulseBatch(pkt.Payload())
	if err != nil {
		t.Fatalf("DecodePulseBatch: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %+v, want %+v", i, got[i], samples[i])
		}
	}
}

func TestDecoder_CorruptedCRCRejected(t *testing.T) {
	wire, _ := EncodePacket(MsgPulseSample, EncodePulseSample(PulseSample{Ticks: 168}))
	wire[len(wire)-2] ^= 0xFF // flip a CRC byte before the trailing END byte

	d := NewDecoder()
	var sawErr bool
	for _, b := range wire {
		if _, err := d.DecodeByte(b); err != nil {
			sawErr = true
		}
	}
	if !sawErr {
		t.Errorf("expected a CRC mismatch error")
	}
}

func TestDecoder_ByteStuffingRoundTrip(t *testing.T) {
	// A payload containing every special byte value exercises in-payload
	// escaping of each of them.
	payload := []byte{StartByte, EndByte, EscByte, 0x00, 0xFF}
	wire, err := EncodePacket(MsgPulseSample, payload)
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}

	pkt := decodeAll(t, NewDecoder(), wire)
	if pkt == nil {
		t.Fatalf("no packet decoded")
	}
	if string(pkt.Payload()) != string(payload) {
		t.Errorf("payload = %v, want %v", pkt.Payload(), payload)
	}
}

func TestDecoder_ResyncsAfterGarbage(t *testing.T) {
	wire, _ := EncodePacket(MsgPulseSample, EncodePulseSample(PulseSample{Ticks: 42}))
	garbage := append([]byte{0x01, 0x02, 0x03}, wire...)

	pkt := decodeAll(t, NewDecoder(), garbage)
	if pkt == nil {
		t.Fatalf("decoder did not resync past leading garbage")
	}
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()
	d.DecodeByte(StartByte)
	d.DecodeByte(0x05)
	d.Reset()

	if d.state != StateIdle {
		t.Errorf("state after Reset = %d, want StateIdle", d.state)
	}
	if len(d.GetRawBytes()) != 0 {
		t.Errorf("GetRawBytes() not empty after Reset")
	}
}
