// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capturelink

import "testing"

func TestDecodePulseSample_WrongLength(t *testing.T) {
	if _, err := DecodePulseSample([]byte{1, 2, 3}); err == nil {
		t.Errorf("expected error for short payload")
	}
}

func TestDecodePulseBatch_CountMismatch(t *testing.T) {
	// Declares 3 samples but only carries bytes for 1.
	if _, err := DecodePulseBatch([]byte{3, 0, 0, 0, 0, 0}); err == nil {
		t.Errorf("expected error for count/length mismatch")
	}
}

func TestEncodePulseBatch_TooLarge(t *testing.T) {
	samples := make([]PulseSample, 25)
	if _, err := EncodePulseBatch(samples); err == nil {
		t.Errorf("expected error for batch exceeding the link limit")
	}
}

func TestProbeInfoRoundTrip(t *testing.T) {
	info := ProbeInfo{FirmwareMajor: 1, FirmwareMinor: 4, ClockHz: 24_000_000, ChannelCount: 2}
	payload := EncodeProbeInfo(info)

	got, err := DecodeProbeInfo(payload)
	if err != nil {
		t.Fatalf("DecodeProbeInfo: %v", err)
	}
	if got != info {
		t.Errorf("got %+v, want %+v", got, info)
	}
}

func TestOverflowEventRoundTrip(t *testing.T) {
	payload := EncodeOverflowEvent(7)
	got, err := DecodeOverflowEvent(payload)
	if err != nil {
		t.Fatalf("DecodeOverflowEvent: %v", err)
	}
	if got != 7 {
		t.Errorf("got %d, want 7", got)
	}
}
