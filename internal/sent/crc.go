// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sent

// crcLookup is the Koopman-style nibble table shared by all three CRC-4
// variants below.
var crcLookup = [16]uint8{0, 13, 7, 10, 14, 3, 9, 4, 1, 12, 6, 11, 15, 2, 8, 5}

// nibble returns nibble n (0 = MSN) of a 32-bit frame shifted in MSN-first.
func nibble(frame uint32, n int) uint8 {
	return uint8((frame >> (4 * (7 - n))) & 0xf)
}

// crc4 is the SAE reference variant: XOR-then-lookup over nibbles 0..6
// (status through sig1's LSN).
func crc4(frame uint32) uint8 {
	crc := uint8(crc4Seed)
	for i := 0; i < 7; i++ {
		crc ^= nibble(frame, i)
		crc = crcLookup[crc]
	}
	return crc
}

// crc4GM is the GM throttle-body variant: lookup-then-XOR, skipping the
// status nibble (indices 1..6). The transposition of lookup and XOR is the
// entire difference from crc4.
func crc4GM(frame uint32) uint8 {
	crc := uint8(crc4Seed)
	for i := 1; i < 7; i++ {
		crc = crcLookup[crc]
		crc = (crc ^ nibble(frame, i)) & 0xf
	}
	return crc
}

// crc4GMv2 is the GM GDI fuel-pressure variant: crc4GM plus one extra round
// with a zero input.
func crc4GMv2(frame uint32) uint8 {
	crc := crc4GM(frame)
	return crcLookup[crc]
}

// crcMatchesAny reports whether the frame's trailing CRC nibble matches any
// of the three accepted CRC-4 variants. Evaluated in order and short-
// circuited, since this runs in the pulse-delivery context.
func crcMatchesAny(frame uint32) bool {
	got := nibble(frame, 7)
	return got == crc4(frame) || got == crc4GM(frame) || got == crc4GMv2(frame)
}

// crc6Table is the lookup table for polynomial 0x59 (x^6 + x^4 + x^3 + 1),
// used exclusively by the slow channel's Enhanced Serial Message framing.
var crc6Table = [64]uint8{
	0, 25, 50, 43, 61, 36, 15, 22, 35, 58, 17, 8, 30, 7, 44, 53,
	31, 6, 45, 52, 34, 59, 16, 9, 60, 37, 14, 23, 1, 24, 51, 42,
	62, 39, 12, 21, 3, 26, 49, 40, 29, 4, 47, 54, 32, 57, 18, 11,
	33, 56, 19, 10, 28, 5, 46, 55, 2, 27, 48, 41, 63, 38, 13, 20,
}

// crc6 computes the slow channel's CRC-6 over the four 6-bit groups of the
// interleaved (b3,b2) shift register, plus one extra round with a zero
// input.
func crc6(data uint32) uint8 {
	crc := uint8(crc6Seed)
	for i := 0; i < 4; i++ {
		group := uint8((data >> (24 - 6*(i+1))) & 0x3f)
		crc = group ^ crc6Table[crc]
	}
	return crc6Table[crc]
}
