// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"encoding/binary"
	"math"
)

// Decode16 decodes a 2-byte little-endian two's complement sample.
func Decode16(b []byte) int32 {
	return int32(int16(binary.LittleEndian.Uint16(b)))
}

// Decode24 decodes a 3-byte little-endian two's complement sample. Bit 7 of
// the high byte is the sign and is extended into the upper byte.
func Decode24(b []byte) int32 {
	_ = b[2] // bounds check hint to compiler
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	if b[2]&0x80 != 0 {
		v |= 0xff000000
	}
	return int32(v)
}

// Encode16 stores v as a 2-byte little-endian sample. Values outside the
// int16 range wrap.
func Encode16(b []byte, v int32) {
	binary.LittleEndian.PutUint16(b, uint16(int16(v)))
}

// Encode24 stores the low 24 bits of v as a 3-byte little-endian sample.
func Encode24(b []byte, v int32) {
	_ = b[2] // bounds check hint to compiler
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// DecodeSample decodes one sample of the given width (2 or 3 bytes).
func DecodeSample(b []byte, width int) int32 {
	if width == 3 {
		return Decode24(b)
	}
	return Decode16(b)
}

// EncodeSample stores one sample of the given width (2 or 3 bytes).
func EncodeSample(b []byte, width int, v int32) {
	if width == 3 {
		Encode24(b, v)
		return
	}
	Encode16(b, v)
}

// Physical converts a digital value from the data record to a physical value.
func (s *Signal) Physical(raw int32) float64 {
	return (float64(raw) + s.Offset) * s.Sense
}

// Digital converts a physical value to the nearest digital value, clamped to
// the signal's digital range.
func (s *Signal) Digital(physical float64) int32 {
	if s.Sense == 0 {
		return int32(s.DigitalMin)
	}
	d := math.Round(physical/s.Sense - s.Offset)
	lo, hi := float64(s.DigitalMin), float64(s.DigitalMax)
	if lo > hi {
		lo, hi = hi, lo
	}
	return int32(math.Max(lo, math.Min(hi, d)))
}
