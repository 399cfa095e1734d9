// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"math"
	"testing"

	"github.com/OpenPSG/edfconv/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode16(t *testing.T) {
	assert.Equal(t, int32(0), edf.Decode16([]byte{0x00, 0x00}))
	assert.Equal(t, int32(-1), edf.Decode16([]byte{0xff, 0xff}))
	assert.Equal(t, int32(math.MinInt16), edf.Decode16([]byte{0x00, 0x80}))
	assert.Equal(t, int32(math.MaxInt16), edf.Decode16([]byte{0xff, 0x7f}))
	assert.Equal(t, int32(0x1234), edf.Decode16([]byte{0x34, 0x12}))
}

func TestDecode24(t *testing.T) {
	assert.Equal(t, int32(0), edf.Decode24([]byte{0x00, 0x00, 0x00}))
	assert.Equal(t, int32(-1), edf.Decode24([]byte{0xff, 0xff, 0xff}))
	assert.Equal(t, int32(-8388608), edf.Decode24([]byte{0x00, 0x00, 0x80}))
	assert.Equal(t, int32(8388607), edf.Decode24([]byte{0xff, 0xff, 0x7f}))
	assert.Equal(t, int32(0x123456), edf.Decode24([]byte{0x56, 0x34, 0x12}))
}

func TestSampleRoundTrip16(t *testing.T) {
	b := make([]byte, 2)
	for v := int32(math.MinInt16); v <= math.MaxInt16; v++ {
		edf.EncodeSample(b, 2, v)
		if got := edf.DecodeSample(b, 2); got != v {
			require.Equal(t, v, got)
		}
	}
}

func TestSampleRoundTrip24(t *testing.T) {
	b := make([]byte, 3)
	values := []int32{-8388608, -8388607, -1, 0, 1, 8388606, 8388607}
	for v := int32(-8388608); v <= 8388607; v += 977 {
		values = append(values, v)
	}

	for _, v := range values {
		edf.EncodeSample(b, 3, v)
		if got := edf.DecodeSample(b, 3); got != v {
			require.Equal(t, v, got)
		}
	}
}

func TestPhysicalDigital(t *testing.T) {
	sig := edf.Signal{
		PhysicalMin:      -3200,
		PhysicalMax:      3199.902,
		DigitalMin:       -32768,
		DigitalMax:       32767,
		SamplesPerRecord: 100,
	}
	require.NoError(t, sig.Calibrate(0.1))

	assert.InDelta(t, 6399.902/65535, sig.Sense, 1e-15)
	assert.InDelta(t, 0.001, sig.TimeStep, 1e-15)
	assert.InDelta(t, -3200.0, sig.Physical(-32768), 1e-6)
	assert.InDelta(t, 3199.902, sig.Physical(32767), 1e-6)

	for _, raw := range []int32{-32768, -1000, 0, 1, 12345, 32767} {
		assert.Equal(t, raw, sig.Digital(sig.Physical(raw)))
	}

	// Out of range values clamp to the digital range.
	assert.Equal(t, int32(32767), sig.Digital(1e9))
	assert.Equal(t, int32(-32768), sig.Digital(-1e9))
}

func TestCalibrateFlatPhysicalRange(t *testing.T) {
	sig := edf.Signal{PhysicalMin: 0, PhysicalMax: 100, DigitalMin: -32768, DigitalMax: 32767, SamplesPerRecord: 1}
	require.NoError(t, sig.Calibrate(1))
	assert.InDelta(t, 32768.0, sig.Offset, 1e-6)

	sig.PhysicalMin, sig.PhysicalMax = 5, 5
	require.NoError(t, sig.Calibrate(1))
	assert.Zero(t, sig.Sense)
	assert.Zero(t, sig.Offset)
	assert.Zero(t, sig.Physical(1234))
}

func TestCalibrateRejectsBadSignals(t *testing.T) {
	sig := edf.Signal{PhysicalMin: -1, PhysicalMax: 1, DigitalMin: 5, DigitalMax: 5, SamplesPerRecord: 1}
	require.ErrorIs(t, sig.Calibrate(1), edf.ErrBadDigitalRange)

	sig = edf.Signal{PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -1, DigitalMax: 1}
	require.ErrorIs(t, sig.Calibrate(1), edf.ErrBadSamplesPerRecord)
}
