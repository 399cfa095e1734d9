// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package nihonkohden_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testDevice = "EEG-1100A V01.00"

// waveform describes a synthetic waveform block. Sample n of EEG channel k
// is stored as the offset binary value 0x8000 + 100*k + n, the event channel
// carries n%2.
type waveform struct {
	rate    int
	records int
	codes   []byte
	date    [6]byte // BCD yy mm dd hh mm ss
}

func (w waveform) spr() int {
	return w.rate / 10
}

func (w waveform) bytes() []byte {
	channels := len(w.codes) + 1
	b := make([]byte, 0x27+len(w.codes)*10+w.records*w.spr()*channels*2)
	copy(b[0x14:], w.date[:])
	binary.LittleEndian.PutUint16(b[0x1a:], uint16(w.rate)|0x4000)
	binary.LittleEndian.PutUint32(b[0x1c:], uint32(w.records))
	b[0x26] = byte(len(w.codes))
	for i, code := range w.codes {
		b[0x27+i*10] = code
	}

	data := b[0x27+len(w.codes)*10:]
	for j := 0; j < w.records*w.spr(); j++ {
		n := j % w.spr()
		for k := 0; k < channels; k++ {
			v := uint16(n % 2)
			if k < channels-1 {
				v = uint16(0x8000 + 100*k + n)
			}
			binary.LittleEndian.PutUint16(data[(j*channels+k)*2:], v)
		}
	}
	return b
}

// buildEEG lays out an .eeg file with one control block holding blocks.
func buildEEG(device, patient string, blocks ...waveform) []byte {
	const (
		control = 0x1000
		first   = 0x2000
	)

	var waves [][]byte
	size := first
	for _, w := range blocks {
		wb := w.bytes()
		waves = append(waves, wb)
		size += len(wb)
	}

	b := make([]byte, size)
	copy(b, device)
	copy(b[0x4f:], patient)
	copy(b[0x81:], device)
	b[0x91] = 1
	binary.LittleEndian.PutUint32(b[0x92:], control)
	b[0x17fe] = 0x01

	b[control+17] = byte(len(blocks))
	off := first
	for j, wb := range waves {
		binary.LittleEndian.PutUint32(b[control+18+j*20:], uint32(off))
		copy(b[off:], wb)
		off += len(wb)
	}
	return b
}

// logEvent is a synthetic .log entry.
type logEvent struct {
	text     string
	hhmmss   string
	subevent string
}

// buildLog lays out a .log file with one log block, plus a sub-event block
// when withSubevents is set.
func buildLog(withSubevents bool, events ...logEvent) []byte {
	const (
		logBlock = 0x400
		subBlock = 0x800
	)

	b := make([]byte, 0xc00)
	copy(b, testDevice)
	b[0x91] = 1
	binary.LittleEndian.PutUint32(b[0x92:], logBlock)
	if withSubevents {
		binary.LittleEndian.PutUint32(b[0x92+22*20:], subBlock)
	}

	b[logBlock+0x12] = byte(len(events))
	b[subBlock+0x12] = byte(len(events))
	for i, ev := range events {
		rec := b[logBlock+0x14+i*45:]
		copy(rec, ev.text)
		for j := len(ev.text); j < 20; j++ {
			rec[j] = ' '
		}
		copy(rec[20:], ev.hhmmss)

		copy(b[subBlock+0x14+i*45+24:], ev.subevent)
	}
	return b
}

// buildPatient lays out a .pnt file.
func buildPatient(fields map[int]string) []byte {
	b := make([]byte, 0x700)
	copy(b, testDevice)
	for off, s := range fields {
		copy(b[off:], s)
	}
	return b
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
