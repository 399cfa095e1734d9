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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenPSG/edfconv/edf"
	"github.com/OpenPSG/edfconv/nihonkohden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSession(t *testing.T, withCompanions bool) string {
	t.Helper()

	second := testWaveform()
	second.records = 30

	dir := t.TempDir()
	path := writeFile(t, dir, "rec.eeg", buildEEG(testDevice, "Jane Doe", testWaveform(), second))
	if withCompanions {
		writeFile(t, dir, "rec.log", buildLog(false, logEvent{text: "Spike", hhmmss: "000003"}))
		writeFile(t, dir, "rec.pnt", buildPatient(patientFields()))
		writeFile(t, dir, "rec.21E", []byte(electrodeFile))
	}
	return path
}

func TestSession(t *testing.T) {
	path := writeSession(t, true)

	s, err := nihonkohden.Load(path, true, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	require.Len(t, s.Recording.Blocks, 2)
	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "rec_1-2+.edf"), s.OutputPath(s.Recording.Blocks[1]))

	written, err := s.ConvertAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "rec_1-1+.edf"),
		filepath.Join(dir, "rec_1-2+.edf"),
	}, written)

	collect := func(path string) (*edf.Header, *edf.Collector) {
		f, err := os.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = f.Close()
		})

		er, err := edf.Open(f)
		require.NoError(t, err)
		d, err := er.Demux()
		require.NoError(t, err)

		var c edf.Collector
		require.NoError(t, d.Run(&c))
		return er.Header(), &c
	}

	hdr, c := collect(written[0])
	assert.Equal(t, "Fp1", hdr.Signals[0].Label)
	assert.Empty(t, c.Annotations)

	// The event is 3 s into the session, 1 s into the second block.
	hdr, c = collect(written[1])
	assert.Equal(t, 30, hdr.DataRecords)
	require.Len(t, c.Annotations, 1)
	assert.Equal(t, 1.0, c.Annotations[0].Onset)
}

func TestSessionWithoutAnnotations(t *testing.T) {
	path := writeSession(t, false)

	s, err := nihonkohden.Load(path, false, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	assert.Equal(t, filepath.Join(filepath.Dir(path), "rec_1-1.edf"), s.OutputPath(s.Recording.Blocks[0]))

	written, err := s.ConvertAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, written, 2)
}

func TestSessionRejects(t *testing.T) {
	_, err := nihonkohden.Load(filepath.Join(t.TempDir(), "rec.edf"), false, nil)
	require.Error(t, err)

	// Annotations need the .log and .pnt files.
	_, err = nihonkohden.Load(writeSession(t, false), true, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	s, err := nihonkohden.Load(writeSession(t, false), false, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	written, err := s.ConvertAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, written)
}
