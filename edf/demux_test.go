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
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/OpenPSG/edfconv/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// demuxer decodes the header of file and returns a demuxer positioned at
// the first data record.
func demuxer(t *testing.T, file []byte, opts ...edf.Option) (*edf.Header, *edf.Demuxer) {
	t.Helper()

	r := bytes.NewReader(file)
	hdr, err := edf.DecodeHeader(r)
	require.NoError(t, err)

	d, err := edf.NewDemuxer(r, hdr, opts...)
	require.NoError(t, err)

	return hdr, d
}

func TestDemuxerInterleave(t *testing.T) {
	raw := rawHeader{
		records:  "1",
		duration: "1",
		signals: []rawSignal{
			{label: "A", physMin: "-32768", physMax: "32767", digMin: "-32768", digMax: "32767", samples: "4"},
			{label: "B", physMin: "-32768", physMax: "32767", digMin: "-32768", digMax: "32767", samples: "2"},
		},
	}
	var file bytes.Buffer
	file.Write(raw.bytes())
	for _, v := range []int16{10, 11, 12, 13, 20, 21} {
		file.Write(le16(v))
	}

	_, d := demuxer(t, file.Bytes())

	var c edf.Collector
	require.NoError(t, d.Run(&c))

	require.Equal(t, []float64{0, 0.25, 0.5, 0.75}, c.Times)
	require.Len(t, c.Rows, 4)

	assert.InDelta(t, 10, c.Rows[0][0], 1e-9)
	assert.InDelta(t, 20, c.Rows[0][1], 1e-9)
	assert.InDelta(t, 11, c.Rows[1][0], 1e-9)
	assert.True(t, math.IsNaN(c.Rows[1][1]))
	assert.InDelta(t, 12, c.Rows[2][0], 1e-9)
	assert.InDelta(t, 21, c.Rows[2][1], 1e-9)
	assert.InDelta(t, 13, c.Rows[3][0], 1e-9)
	assert.True(t, math.IsNaN(c.Rows[3][1]))

	flat := c.Flatten()
	require.Len(t, flat, 6)
	for i, want := range []float64{10, 20, 11, 12, 21, 13} {
		assert.InDelta(t, want, flat[i], 1e-9)
	}

	assert.Equal(t, io.EOF, d.Next(&c))
}

type countingSink struct {
	present []int
	rows    int
	last    float64
	ordered bool
}

func (s *countingSink) Annotation(edf.Annotation) error { return nil }

func (s *countingSink) Row(r *edf.Row) error {
	if s.present == nil {
		s.present = make([]int, len(r.Present))
		s.ordered = true
	} else if r.Time <= s.last {
		s.ordered = false
	}
	s.last = r.Time
	s.rows++
	for i, ok := range r.Present {
		if ok {
			s.present[i]++
		}
	}
	return nil
}

func TestDemuxerEmitsEverySample(t *testing.T) {
	raw := rawHeader{
		records:  "3",
		duration: "1",
		signals:  []rawSignal{ordinary("A", 3), ordinary("B", 7), ordinary("C", 1)},
	}
	var file bytes.Buffer
	file.Write(raw.bytes())
	file.Write(make([]byte, 3*11*2))

	_, d := demuxer(t, file.Bytes())

	var s countingSink
	require.NoError(t, d.Run(&s))

	assert.Equal(t, []int{9, 21, 3}, s.present)
	// Only t=0 is shared by all three signals in each record.
	assert.Equal(t, 3*(3+7+1-2), s.rows)
	assert.True(t, s.ordered)
}

func TestDemuxerAnnotations(t *testing.T) {
	raw := rawHeader{
		reserved: "EDF+D",
		records:  "2",
		duration: "1",
		signals:  []rawSignal{ordinary("EEG", 2), annotationSignal(20)},
	}
	var file bytes.Buffer
	file.Write(raw.bytes())
	file.Write(le16(0))
	file.Write(le16(0))
	file.Write(tal("+0\x14\x14\x00+0.5\x14Lights off\x14\x00", 40))
	file.Write(le16(0))
	file.Write(le16(0))
	// Discontinuous: the second record starts ten seconds in.
	file.Write(tal("+10\x14\x14\x00+10.5\x152\x14Arousal\x14\x00", 40))

	hdr, d := demuxer(t, file.Bytes())
	assert.False(t, hdr.Continuous())
	assert.Equal(t, []int{0}, d.Columns())

	var c edf.Collector
	require.NoError(t, d.Run(&c))

	assert.Equal(t, []edf.Annotation{
		{Onset: 0.5, Text: "Lights off", Record: 0, Channel: 1},
		{Onset: 10.5, Duration: 2, HasDuration: true, Text: "Arousal", Record: 1, Channel: 1},
	}, c.Annotations)
	assert.Equal(t, []float64{0, 0.5, 10, 10.5}, c.Times)
}

func TestDemuxerRequiresAnnotationSignal(t *testing.T) {
	hdr := &edf.Header{
		Reserved:           "EDF+C",
		DataRecords:        1,
		DataRecordDuration: time.Second,
		SignalCount:        1,
		Signals: []edf.Signal{
			{Label: "A", PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -32768, DigitalMax: 32767, SamplesPerRecord: 2},
		},
	}
	require.NoError(t, hdr.Layout())

	d, err := edf.NewDemuxer(bytes.NewReader(make([]byte, 4)), hdr)
	require.NoError(t, err)

	err = d.Run(&edf.Collector{})
	require.ErrorIs(t, err, edf.ErrMissingAnnotationChannel)
	assert.True(t, edf.IsFormat(err))
}

func TestDemuxerShortRecord(t *testing.T) {
	raw := rawHeader{records: "2", duration: "1", signals: []rawSignal{ordinary("A", 2)}}
	var file bytes.Buffer
	file.Write(raw.bytes())
	file.Write(make([]byte, 6))

	_, d := demuxer(t, file.Bytes())

	var c edf.Collector
	err := d.Run(&c)
	require.Error(t, err)
	assert.True(t, edf.IsIO(err))

	var e *edf.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 1, e.Record)
	assert.Len(t, c.Rows, 2)
}

type failingSink struct{ err error }

func (s failingSink) Annotation(edf.Annotation) error { return s.err }
func (s failingSink) Row(*edf.Row) error              { return s.err }

func TestDemuxerSinkError(t *testing.T) {
	raw := rawHeader{records: "1", duration: "1", signals: []rawSignal{ordinary("A", 2)}}
	var file bytes.Buffer
	file.Write(raw.bytes())
	file.Write(make([]byte, 4))

	diskFull := errors.New("disk full")
	_, d := demuxer(t, file.Bytes())
	err := d.Run(failingSink{err: diskFull})
	require.ErrorIs(t, err, diskFull)
	assert.True(t, edf.IsIO(err))
}

func TestDemuxerBDF(t *testing.T) {
	raw := rawHeader{
		version:  "\xffBIOSEMI",
		records:  "1",
		duration: "1",
		signals: []rawSignal{
			{label: "A1", physMin: "-8388608", physMax: "8388607", digMin: "-8388608", digMax: "8388607", samples: "2"},
		},
	}
	var file bytes.Buffer
	file.Write(raw.bytes())
	file.Write([]byte{0xff, 0xff, 0xff, 0x00, 0x00, 0x80})

	_, d := demuxer(t, file.Bytes())

	var c edf.Collector
	require.NoError(t, d.Run(&c))
	require.Len(t, c.Rows, 2)
	assert.InDelta(t, -1, c.Rows[0][0], 1e-6)
	assert.InDelta(t, -8388608, c.Rows[1][0], 1e-6)
}
