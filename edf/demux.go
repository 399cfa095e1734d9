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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

// Samples of different signals closer in time than this share a row.
const timeEpsilon = 1e-14

// Row is one time slot of a data record. Values and Present have one entry
// per ordinary signal, in header order; Present is false where the signal
// has no sample at this slot. A Row is reused between calls to Sink.Row.
type Row struct {
	Record  int
	Time    float64 // Seconds since the start of the recording
	Values  []float64
	Present []bool
}

// Sink receives the demultiplexed contents of a file.
type Sink interface {
	Annotation(a Annotation) error
	Row(r *Row) error
}

// Option configures a Demuxer.
type Option func(*Demuxer)

// WithTextCodec sets how annotation text is transcoded.
func WithTextCodec(codec TextCodec) Option {
	return func(d *Demuxer) {
		d.codec = codec
	}
}

// WithLogger sets the logger used for per-record diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Demuxer) {
		d.log = logger
	}
}

// Demuxer iterates the data records of a file and emits annotations and
// time ordered sample rows.
type Demuxer struct {
	r       io.Reader
	hdr     *Header
	codec   TextCodec
	log     *slog.Logger
	tal     *TALParser
	buf     []byte // current data record
	columns []int  // ordinary signal indexes
	written []int  // samples emitted per column in the current record
	row     Row
	record  int
}

// NewDemuxer creates a Demuxer reading data records from r, which must be
// positioned at the first data record.
func NewDemuxer(r io.Reader, hdr *Header, opts ...Option) (*Demuxer, error) {
	if hdr.sampleWidth() != 2 && hdr.sampleWidth() != 3 {
		return nil, fmt.Errorf("unsupported sample width %d", hdr.SampleWidth)
	}

	d := &Demuxer{
		r:       r,
		hdr:     hdr,
		log:     slog.New(slog.DiscardHandler),
		buf:     make([]byte, hdr.RecordSize()),
		columns: hdr.OrdinaryChannels(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.tal = NewTALParser(hdr.MaxTALLength(), d.codec)
	d.written = make([]int, len(d.columns))
	d.row.Values = make([]float64, len(d.columns))
	d.row.Present = make([]bool, len(d.columns))

	return d, nil
}

// Columns returns the signal indexes of the row columns.
func (d *Demuxer) Columns() []int {
	return d.columns
}

// Run processes every remaining data record. It stops at the first error.
func (d *Demuxer) Run(sink Sink) error {
	for d.record < d.hdr.DataRecords {
		if err := d.Next(sink); err != nil {
			return err
		}
	}
	return nil
}

// Next processes one data record. It returns io.EOF once every record
// announced by the header has been processed.
func (d *Demuxer) Next(sink Sink) error {
	if d.record >= d.hdr.DataRecords {
		return io.EOF
	}

	if _, err := io.ReadFull(d.r, d.buf); err != nil {
		return IOError(d.record, fmt.Errorf("error reading data record: %w", err))
	}

	elapsed, err := d.annotations(sink)
	if err != nil {
		return withRecord(err, d.record)
	}

	d.log.Debug("data record", slog.Int("record", d.record), slog.Float64("elapsed", elapsed))

	if err := d.rows(elapsed, sink); err != nil {
		return withRecord(err, d.record)
	}

	d.record++
	return nil
}

func (d *Demuxer) slot(ch int) []byte {
	sig := &d.hdr.Signals[ch]
	width := d.hdr.sampleWidth()
	return d.buf[sig.BufferOffset*width : (sig.BufferOffset+sig.SamplesPerRecord)*width]
}

// annotations drains the annotation signals of the current record and
// returns the record's start time.
func (d *Demuxer) annotations(sink Sink) (float64, error) {
	if !d.hdr.Plus() {
		return float64(d.record) * d.hdr.RecordSeconds(), nil
	}

	annotationChannels := d.hdr.AnnotationChannels()
	if len(annotationChannels) == 0 {
		return 0, newFormatError(ErrMissingAnnotationChannel, "header is marked as %s", d.hdr.Reserved[:5])
	}

	elapsed, err := d.tal.RecordOnset(d.slot(annotationChannels[0]))
	if err != nil {
		return 0, withChannel(err, annotationChannels[0])
	}

	for _, ch := range annotationChannels {
		err := d.tal.Parse(d.slot(ch), func(a Annotation) error {
			a.Record, a.Channel = d.record, ch
			if err := sink.Annotation(a); err != nil {
				return sinkError(d.record, err)
			}
			return nil
		})
		if err != nil {
			return 0, withChannel(err, ch)
		}
	}

	return elapsed, nil
}

// rows emits the samples of the current record in global time order. Each
// round picks the earliest pending sample time over all ordinary signals and
// emits every signal whose next sample falls on it.
func (d *Demuxer) rows(elapsed float64, sink Sink) error {
	width := d.hdr.sampleWidth()

	remaining := 0
	for c, ch := range d.columns {
		d.written[c] = 0
		remaining += d.hdr.Signals[ch].SamplesPerRecord
	}

	for remaining > 0 {
		slotTime := math.Inf(1)
		for c, ch := range d.columns {
			sig := &d.hdr.Signals[ch]
			if d.written[c] >= sig.SamplesPerRecord {
				continue
			}
			if t := float64(d.written[c]) * sig.TimeStep; t < slotTime {
				slotTime = t
			}
		}

		for c, ch := range d.columns {
			sig := &d.hdr.Signals[ch]
			t := float64(d.written[c]) * sig.TimeStep
			if d.written[c] < sig.SamplesPerRecord && math.Abs(t-slotTime) < timeEpsilon {
				pos := (sig.BufferOffset + d.written[c]) * width
				d.row.Values[c] = sig.Physical(DecodeSample(d.buf[pos:pos+width], width))
				d.row.Present[c] = true
				d.written[c]++
				remaining--
			} else {
				d.row.Values[c] = math.NaN()
				d.row.Present[c] = false
			}
		}

		d.row.Record = d.record
		d.row.Time = elapsed + slotTime
		if err := sink.Row(&d.row); err != nil {
			return sinkError(d.record, err)
		}
	}

	return nil
}

func sinkError(record int, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return IOError(record, fmt.Errorf("error writing output: %w", err))
}

// Collector is a Sink that keeps everything in memory: one matrix row per
// time slot with NaN where a signal has no sample, and every annotation.
type Collector struct {
	Times       []float64
	Rows        [][]float64
	Annotations []Annotation
}

// Annotation implements Sink.
func (c *Collector) Annotation(a Annotation) error {
	c.Annotations = append(c.Annotations, a)
	return nil
}

// Row implements Sink.
func (c *Collector) Row(r *Row) error {
	values := make([]float64, len(r.Values))
	copy(values, r.Values)
	c.Times = append(c.Times, r.Time)
	c.Rows = append(c.Rows, values)
	return nil
}

// Flatten returns every sample in emission order as a single column.
func (c *Collector) Flatten() []float64 {
	var out []float64
	for _, row := range c.Rows {
		for _, v := range row {
			if !math.IsNaN(v) {
				out = append(out, v)
			}
		}
	}
	return out
}
