// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package nihonkohden

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/OpenPSG/edfconv/edf"
)

// Bytes of the EDF+ annotation signal in every data record.
const annotationSlotSize = 54

// Converter re-encodes the waveform blocks of a recording as EDF(+) files.
type Converter struct {
	rec    *Recording
	labels *Labels
	id     Identity
	events *EventLog
	plus   bool
	log    *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLabels sets the electrode names, DefaultLabels otherwise.
func WithLabels(labels *Labels) Option {
	return func(c *Converter) {
		c.labels = labels
	}
}

// WithAnnotations produces EDF+ files carrying the log events and the patient
// identification.
func WithAnnotations(events *EventLog, patient *Patient) Option {
	return func(c *Converter) {
		c.plus = true
		c.events = events
		c.id = patient.Identity(c.rec.Device)
	}
}

// WithLogger sets the logger used for per-block diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.log = logger
	}
}

// NewConverter creates a converter for rec.
func NewConverter(rec *Recording, opts ...Option) (*Converter, error) {
	c := &Converter{
		rec:    rec,
		labels: DefaultLabels(),
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	if !c.plus {
		var err error
		if c.id, err = PlainIdentity(rec.eeg); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Annotations reports whether the converter writes EDF+ files.
func (c *Converter) Annotations() bool {
	return c.plus
}

// Convert writes waveform block b to w. elapsed is the number of seconds of
// the session that precede the block; the returned value is the elapsed time
// after it, to be passed to the next block.
func (c *Converter) Convert(w io.WriteSeeker, b Block, elapsed int) (int, error) {
	wf, err := c.rec.Waveform(b)
	if err != nil {
		return elapsed, err
	}
	hdr, err := wf.Header(c.labels, c.id, c.plus)
	if err != nil {
		return elapsed, err
	}

	var events []Event
	if c.plus {
		events = c.events.window(elapsed, wf.Seconds())
	}

	c.log.Debug("converting waveform block",
		slog.Int("control", b.Control+1),
		slog.Int("block", b.Index+1),
		slog.Int("sampleRate", wf.SampleRate),
		slog.Int("channels", wf.Channels()),
		slog.Int("records", wf.Records),
		slog.Int("events", len(events)))

	ew, err := edf.Create(w, *hdr)
	if err != nil {
		return elapsed, err
	}

	channels := wf.Channels()
	spr := wf.SamplesPerRecord()
	stride := spr * channels * 2

	record := make([]byte, hdr.RecordSize())
	var tal *edf.TALWriter
	if c.plus {
		tal = edf.NewTALWriter(annotationSlotSize)
	}

	for i := 0; i < wf.Records; i++ {
		src, err := c.rec.eeg.bytes(wf.DataOffset+i*stride, stride)
		if err != nil {
			return elapsed, edf.IOError(i, fmt.Errorf("error reading waveform data: %w", io.ErrUnexpectedEOF))
		}
		deinterleave(record[:stride], src, channels, spr)

		if tal != nil {
			if err := tal.Reset(fmt.Sprintf("%+d.%d", i/RecordsPerSecond, i%RecordsPerSecond)); err != nil {
				return elapsed, err
			}
			// At most one event per record.
			if len(events) > 0 {
				ev := events[0]
				events = events[1:]
				if err := tal.Add(c.onset(ev, elapsed), "", ev.Text); err != nil {
					c.log.Warn("dropping event", slog.Int("record", i), slog.Any("error", err))
				}
			}
			tal.Bytes(record[stride:])
		}

		if err := ew.WriteRawRecord(record); err != nil {
			return elapsed, err
		}
	}

	if len(events) > 0 {
		c.log.Warn("events left over at the end of the block", slog.Int("events", len(events)))
	}

	if err := ew.Close(); err != nil {
		return elapsed, err
	}

	return elapsed + wf.Seconds(), nil
}

// onset renders the event time relative to the block start.
func (c *Converter) onset(ev Event, elapsed int) string {
	s := fmt.Sprintf("%+d", ev.Elapsed-elapsed)
	if c.events.Subevents {
		s += "." + ev.Subevent
	}
	return s
}

// deinterleave turns sample-major recorder data into channel-major EDF
// samples. EEG channels are stored offset binary, flipping the top bit of
// the high byte makes them two's complement. The event channel is copied
// as is.
func deinterleave(dst, src []byte, channels, spr int) {
	raster := spr * 2
	for j := 0; j < spr; j++ {
		for k := 0; k < channels; k++ {
			s := src[(j*channels+k)*2:]
			d := dst[k*raster+j*2:]
			d[0] = s[0]
			if k < channels-1 {
				d[1] = s[1] + 0x80
			} else {
				d[1] = s[1]
			}
		}
	}
}
