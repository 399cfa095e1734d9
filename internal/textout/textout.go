// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package textout writes the comma separated text tables of an EDF file:
// header, signals, annotations and data.
package textout

import (
	"bufio"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenPSG/edfconv/edf"
)

const (
	headerColumns     = "Version,Patient,Recording,Startdate,Startime,Bytes,Reserved,NumRec,Duration,NumSig"
	signalColumns     = "Signal,Label,Transducer,Units,Min,Max,Dmin,Dmax,PreFilter,Smp/Rec,Reserved"
	annotationColumns = "Onset,Duration,Annotation"
)

// Paths returns the table file names for an input file.
func Paths(input string) (header, signals, annotations, data string) {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_header.txt", base + "_signals.txt", base + "_annotations.txt", base + "_data.txt"
}

// WriteHeader writes the header table. NumSig counts ordinary signals only.
func WriteHeader(w io.Writer, hdr *edf.Header) error {
	version := string(hdr.Version)
	if hdr.Version == edf.VersionBDF {
		version = "." + version[1:]
	}

	line := []string{
		version,
		hdr.PatientID,
		hdr.RecordingID,
		hdr.StartTime.Format("02.01.06"),
		hdr.StartTime.Format("15.04.05"),
		strconv.Itoa(hdr.HeaderBytes),
		hdr.Reserved,
		strconv.Itoa(hdr.DataRecords),
		edf.FormatNumber(hdr.RecordSeconds(), 8),
		strconv.Itoa(len(hdr.OrdinaryChannels())),
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(headerColumns + "\n")
	bw.WriteString(strings.Join(line, ",") + "\n")
	return bw.Flush()
}

// WriteSignals writes one line per ordinary signal, numbered by its position
// in the header.
func WriteSignals(w io.Writer, hdr *edf.Header) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(signalColumns + "\n")
	for _, i := range hdr.OrdinaryChannels() {
		sig := &hdr.Signals[i]
		line := []string{
			strconv.Itoa(i + 1),
			sig.Label,
			sig.TransducerType,
			sig.PhysicalDimension,
			strconv.FormatFloat(sig.PhysicalMin, 'f', 6, 64),
			strconv.FormatFloat(sig.PhysicalMax, 'f', 6, 64),
			strconv.Itoa(sig.DigitalMin),
			strconv.Itoa(sig.DigitalMax),
			sig.Prefiltering,
			strconv.Itoa(sig.SamplesPerRecord),
			sig.Reserved,
		}
		bw.WriteString(strings.Join(line, ",") + "\n")
	}
	return bw.Flush()
}

// Tables is an edf.Sink writing the annotation and data tables. Data lines
// hold the row time followed by one column per ordinary signal, empty where
// the signal has no sample.
type Tables struct {
	annotations *bufio.Writer
	data        *bufio.Writer
	line        []byte
	rows        int
	events      int
}

// NewTables writes the column lines of both tables. labels name the data
// columns.
func NewTables(annotations, data io.Writer, labels []string) (*Tables, error) {
	t := &Tables{
		annotations: bufio.NewWriter(annotations),
		data:        bufio.NewWriter(data),
	}
	if _, err := t.annotations.WriteString(annotationColumns + "\n"); err != nil {
		return nil, err
	}
	if _, err := t.data.WriteString("Time," + strings.Join(labels, ",") + "\n"); err != nil {
		return nil, err
	}
	return t, nil
}

// Annotation implements edf.Sink.
func (t *Tables) Annotation(a edf.Annotation) error {
	t.line = t.line[:0]
	t.line = strconv.AppendFloat(t.line, a.Onset, 'f', -1, 64)
	t.line = append(t.line, ',')
	if a.HasDuration {
		t.line = strconv.AppendFloat(t.line, a.Duration, 'f', -1, 64)
	}
	t.line = append(t.line, ',')
	t.line = append(t.line, a.Text...)
	t.line = append(t.line, '\n')

	t.events++
	_, err := t.annotations.Write(t.line)
	return err
}

// Row implements edf.Sink.
func (t *Tables) Row(r *edf.Row) error {
	t.line = t.line[:0]
	t.line = strconv.AppendFloat(t.line, r.Time, 'f', -1, 64)
	for i, v := range r.Values {
		t.line = append(t.line, ',')
		if r.Present[i] {
			t.line = strconv.AppendFloat(t.line, v, 'f', -1, 64)
		}
	}
	t.line = append(t.line, '\n')

	t.rows++
	_, err := t.data.Write(t.line)
	return err
}

// Flush writes any buffered lines.
func (t *Tables) Flush() error {
	if err := t.annotations.Flush(); err != nil {
		return err
	}
	return t.data.Flush()
}

// Rows returns the number of data lines written.
func (t *Tables) Rows() int {
	return t.rows
}

// Annotations returns the number of annotation lines written.
func (t *Tables) Annotations() int {
	return t.events
}
