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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

const fixedHeaderSize = 256

// Per-signal stripe widths, in header order.
var stripeWidths = [...]int{16, 80, 8, 8, 8, 8, 8, 80, 8, 32}

const (
	stripeLabel = iota
	stripeTransducer
	stripeDimension
	stripePhysMin
	stripePhysMax
	stripeDigMin
	stripeDigMax
	stripePrefilter
	stripeSamples
	stripeReserved
)

// Reader reads EDF/EDF+ and BDF/BDF+ files.
type Reader struct {
	r   io.ReadSeeker
	hdr *Header
}

// Open opens an EDF/EDF+ file for reading.
func Open(r io.ReadSeeker) (*Reader, error) {
	hdr, err := DecodeHeader(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}

	return &Reader{
		r:   r,
		hdr: hdr,
	}, nil
}

// Header returns the decoded header. It must not be modified.
func (er *Reader) Header() *Header {
	return er.hdr
}

// Demux positions the reader at the first data record and returns a
// demultiplexer over all records.
func (er *Reader) Demux(opts ...Option) (*Demuxer, error) {
	if _, err := er.r.Seek(int64(er.hdr.HeaderBytes), io.SeekStart); err != nil {
		return nil, IOError(-1, fmt.Errorf("error seeking to first data record: %w", err))
	}
	return NewDemuxer(bufio.NewReaderSize(er.r, 1<<16), er.hdr, opts...)
}

// DecodeHeader reads and validates a complete EDF-family header from r,
// leaving r positioned at the first data record.
func DecodeHeader(r io.Reader) (*Header, error) {
	b := make([]byte, fixedHeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, IOError(-1, fmt.Errorf("error reading header: %w", err))
	}

	version, width, err := parseVersion(b[0:8])
	if err != nil {
		return nil, err
	}

	signalCount, err := strconv.Atoi(strings.TrimSpace(string(b[252:256])))
	if err != nil || signalCount < 1 || signalCount > MaxSignals {
		return nil, newFormatError(ErrBadSignalCount, "number of signals in header is %q", string(b[252:256]))
	}

	raw := make([]byte, (signalCount+1)*fixedHeaderSize)
	copy(raw, b)
	if _, err := io.ReadFull(r, raw[fixedHeaderSize:]); err != nil {
		return nil, IOError(-1, fmt.Errorf("error reading signal headers: %w", err))
	}

	// The text outputs are comma separated.
	for i := range raw {
		if raw[i] == ',' {
			raw[i] = '\''
		}
	}

	return parseHeader(raw, version, width, signalCount)
}

func parseVersion(b []byte) (Version, int, error) {
	switch {
	case string(b) == "0       ":
		return Version0, 2, nil
	case b[0] == 0xff && string(b[1:8]) == "BIOSEMI":
		return VersionBDF, 3, nil
	default:
		return "", 0, newFormatError(ErrUnknownVersion, "header has unknown version %q", string(b))
	}
}

func parseHeader(b []byte, version Version, width, signalCount int) (*Header, error) {
	// Parse fields based on EDF/EDF+ specifications
	hdr := &Header{
		Family:      FamilyEDF,
		Version:     version,
		SampleWidth: width,
		SignalCount: signalCount,
	}
	hdr.PatientID = strings.TrimSpace(string(b[8:88]))
	hdr.RecordingID = strings.TrimSpace(string(b[88:168]))

	var err error
	hdr.StartTime, err = parseStartTime(string(b[168:176]), string(b[176:184]))
	if err != nil {
		return nil, err
	}

	hdr.HeaderBytes, err = strconv.Atoi(strings.TrimSpace(string(b[184:192])))
	if err != nil || hdr.HeaderBytes != len(b) {
		return nil, newFormatError(ErrBadHeaderSize, "header byte count %q, expected %d", string(b[184:192]), len(b))
	}

	hdr.Reserved = strings.TrimSpace(string(b[192:236]))

	hdr.DataRecords, err = strconv.Atoi(strings.TrimSpace(string(b[236:244])))
	if err != nil || hdr.DataRecords < 1 {
		return nil, newFormatError(ErrBadRecordCount, "number of data records in header is %q", string(b[236:244]))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(b[244:252])), 64)
	if err != nil || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, newFormatError(ErrBadRecordDuration, "data record duration is %q", string(b[244:252]))
	}
	hdr.DataRecordDuration = time.Duration(math.Round(seconds * float64(time.Second)))

	if err := parseSignals(hdr, b[fixedHeaderSize:]); err != nil {
		return nil, err
	}

	return hdr, nil
}

func parseSignals(hdr *Header, b []byte) error {
	n := hdr.SignalCount
	hdr.Signals = make([]Signal, n)

	// field returns the value of stripe for signal i.
	field := func(stripe, i int) []byte {
		base := 0
		for _, w := range stripeWidths[:stripe] {
			base += w * n
		}
		w := stripeWidths[stripe]
		return b[base+i*w : base+(i+1)*w]
	}

	plus := hdr.Plus()
	annotationLabel := []byte(AnnotationLabel + " ")
	if hdr.Version == VersionBDF && strings.HasPrefix(hdr.Reserved, "BDF+") {
		annotationLabel = []byte(BDFAnnotationLabel + " ")
	}

	annotations := 0
	for i := 0; i < n; i++ {
		sig := &hdr.Signals[i]
		label := field(stripeLabel, i)
		sig.Label = strings.TrimSpace(string(label))
		if plus && bytes.Equal(label, annotationLabel) {
			sig.Annotation = true
			annotations++
		}
		sig.TransducerType = strings.TrimSpace(string(field(stripeTransducer, i)))
		sig.PhysicalDimension = strings.TrimSpace(string(field(stripeDimension, i)))
		sig.Prefiltering = strings.TrimSpace(string(field(stripePrefilter, i)))
		sig.Reserved = strings.TrimSpace(string(field(stripeReserved, i)))

		var err error
		if sig.PhysicalMin, err = parseFloat(field(stripePhysMin, i)); err != nil {
			return withField(withChannel(err, i), "physical minimum")
		}
		if sig.PhysicalMax, err = parseFloat(field(stripePhysMax, i)); err != nil {
			return withField(withChannel(err, i), "physical maximum")
		}
		if sig.DigitalMin, err = parseInt(field(stripeDigMin, i)); err != nil {
			return withField(withChannel(err, i), "digital minimum")
		}
		if sig.DigitalMax, err = parseInt(field(stripeDigMax, i)); err != nil {
			return withField(withChannel(err, i), "digital maximum")
		}
		if sig.SamplesPerRecord, err = parseInt(field(stripeSamples, i)); err != nil {
			return withField(withChannel(err, i), "samples per record")
		}
	}

	if plus && annotations == 0 {
		return newFormatError(ErrMissingAnnotationChannel, "file is marked as %s", hdr.Reserved[:5])
	}

	if hdr.DataRecordDuration == 0 && annotations < n {
		return newFormatError(ErrBadRecordDuration, "zero data record duration with %d ordinary signals", n-annotations)
	}

	return hdr.Layout()
}

// parseStartTime parses the dd.mm.yy and hh.mm.ss header fields. Two digit
// years use the 1985 clipping date of the EDF specification.
func parseStartTime(dateStr, timeStr string) (time.Time, error) {
	dateStr, timeStr = strings.TrimSpace(dateStr), strings.TrimSpace(timeStr)
	parts := func(s string) ([3]int, bool) {
		var v [3]int
		f := strings.Split(s, ".")
		if len(f) != 3 {
			return v, false
		}
		for i := range f {
			n, err := strconv.Atoi(f[i])
			if err != nil || len(f[i]) != 2 {
				return v, false
			}
			v[i] = n
		}
		return v, true
	}

	d, ok := parts(dateStr)
	if !ok || d[0] < 1 || d[0] > 31 || d[1] < 1 || d[1] > 12 {
		return time.Time{}, newFormatError(ErrBadStartTime, "start date is %q", dateStr)
	}
	t, ok := parts(timeStr)
	if !ok || t[0] > 23 || t[1] > 59 || t[2] > 59 {
		return time.Time{}, newFormatError(ErrBadStartTime, "start time is %q", timeStr)
	}

	year := 2000 + d[2]
	if d[2] >= 85 {
		year = 1900 + d[2]
	}

	return time.Date(year, time.Month(d[1]), d[0], t[0], t[1], t[2], 0, time.UTC), nil
}

// SignalReader reads continuous signal data from an EDF/EDF+ file.
type SignalReader struct {
	r             io.ReadSeeker
	hdr           *Header
	signalIndex   int    // Index of the signal to read
	currentRecord int    // Current record being processed
	currentSample int    // Current sample in the record
	recordSize    int    // Total size of one data record
	signalOffset  int    // Byte offset of the signal in a record
	slot          []byte // Samples of the signal in the current record
	loaded        bool   // Whether slot holds currentRecord
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal index out of range")
	}

	signal := er.hdr.Signals[signalIndex]
	if signal.Annotation {
		return nil, fmt.Errorf("signal %d is an annotation signal", signalIndex)
	}

	width := er.hdr.sampleWidth()

	return &SignalReader{
		r:            er.r,
		hdr:          er.hdr,
		signalIndex:  signalIndex,
		recordSize:   er.hdr.RecordSize(),
		signalOffset: signal.BufferOffset * width,
		slot:         make([]byte, signal.SamplesPerRecord*width),
	}, nil
}

// Read fills the provided float64 slice with the physical values from the signal.
func (sr *SignalReader) Read(data []float64) (int, error) {
	signal := &sr.hdr.Signals[sr.signalIndex]
	width := sr.hdr.sampleWidth()

	n := 0
	for n < len(data) {
		if sr.currentRecord >= sr.hdr.DataRecords {
			return n, io.EOF // End of data records
		}

		if !sr.loaded {
			// Calculate position to read the signal's slot from
			pos := int64(sr.hdr.HeaderBytes) + int64(sr.currentRecord)*int64(sr.recordSize) + int64(sr.signalOffset)
			if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
				return n, fmt.Errorf("error seeking to position: %w", err)
			}
			if _, err := io.ReadFull(sr.r, sr.slot); err != nil {
				return n, IOError(sr.currentRecord, fmt.Errorf("error reading sample data: %w", err))
			}
			sr.loaded = true
		}

		raw := DecodeSample(sr.slot[sr.currentSample*width:], width)
		data[n] = signal.Physical(raw)

		n++

		// Move to the next sample
		sr.currentSample++
		if sr.currentSample >= signal.SamplesPerRecord {
			sr.currentSample = 0
			sr.currentRecord++
			sr.loaded = false
		}
	}

	return n, nil
}

func parseFloat(b []byte) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, newFormatError(ErrBadField, "%q is not a number", string(b))
	}
	return f, nil
}

func parseInt(b []byte) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, newFormatError(ErrBadField, "%q is not an integer", string(b))
	}
	return i, nil
}
