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
	"fmt"
	"io"
	"strconv"
)

// As recommended by the EDF standard.
const maxRecordBytes = 61440

// Writer writes EDF/EDF+ and BDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	dataRecords int    // Number of data records written so far.
	rec         []byte // Record being encoded.
	tal         *TALWriter
}

// Create creates a new EDF writer that writes to the given writer. Signals
// marked as annotation signals get a timekeeping TAL in every record.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	hdr.Signals = append([]Signal(nil), hdr.Signals...)
	hdr.SignalCount = len(hdr.Signals)
	hdr.DataRecords = -1 // Unknown number of data records (at this time).
	if hdr.SampleWidth == 0 {
		hdr.SampleWidth = 2
	}
	if hdr.Version == "" {
		hdr.Version = Version0
		if hdr.SampleWidth == 3 {
			hdr.Version = VersionBDF
		}
	}
	if hdr.SignalCount < 1 || hdr.SignalCount > MaxSignals {
		return nil, newFormatError(ErrBadSignalCount, "cannot write %d signals", hdr.SignalCount)
	}
	for i := range hdr.Signals {
		sig := &hdr.Signals[i]
		if !sig.Annotation {
			continue
		}
		if sig.Label == "" {
			sig.Label = AnnotationLabel
		}
		if sig.DigitalMin == 0 && sig.DigitalMax == 0 {
			sig.PhysicalMin, sig.PhysicalMax = -1, 1
			sig.DigitalMin, sig.DigitalMax = -32768, 32767
		}
		if hdr.Reserved == "" {
			hdr.Reserved = "EDF+C"
		}
	}
	if err := hdr.Layout(); err != nil {
		return nil, err
	}

	ew := &Writer{
		w:   w,
		hdr: &hdr,
		rec: make([]byte, hdr.RecordSize()),
	}
	if annotations := hdr.AnnotationChannels(); len(annotations) > 0 {
		ew.tal = NewTALWriter(hdr.Signals[annotations[0]].SamplesPerRecord * hdr.SampleWidth)
	}

	// Write the initial header
	if err := ew.writeHeader(); err != nil {
		return nil, IOError(-1, fmt.Errorf("error writing header: %w", err))
	}

	return ew, nil
}

// Close finalizes the EDF file by updating the header with the total number of data records.
func (ew *Writer) Close() error {
	// Finalize the header with the actual number of data records
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return IOError(-1, fmt.Errorf("error writing header: %w", err))
	}

	return nil
}

// WriteRecord writes a single data record to the EDF file. Annotation signals
// take no samples (pass nil); the given annotations are stored in the first
// annotation signal after the record's timekeeping TAL.
func (ew *Writer) WriteRecord(signals [][]float64, annotations ...Annotation) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}

	if len(ew.rec) > maxRecordBytes {
		return fmt.Errorf("data record too large: %d bytes, max is %d bytes", len(ew.rec), maxRecordBytes)
	}

	if len(annotations) > 0 && ew.tal == nil {
		return fmt.Errorf("header has no annotation signal")
	}

	width := ew.hdr.SampleWidth
	annotated := false

	// Encode each signal's data
	for i := 0; i < ew.hdr.SignalCount; i++ {
		signal := &ew.hdr.Signals[i]
		slot := ew.rec[signal.BufferOffset*width : (signal.BufferOffset+signal.SamplesPerRecord)*width]

		if signal.Annotation {
			// Only the first annotation signal keeps time.
			if annotated {
				clear(slot)
				continue
			}
			if err := ew.tal.Reset(FormatOnset(float64(ew.dataRecords) * ew.hdr.RecordSeconds())); err != nil {
				return withChannel(withRecord(err, ew.dataRecords), i)
			}
			for _, a := range annotations {
				duration := ""
				if a.HasDuration {
					duration = strconv.FormatFloat(a.Duration, 'f', -1, 64)
				}
				if err := ew.tal.Add(FormatOnset(a.Onset), duration, []byte(a.Text)); err != nil {
					return withChannel(withRecord(err, ew.dataRecords), i)
				}
			}
			annotated = true
			ew.tal.Bytes(slot)
			continue
		}

		if len(signals[i]) != signal.SamplesPerRecord {
			return fmt.Errorf("signal %d: expected %d samples, got %d", i, signal.SamplesPerRecord, len(signals[i]))
		}
		for j, sample := range signals[i] {
			EncodeSample(slot[j*width:], width, signal.Digital(sample))
		}
	}

	return ew.writeRecord(ew.rec)
}

// WriteRawRecord writes a data record that is already encoded.
func (ew *Writer) WriteRawRecord(record []byte) error {
	if len(record) != len(ew.rec) {
		return withRecord(newFormatError(ErrRecordSize, "got %d bytes, expected %d", len(record), len(ew.rec)), ew.dataRecords)
	}
	return ew.writeRecord(record)
}

func (ew *Writer) writeRecord(record []byte) error {
	if _, err := ew.w.Write(record); err != nil {
		return IOError(ew.dataRecords, fmt.Errorf("error writing data record: %w", err))
	}
	ew.dataRecords++
	return nil
}

// WriteHeader writes an EDF header to the given writer.
func (ew *Writer) writeHeader() error {
	// Rewind to the beginning of the file.
	_, err := ew.w.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(ew.w)

	write := func(s string, width int) {
		if err != nil {
			return
		}
		_, err = writer.WriteString(pad(s, width))
	}

	// Write version, patient and recording IDs
	write(string(ew.hdr.Version), 8)
	write(ew.hdr.PatientID, 80)
	write(ew.hdr.RecordingID, 80)

	// Write start date and time
	write(ew.hdr.StartTime.Format("02.01.06"), 8)
	write(ew.hdr.StartTime.Format("15.04.05"), 8)

	// Write header bytes, data records, etc.
	ew.hdr.HeaderBytes = 256 + (ew.hdr.SignalCount * 256)
	write(strconv.Itoa(ew.hdr.HeaderBytes), 8)

	// Reserved, carries the EDF+ marker.
	write(ew.hdr.Reserved, 44)

	write(strconv.Itoa(ew.hdr.DataRecords), 8)
	write(FormatNumber(ew.hdr.RecordSeconds(), 8), 8)
	write(strconv.Itoa(ew.hdr.SignalCount), 4)

	// Write signal details
	for _, signal := range ew.hdr.Signals {
		write(signal.Label, 16)
	}
	for _, signal := range ew.hdr.Signals {
		write(signal.TransducerType, 80)
	}
	for _, signal := range ew.hdr.Signals {
		write(signal.PhysicalDimension, 8)
	}
	for _, signal := range ew.hdr.Signals {
		write(FormatNumber(signal.PhysicalMin, 8), 8)
	}
	for _, signal := range ew.hdr.Signals {
		write(FormatNumber(signal.PhysicalMax, 8), 8)
	}
	for _, signal := range ew.hdr.Signals {
		write(strconv.Itoa(signal.DigitalMin), 8)
	}
	for _, signal := range ew.hdr.Signals {
		write(strconv.Itoa(signal.DigitalMax), 8)
	}
	for _, signal := range ew.hdr.Signals {
		write(signal.Prefiltering, 80)
	}
	for _, signal := range ew.hdr.Signals {
		write(strconv.Itoa(signal.SamplesPerRecord), 8)
	}
	for _, signal := range ew.hdr.Signals {
		write(signal.Reserved, 32)
	}
	if err != nil {
		return err
	}

	// Ensure all data is flushed to the underlying writer
	if err := writer.Flush(); err != nil {
		return err
	}

	// Leave the file positioned after the header and any records written.
	_, err = ew.w.Seek(int64(ew.hdr.HeaderBytes)+int64(ew.dataRecords)*int64(len(ew.rec)), io.SeekStart)
	return err
}

// pad left aligns s in a field of width bytes, truncating if needed.
func pad(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return fmt.Sprintf("%-*s", width, s)
}

// FormatNumber renders v in at most width characters, dropping decimals
// until it fits.
func FormatNumber(v float64, width int) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	for prec := width - 1; len(s) > width && prec >= 0; prec-- {
		s = strconv.FormatFloat(v, 'f', prec, 64)
	}
	return s
}

// FormatOnset renders a TAL onset, which always carries a sign.
func FormatOnset(seconds float64) string {
	s := strconv.FormatFloat(seconds, 'f', -1, 64)
	if seconds >= 0 {
		s = "+" + s
	}
	return s
}
