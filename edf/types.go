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
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
	// VersionBDF is the BioSemi 24-bit variant, 0xFF followed by "BIOSEMI".
	VersionBDF Version = "\xffBIOSEMI"
)

// Family distinguishes the container a header was decoded from.
type Family int

const (
	FamilyEDF    Family = iota // EDF, EDF+, BDF, BDF+
	FamilyVendor               // Nihon Kohden recorder files
)

func (f Family) String() string {
	switch f {
	case FamilyEDF:
		return "edf"
	case FamilyVendor:
		return "vendor"
	default:
		return "unknown"
	}
}

const (
	// AnnotationLabel is the reserved label of an EDF+ annotation signal.
	AnnotationLabel = "EDF Annotations"
	// BDFAnnotationLabel is the reserved label of a BDF+ annotation signal.
	BDFAnnotationLabel = "BDF Annotations"

	// MaxSignals is the largest signal count accepted in a header.
	MaxSignals = 256

	minTALLength = 128
)

// Header represents the EDF/EDF+ file header.
type Header struct {
	Family             Family        // Container family the header was decoded from
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date of the recording
	HeaderBytes        int           // Number of bytes in the header
	Reserved           string        // Reserved field, holds the EDF+C/EDF+D marker
	DataRecordDuration time.Duration // Duration of a single data record in seconds
	DataRecords        int           // Number of data records, -1 if unknown
	SignalCount        int           // Number of signals in each data record
	SampleWidth        int           // Bytes per sample, 2 for EDF and 3 for BDF
	Signals            []Signal      // Details of each signal
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use

	Annotation   bool    // Carries TAL text instead of samples
	Sense        float64 // Physical units per digital step
	Offset       float64 // Digital offset applied before scaling
	TimeStep     float64 // Seconds between consecutive samples
	BufferOffset int     // Sample offset of this signal inside one data record
}

// Annotation is a single onset/duration/text triple decoded from a TAL.
type Annotation struct {
	Onset       float64 // Seconds relative to the start of the recording
	Duration    float64 // Seconds, only meaningful when HasDuration is set
	HasDuration bool
	Text        string
	Record      int // Data record the annotation was found in
	Channel     int // Annotation signal index
}

// RecordSeconds returns the data record duration as floating point seconds.
func (h *Header) RecordSeconds() float64 {
	return h.DataRecordDuration.Seconds()
}

// Plus reports whether the header carries an EDF+C, EDF+D, BDF+C or BDF+D
// marker. Any other reserved text, including a bare "EDF+", is plain EDF.
func (h *Header) Plus() bool {
	for _, marker := range []string{"EDF+C", "EDF+D", "BDF+C", "BDF+D"} {
		if strings.HasPrefix(h.Reserved, marker) {
			return true
		}
	}
	return false
}

// Continuous reports whether the recording is uninterrupted (EDF+C, or plain EDF).
func (h *Header) Continuous() bool {
	return !strings.HasPrefix(h.Reserved, "EDF+D") && !strings.HasPrefix(h.Reserved, "BDF+D")
}

// AnnotationChannels returns the indexes of the annotation signals.
func (h *Header) AnnotationChannels() []int {
	var idx []int
	for i, sig := range h.Signals {
		if sig.Annotation {
			idx = append(idx, i)
		}
	}
	return idx
}

// OrdinaryChannels returns the indexes of the signals carrying samples.
func (h *Header) OrdinaryChannels() []int {
	var idx []int
	for i, sig := range h.Signals {
		if !sig.Annotation {
			idx = append(idx, i)
		}
	}
	return idx
}

// RecordSamples returns the total number of samples in one data record.
func (h *Header) RecordSamples() int {
	var n int
	for _, sig := range h.Signals {
		n += sig.SamplesPerRecord
	}
	return n
}

// RecordSize returns the size in bytes of one data record.
func (h *Header) RecordSize() int {
	return h.RecordSamples() * h.sampleWidth()
}

// MaxTALLength returns the largest annotation signal span in bytes, never
// less than 128.
func (h *Header) MaxTALLength() int {
	spans := []int{minTALLength}
	for _, sig := range h.Signals {
		if sig.Annotation {
			spans = append(spans, sig.SamplesPerRecord*h.sampleWidth())
		}
	}
	return slices.Max(spans)
}

func (h *Header) sampleWidth() int {
	if h.SampleWidth == 0 {
		return 2
	}
	return h.SampleWidth
}

// Layout assigns buffer offsets and calibration to every signal.
func (h *Header) Layout() error {
	offset := 0
	for i := range h.Signals {
		sig := &h.Signals[i]
		sig.BufferOffset = offset
		offset += sig.SamplesPerRecord
		if err := sig.Calibrate(h.RecordSeconds()); err != nil {
			return withChannel(err, i)
		}
	}
	return nil
}

// Calibrate derives sense, offset and time step for the signal.
func (s *Signal) Calibrate(recordSeconds float64) error {
	if s.SamplesPerRecord < 1 {
		return newFormatError(ErrBadSamplesPerRecord, "samples per record is %d", s.SamplesPerRecord)
	}
	if s.DigitalMax == s.DigitalMin {
		return newFormatError(ErrBadDigitalRange, "digital minimum equals digital maximum (%d)", s.DigitalMin)
	}
	s.Sense = (s.PhysicalMax - s.PhysicalMin) / float64(s.DigitalMax-s.DigitalMin)
	s.Offset = 0
	if s.Sense != 0 {
		s.Offset = s.PhysicalMax/s.Sense - float64(s.DigitalMax)
	}
	s.TimeStep = recordSeconds / float64(s.SamplesPerRecord)
	return nil
}
