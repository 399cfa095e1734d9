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
	"encoding/binary"
	"time"

	"github.com/OpenPSG/edfconv/edf"
)

// Offsets in the .eeg file.
const (
	controlSignature  = 0x81
	waveformSignature = 0x17fe

	controlBlockCount     = 17
	controlBlockAddresses = 18

	waveformYear       = 0x14
	waveformMonth      = 0x15
	waveformDay        = 0x16
	waveformTime       = 0x17
	waveformSampleRate = 0x1a
	waveformRecords    = 0x1c
	waveformChannels   = 0x26
	waveformTable      = 0x27
	channelEntrySize   = 10
)

const (
	minRecords = 10
	maxRecords = 99999999

	// RecordsPerSecond is the number of data records per second of signal.
	RecordsPerSecond = 10

	// EventChannel is the label of the trailing marker channel.
	EventChannel = "Events/Markers"
)

// Recording is an opened .eeg file.
type Recording struct {
	eeg    *File
	Device []byte // Signature of the recorder
	Blocks []Block
}

// Block locates one waveform block in the control block chain.
type Block struct {
	Control int // Index of the control block
	Index   int // Index of the data block within its control block
	Offset  int // File offset of the waveform block
}

// Waveform is the decoded header of a waveform block.
type Waveform struct {
	Block
	Start      time.Time
	SampleRate int    // Samples per second of every channel
	Records    int    // Number of 0.1 second data records
	Codes      []byte // Electrode code of each EEG channel
	DataOffset int    // File offset of the first sample
}

// Open validates the signatures of an .eeg file and walks its control block
// chain.
func Open(eeg *File) (*Recording, error) {
	device, err := checkSignature(eeg, 0, "device block")
	if err != nil {
		return nil, err
	}
	if _, err := checkSignature(eeg, controlSignature, "control block"); err != nil {
		return nil, err
	}
	if b, err := eeg.byteAt(waveformSignature); err != nil {
		return nil, err
	} else if b != 0x01 {
		return nil, edf.FormatError(edf.ErrUnknownSignature, "waveform data block has wrong signature %#02x", b)
	}

	rec := &Recording{eeg: eeg, Device: device}

	controls, err := eeg.byteAt(blockCount)
	if err != nil {
		return nil, err
	}
	for i := 0; i < controls; i++ {
		ctl, err := eeg.addressAt(blockAddresses + i*addressStride)
		if err != nil {
			return nil, err
		}
		blocks, err := eeg.byteAt(ctl + controlBlockCount)
		if err != nil {
			return nil, err
		}
		for j := 0; j < blocks; j++ {
			wfm, err := eeg.addressAt(ctl + controlBlockAddresses + j*addressStride)
			if err != nil {
				return nil, err
			}
			rec.Blocks = append(rec.Blocks, Block{Control: i, Index: j, Offset: wfm})
		}
	}

	return rec, nil
}

// Waveform decodes the header of a waveform block.
func (r *Recording) Waveform(b Block) (*Waveform, error) {
	head, err := r.eeg.bytes(b.Offset, waveformTable)
	if err != nil {
		return nil, err
	}

	w := &Waveform{Block: b}

	year := bcd(head[waveformYear])
	if year >= 85 {
		year += 1900
	} else {
		year += 2000
	}
	w.Start = time.Date(year, time.Month(bcd(head[waveformMonth])), bcd(head[waveformDay]),
		bcd(head[waveformTime]), bcd(head[waveformTime+1]), bcd(head[waveformTime+2]), 0, time.UTC)

	w.SampleRate = (int(head[waveformSampleRate+1])<<8 | int(head[waveformSampleRate])) & 0x3fff

	w.Records = int(binary.LittleEndian.Uint32(head[waveformRecords:]))
	if w.Records < minRecords || w.Records > maxRecords {
		return nil, edf.FormatError(edf.ErrBadRecordCount, "waveform block %d-%d has %d records", b.Control+1, b.Index+1, w.Records)
	}

	channels := int(head[waveformChannels])
	table, err := r.eeg.bytes(b.Offset+waveformTable, channels*channelEntrySize)
	if err != nil {
		return nil, err
	}
	w.Codes = make([]byte, channels)
	for i := range w.Codes {
		w.Codes[i] = table[i*channelEntrySize]
	}
	w.DataOffset = b.Offset + waveformTable + channels*channelEntrySize

	return w, nil
}

// Channels returns the number of channels including the event channel.
func (w *Waveform) Channels() int {
	return len(w.Codes) + 1
}

// SamplesPerRecord returns the samples of each channel in one data record.
func (w *Waveform) SamplesPerRecord() int {
	return w.SampleRate / RecordsPerSecond
}

// Seconds returns the whole seconds covered by the block.
func (w *Waveform) Seconds() int {
	return w.Records / RecordsPerSecond
}

// Header returns the EDF header of the block. With annotations an EDF+
// annotation signal is appended after the event channel.
func (w *Waveform) Header(labels *Labels, id Identity, annotations bool) (*edf.Header, error) {
	spr := w.SamplesPerRecord()

	hdr := &edf.Header{
		Family:             edf.FamilyVendor,
		Version:            edf.Version0,
		PatientID:          id.Patient,
		RecordingID:        id.Recording,
		StartTime:          w.Start,
		DataRecordDuration: time.Second / RecordsPerSecond,
		DataRecords:        w.Records,
		SampleWidth:        2,
	}

	for _, code := range w.Codes {
		sig := edf.Signal{
			Label:            labels.Label(code),
			DigitalMin:       -32768,
			DigitalMax:       32767,
			SamplesPerRecord: spr,
		}
		if millivolt(code) {
			sig.PhysicalDimension = "mV"
			sig.PhysicalMin, sig.PhysicalMax = -12002.9, 12002.56
		} else {
			sig.PhysicalDimension = "uV"
			sig.PhysicalMin, sig.PhysicalMax = -3200, 3199.902
		}
		hdr.Signals = append(hdr.Signals, sig)
	}

	hdr.Signals = append(hdr.Signals, edf.Signal{
		Label:            EventChannel,
		PhysicalMin:      -1,
		PhysicalMax:      1,
		DigitalMin:       -32768,
		DigitalMax:       32767,
		SamplesPerRecord: spr,
	})

	if annotations {
		hdr.Reserved = "EDF+C"
		hdr.Signals = append(hdr.Signals, edf.Signal{
			Label:            edf.AnnotationLabel,
			PhysicalMin:      -1,
			PhysicalMax:      1,
			DigitalMin:       -32768,
			DigitalMax:       32767,
			SamplesPerRecord: annotationSlotSize / 2,
			Annotation:       true,
		})
	}

	hdr.SignalCount = len(hdr.Signals)
	hdr.HeaderBytes = (hdr.SignalCount + 1) * 256

	if err := hdr.Layout(); err != nil {
		return nil, err
	}

	return hdr, nil
}

// millivolt reports whether the electrode code is a DC or mark input, which
// are recorded in millivolts.
func millivolt(code byte) bool {
	return (code >= 42 && code <= 73) || code == 76 || code == 77
}

func bcd(b byte) int {
	return int(b>>4)*10 + int(b&0x0f)
}
