// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package wavout exports a single EDF signal as a mono WAV file holding the
// digital sample values.
package wavout

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/OpenPSG/edfconv/edf"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const chunkSize = 4096

// SampleRate returns the sample rate of signal, rounded to whole hertz.
func SampleRate(hdr *edf.Header, signal int) (int, error) {
	if signal < 0 || signal >= len(hdr.Signals) {
		return 0, fmt.Errorf("signal %d out of range", signal+1)
	}
	if hdr.RecordSeconds() <= 0 {
		return 0, fmt.Errorf("data record duration is %v", hdr.DataRecordDuration)
	}
	rate := int(math.Round(float64(hdr.Signals[signal].SamplesPerRecord) / hdr.RecordSeconds()))
	if rate < 1 {
		return 0, fmt.Errorf("signal %d has a sample rate below 1 Hz", signal+1)
	}
	return rate, nil
}

// Export writes signal of er to w, 16-bit for EDF and 24-bit for BDF, and
// returns the number of samples written.
func Export(w io.WriteSeeker, er *edf.Reader, signal int) (int, error) {
	hdr := er.Header()
	rate, err := SampleRate(hdr, signal)
	if err != nil {
		return 0, err
	}

	sr, err := er.Signal(signal)
	if err != nil {
		return 0, err
	}

	bits := 8 * hdr.SampleWidth
	enc := wav.NewEncoder(w, rate, bits, 1, 1)

	physical := make([]float64, chunkSize)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  rate,
		},
		Data:           make([]int, chunkSize),
		SourceBitDepth: bits,
	}

	sig := &hdr.Signals[signal]
	total := 0
	for {
		n, readErr := sr.Read(physical)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return total, readErr
		}

		buf.Data = buf.Data[:n]
		for i, v := range physical[:n] {
			buf.Data[i] = int(sig.Digital(v))
		}
		if n > 0 {
			if err := enc.Write(buf); err != nil {
				return total, fmt.Errorf("error writing samples: %w", err)
			}
		}
		total += n

		if readErr != nil {
			break
		}
	}

	if err := enc.Close(); err != nil {
		return total, fmt.Errorf("error finalizing wav file: %w", err)
	}

	return total, nil
}
