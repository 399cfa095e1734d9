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
	"strconv"

	"github.com/OpenPSG/edfconv/charset"
)

// TAL control bytes.
const (
	talFieldSeparator    = 0x14
	talDurationSeparator = 0x15
	talTerminator        = 0x00
)

// TextCodec selects how annotation text is transcoded before it is emitted.
type TextCodec int

const (
	TextLatin1ToUTF8  TextCodec = iota // Latin-1 text re-encoded as UTF-8
	TextLatin1ToASCII                  // Latin-1 text transliterated to ASCII
	TextUTF8ToLatin1                   // UTF-8 text narrowed to Latin-1, truncating what does not fit
)

// ParseTextCodec maps a charset name to a TextCodec.
func ParseTextCodec(name string) (TextCodec, error) {
	switch name {
	case "utf8", "utf-8", "":
		return TextLatin1ToUTF8, nil
	case "ascii":
		return TextLatin1ToASCII, nil
	case "latin1", "latin-1", "iso-8859-1":
		return TextUTF8ToLatin1, nil
	default:
		return 0, fmt.Errorf("unknown annotation charset %q", name)
	}
}

func (c TextCodec) transcode(b []byte) []byte {
	switch c {
	case TextLatin1ToASCII:
		return charset.Latin1ToASCII(b)
	case TextUTF8ToLatin1:
		// Truncation is the accepted degradation for unsupported sequences.
		out, _ := charset.UTF8ToLatin1(b)
		return out
	default:
		return charset.Latin1ToUTF8(b)
	}
}

// talBuffer is a byte accumulator with a fixed capacity that is checked on
// every write.
type talBuffer struct {
	b   []byte
	max int
}

func newTALBuffer(max int) *talBuffer {
	return &talBuffer{b: make([]byte, 0, max), max: max}
}

func (t *talBuffer) appendByte(c byte) error {
	if len(t.b) >= t.max {
		return newFormatError(ErrTalOverflow, "TAL longer than %d bytes", t.max)
	}
	t.b = append(t.b, c)
	return nil
}

func (t *talBuffer) appendBytes(p []byte) error {
	if len(t.b)+len(p) > t.max {
		return newFormatError(ErrTalOverflow, "TAL longer than %d bytes", t.max)
	}
	t.b = append(t.b, p...)
	return nil
}

func (t *talBuffer) take() string {
	s := string(t.b)
	t.b = t.b[:0]
	return s
}

func (t *talBuffer) reset() {
	t.b = t.b[:0]
}

// TALParser decodes the annotation signal slots of data records.
type TALParser struct {
	acc   *talBuffer
	codec TextCodec
}

// NewTALParser creates a parser whose fields may be at most maxLength bytes.
func NewTALParser(maxLength int, codec TextCodec) *TALParser {
	return &TALParser{acc: newTALBuffer(maxLength), codec: codec}
}

// RecordOnset returns the onset of the first TAL in slot, which holds the
// start time of the data record.
func (p *TALParser) RecordOnset(slot []byte) (float64, error) {
	p.acc.reset()
	for _, c := range slot {
		if c == talFieldSeparator || c == talDurationSeparator || c == talTerminator {
			break
		}
		if err := p.acc.appendByte(c); err != nil {
			return 0, err
		}
	}
	text := p.acc.take()
	onset, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, newFormatError(ErrBadTAL, "record onset %q", text)
	}
	return onset, nil
}

// Parse scans slot and calls emit for every annotation with non-empty text.
func (p *TALParser) Parse(slot []byte, emit func(Annotation) error) error {
	var (
		onsetText, durationText string
		onsetClosed, inDuration bool
		zeros                   int
	)

	p.acc.reset()
	for _, c := range slot {
		if c == talTerminator {
			zeros++
			if zeros > 1 {
				return nil
			}
			p.acc.reset()
			onsetText, durationText = "", ""
			onsetClosed, inDuration = false, false
			continue
		}
		zeros = 0

		switch c {
		case talFieldSeparator:
			switch {
			case inDuration:
				durationText = p.acc.take()
				inDuration = false
			case onsetClosed:
				text := p.acc.take()
				if text != "" {
					a, err := p.annotation(onsetText, durationText, text)
					if err != nil {
						return err
					}
					if err := emit(a); err != nil {
						return err
					}
				}
				durationText = ""
			default:
				onsetText = p.acc.take()
				onsetClosed = true
				durationText = ""
			}
		case talDurationSeparator:
			if !onsetClosed {
				onsetText = p.acc.take()
				onsetClosed = true
			}
			p.acc.reset()
			inDuration = true
			durationText = ""
		default:
			if err := p.acc.appendByte(c); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *TALParser) annotation(onsetText, durationText, text string) (Annotation, error) {
	a := Annotation{Text: sanitize(p.codec.transcode([]byte(text)))}

	var err error
	if a.Onset, err = strconv.ParseFloat(onsetText, 64); err != nil {
		return a, newFormatError(ErrBadTAL, "onset %q", onsetText)
	}
	if durationText != "" {
		if a.Duration, err = strconv.ParseFloat(durationText, 64); err != nil {
			return a, newFormatError(ErrBadTAL, "duration %q", durationText)
		}
		a.HasDuration = true
	}

	return a, nil
}

// sanitize replaces control bytes and commas, which would break the
// comma-separated text outputs.
func sanitize(b []byte) string {
	for i, c := range b {
		if c < 32 || c == ',' {
			b[i] = '.'
		}
	}
	return string(b)
}

// ErrTALFull is returned by TALWriter when an event does not fit the slot.
var ErrTALFull = errors.New("annotation slot full")

// TALWriter builds the annotation slot of one data record.
type TALWriter struct {
	buf *talBuffer
}

// NewTALWriter creates a writer for slots of size bytes.
func NewTALWriter(size int) *TALWriter {
	return &TALWriter{buf: newTALBuffer(size)}
}

// Reset starts a new slot with the record onset TAL, "+<onset>\x14\x14\x00".
func (w *TALWriter) Reset(onset string) error {
	w.buf.reset()
	if err := w.buf.appendBytes([]byte(onset)); err != nil {
		return err
	}
	return w.buf.appendBytes([]byte{talFieldSeparator, talFieldSeparator, talTerminator})
}

// Add appends an annotation TAL, "<onset>[\x15<duration>]\x14<text>\x14\x00".
func (w *TALWriter) Add(onset, duration string, text []byte) error {
	mark := len(w.buf.b)
	tal := make([]byte, 0, len(onset)+len(duration)+len(text)+4)
	tal = append(tal, onset...)
	if duration != "" {
		tal = append(tal, talDurationSeparator)
		tal = append(tal, duration...)
	}
	tal = append(tal, talFieldSeparator)
	tal = append(tal, text...)
	tal = append(tal, talFieldSeparator, talTerminator)
	if err := w.buf.appendBytes(tal); err != nil {
		w.buf.b = w.buf.b[:mark]
		return fmt.Errorf("%w: %v", ErrTALFull, err)
	}
	return nil
}

// Bytes copies the slot into dst and zero fills the remainder.
func (w *TALWriter) Bytes(dst []byte) {
	n := copy(dst, w.buf.b)
	clear(dst[n:])
}
