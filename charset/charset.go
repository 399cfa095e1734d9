// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package charset converts the Latin-1, UTF-8 and ASCII text found in EDF
// headers, annotations and recorder event logs.
package charset

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupported is returned by UTF8ToLatin1 when it meets a sequence it
// cannot narrow to Latin-1. The output up to that point is still returned.
var ErrUnsupported = errors.New("charset: unsupported UTF-8 sequence")

// Latin1ToUTF8 re-encodes Latin-1 text as UTF-8. Control bytes and the
// C1 range 0x7F-0x9F become '.'.
func Latin1ToUTF8(src []byte) []byte {
	out := make([]byte, 0, len(src)*2)
	for _, c := range src {
		switch {
		case c < 0x20 || (c >= 0x7f && c < 0xa0):
			out = append(out, '.')
		case c >= 0xa0:
			out = utf8.AppendRune(out, charmap.ISO8859_1.DecodeByte(c))
		default:
			out = append(out, c)
		}
	}
	return out
}

// FitLatin1ToUTF8 is Latin1ToUTF8 for fixed-width fields: the output never
// exceeds n bytes, conversion stops at the first NUL, and a character whose
// two byte encoding would not fit is replaced by a space.
func FitLatin1ToUTF8(src []byte, n int) []byte {
	out := make([]byte, 0, n)
	for _, c := range src {
		if len(out) >= n || c == 0 {
			break
		}
		switch {
		case c < 0x20 || (c >= 0x7f && c < 0xa0):
			out = append(out, '.')
		case c >= 0xa0:
			if n-len(out) < 2 {
				out = append(out, ' ')
			} else {
				out = utf8.AppendRune(out, charmap.ISO8859_1.DecodeByte(c))
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

// UTF8ToLatin1 narrows UTF-8 text to Latin-1. Two byte sequences outside
// the Latin-1 range become '.', as do control bytes and stray continuation
// bytes. Sequences of three or more bytes, a truncated sequence or a broken
// continuation byte end the conversion: the text decoded so far is returned
// together with ErrUnsupported.
func UTF8ToLatin1(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c < 0x20 || (c >= 0x80 && c < 0xc0):
			out = append(out, '.')
		case c >= 0xe0:
			return out, ErrUnsupported
		case c >= 0xc0:
			if i+1 == len(src) {
				return out, ErrUnsupported
			}
			if c&0xfc != 0xc0 {
				// Greek, Cyrillic, Hebrew and the like.
				out = append(out, '.')
				i++
				continue
			}
			if src[i+1]&0xc0 != 0x80 {
				return out, ErrUnsupported
			}
			if c < 0xc2 {
				// Overlong forms of ASCII.
				out = append(out, c<<6|src[i+1]&0x3f)
				i++
				continue
			}
			r, _ := utf8.DecodeRune(src[i : i+2])
			b, ok := charmap.ISO8859_1.EncodeRune(r)
			if !ok {
				b = '.'
			}
			out = append(out, b)
			i++
		default:
			out = append(out, c)
		}
	}
	return out, nil
}

// Latin1ToASCII transliterates Latin-1 text to printable ASCII using a fixed
// table. Printable ASCII is left alone, so the conversion is idempotent.
func Latin1ToASCII(src []byte) []byte {
	out := make([]byte, len(src))
	for i, c := range src {
		out[i] = asciiTable[c]
	}
	return out
}
