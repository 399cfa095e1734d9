// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"bytes"
	"fmt"
	"strconv"
)

type rawSignal struct {
	label            string
	physMin, physMax string
	digMin, digMax   string
	samples          string
}

type rawHeader struct {
	version  string
	reserved string
	records  string
	duration string
	signals  []rawSignal
	// count overrides the signal count field when set.
	count string
}

func field(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)[:width]
}

func (h rawHeader) bytes() []byte {
	var b bytes.Buffer
	version := h.version
	if version == "" {
		version = "0"
	}
	n := len(h.signals)
	count := h.count
	if count == "" {
		count = strconv.Itoa(n)
	}

	b.WriteString(field(version, 8))
	b.WriteString(field("X X X X", 80))
	b.WriteString(field("Startdate X X X X", 80))
	b.WriteString("05.03.21")
	b.WriteString("10.20.30")
	b.WriteString(field(strconv.Itoa((n+1)*256), 8))
	b.WriteString(field(h.reserved, 44))
	b.WriteString(field(h.records, 8))
	b.WriteString(field(h.duration, 8))
	b.WriteString(field(count, 4))

	stripe := func(width int, get func(rawSignal) string) {
		for _, s := range h.signals {
			b.WriteString(field(get(s), width))
		}
	}
	stripe(16, func(s rawSignal) string { return s.label })
	stripe(80, func(s rawSignal) string { return "AgAgCl electrode" })
	stripe(8, func(s rawSignal) string { return "uV" })
	stripe(8, func(s rawSignal) string { return s.physMin })
	stripe(8, func(s rawSignal) string { return s.physMax })
	stripe(8, func(s rawSignal) string { return s.digMin })
	stripe(8, func(s rawSignal) string { return s.digMax })
	stripe(80, func(s rawSignal) string { return "HP:0.1Hz" })
	stripe(8, func(s rawSignal) string { return s.samples })
	stripe(32, func(s rawSignal) string { return "" })

	return b.Bytes()
}

func ordinary(label string, samples int) rawSignal {
	return rawSignal{
		label:   label,
		physMin: "-100",
		physMax: "100",
		digMin:  "-32768",
		digMax:  "32767",
		samples: strconv.Itoa(samples),
	}
}

func annotationSignal(samples int) rawSignal {
	return rawSignal{
		label:   "EDF Annotations",
		physMin: "-1",
		physMax: "1",
		digMin:  "-32768",
		digMax:  "32767",
		samples: strconv.Itoa(samples),
	}
}

// tal pads a TAL byte string to the size of an annotation slot.
func tal(s string, size int) []byte {
	b := make([]byte, size)
	copy(b, s)
	return b
}

func le16(v int16) []byte {
	return []byte{byte(v), byte(uint16(v) >> 8)}
}
