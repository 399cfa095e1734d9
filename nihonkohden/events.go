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
	"bytes"

	"github.com/OpenPSG/edfconv/charset"
)

const (
	blockCount     = 0x91
	blockAddresses = 0x92
	addressStride  = 20
	logEventCount  = 0x12
	logEvents      = 0x14
	logEventSize   = 45
	logTextSize    = 20
	logTime        = 20
	logSubevent    = 24
	subeventSize   = 3
	subeventBlocks = 22 // sub-event block i is stored at address slot i+22
	logTimeDigits  = 6
)

// Event is an operator annotation from a .log file.
type Event struct {
	Elapsed  int    // Seconds since the start of the recording session
	Subevent string // Fraction digits from the sub-event block, empty if absent
	Text     []byte // UTF-8, exactly 20 bytes
}

// EventLog is the content of a .log file.
type EventLog struct {
	Events    []Event
	Subevents bool // Every event carries sub-event digits
}

// ParseLog decodes a .log file. Sub-event blocks are only used when every
// log block has one with a matching event count.
func ParseLog(f *File) (*EventLog, error) {
	if _, err := checkSignature(f, 0, ".log file"); err != nil {
		return nil, err
	}

	blocks, err := f.byteAt(blockCount)
	if err != nil {
		return nil, err
	}

	var (
		records    [][]byte
		subrecords [][]byte
		subevents  = true
	)
	for i := 0; i < blocks; i++ {
		recs, err := logBlock(f, blockAddresses+i*addressStride)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)

		if subevents {
			subs, err := logBlock(f, blockAddresses+(i+subeventBlocks)*addressStride)
			if err != nil || len(subs) != len(recs) {
				subevents = false
				continue
			}
			subrecords = append(subrecords, subs...)
		}
	}

	el := &EventLog{Events: make([]Event, len(records)), Subevents: subevents}
	for i, rec := range records {
		ev := &el.Events[i]

		text := make([]byte, logTextSize)
		for j, c := range rec[:logTextSize] {
			if c < 0x20 {
				c = ' '
			}
			text[j] = c
		}
		ev.Text = charset.FitLatin1ToUTF8(text, logTextSize)

		t := rec[logTime : logTime+logTimeDigits]
		ev.Elapsed = 36000*digit(t[0]) + 3600*digit(t[1]) + 600*digit(t[2]) +
			60*digit(t[3]) + 10*digit(t[4]) + digit(t[5])

		if subevents {
			sub := subrecords[i][logSubevent : logSubevent+subeventSize]
			if n := bytes.IndexByte(sub, 0); n >= 0 {
				sub = sub[:n]
			}
			ev.Subevent = string(sub)
		}
	}

	return el, nil
}

// logBlock returns the event records of the log block whose address is
// stored at slot.
func logBlock(f *File, slot int) ([][]byte, error) {
	addr, err := f.addressAt(slot)
	if err != nil {
		return nil, err
	}
	n, err := f.byteAt(addr + logEventCount)
	if err != nil {
		return nil, err
	}
	data, err := f.bytes(addr+logEvents, n*logEventSize)
	if err != nil {
		return nil, err
	}
	recs := make([][]byte, n)
	for i := range recs {
		recs[i] = data[i*logEventSize : (i+1)*logEventSize]
	}
	return recs, nil
}

// digit is the value of an ASCII digit. Other bytes are not rejected, so a
// damaged time stamp yields a nonsensical but deterministic time.
func digit(c byte) int {
	return int(c) - '0'
}

// window returns the events that fall inside a block starting elapsed
// seconds into the session and lasting seconds, in log order.
func (l *EventLog) window(elapsed, seconds int) []Event {
	if l == nil {
		return nil
	}
	var out []Event
	for _, ev := range l.Events {
		if ev.Elapsed >= elapsed && ev.Elapsed-elapsed < seconds {
			out = append(out, ev)
		}
	}
	return out
}
