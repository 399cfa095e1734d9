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
	"strings"
)

// Kind classifies a conversion failure.
type Kind int

const (
	KindFormat Kind = iota + 1 // malformed input, never retried
	KindIO                     // short read or failed write
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format error"
	case KindIO:
		return "i/o error"
	default:
		return "error"
	}
}

// Reasons carried by format errors.
var (
	ErrUnknownVersion           = errors.New("unknown version")
	ErrBadSignalCount           = errors.New("bad signal count")
	ErrBadHeaderSize            = errors.New("bad header size")
	ErrBadRecordCount           = errors.New("bad data record count")
	ErrBadRecordDuration        = errors.New("bad data record duration")
	ErrBadStartTime             = errors.New("bad start date or time")
	ErrBadField                 = errors.New("bad header field")
	ErrBadSamplesPerRecord      = errors.New("bad samples per record")
	ErrBadDigitalRange          = errors.New("digital minimum equals digital maximum")
	ErrMissingAnnotationChannel = errors.New("EDF+ file has no annotation signal")
	ErrTalOverflow              = errors.New("TAL exceeds buffer")
	ErrBadTAL                   = errors.New("malformed TAL")
	ErrUnknownSignature         = errors.New("unknown device signature")
	ErrRecordSize               = errors.New("data record size mismatch")
)

// Error is a conversion failure with the record and channel it happened at.
// Record and Channel are -1 when not applicable.
type Error struct {
	Kind    Kind
	Record  int
	Channel int
	Field   string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Record >= 0 {
		fmt.Fprintf(&b, ": record %d", e.Record+1)
	}
	if e.Channel >= 0 {
		fmt.Fprintf(&b, ": channel %d", e.Channel+1)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

type reasonError struct {
	reason error
	detail string
}

func (e *reasonError) Error() string {
	if e.detail == "" {
		return e.reason.Error()
	}
	return e.reason.Error() + ": " + e.detail
}

func (e *reasonError) Unwrap() error {
	return e.reason
}

// FormatError returns a format error for reason with a formatted detail message.
func FormatError(reason error, format string, args ...any) *Error {
	return newFormatError(reason, format, args...)
}

func newFormatError(reason error, format string, args ...any) *Error {
	return &Error{
		Kind:    KindFormat,
		Record:  -1,
		Channel: -1,
		Err:     &reasonError{reason: reason, detail: fmt.Sprintf(format, args...)},
	}
}

// IOError wraps an underlying read or write failure.
func IOError(record int, err error) *Error {
	return &Error{Kind: KindIO, Record: record, Channel: -1, Err: err}
}

// IsFormat reports whether err is a format error.
func IsFormat(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindFormat
}

// IsIO reports whether err is an I/O error.
func IsIO(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindIO
}

func withChannel(err error, channel int) error {
	var e *Error
	if errors.As(err, &e) && e.Channel < 0 {
		e.Channel = channel
	}
	return err
}

func withRecord(err error, record int) error {
	var e *Error
	if errors.As(err, &e) && e.Record < 0 {
		e.Record = record
	}
	return err
}

func withField(err error, field string) error {
	var e *Error
	if errors.As(err, &e) && e.Field == "" {
		e.Field = field
	}
	return err
}
