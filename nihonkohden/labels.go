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
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenPSG/edfconv/charset"
)

const (
	labelWidth   = 16
	unusedLabel  = "-"
	electrodeTag = "[ELECTRODE]"
)

// Labels maps the electrode code of a channel to its signal label.
type Labels [256]string

// DefaultLabels returns the electrode names used when there is no .21E file.
func DefaultLabels() *Labels {
	var l Labels
	for i := range l {
		l[i] = unusedLabel
	}

	names := []string{
		"EEG FP1", "EEG FP2", "EEG F3", "EEG F4", "EEG C3", "EEG C4", "EEG P3", "EEG P4",
		"EEG O1", "EEG O2", "EEG F7", "EEG F8", "EEG T3", "EEG T4", "EEG T5", "EEG T6",
		"EEG FZ", "EEG CZ", "EEG PZ", "EEG E", "EEG PG1", "EEG PG2", "EEG A1", "EEG A2",
		"EEG T1", "EEG T2",
	}
	copy(l[:], names)

	for i := 26; i < 37; i++ {
		l[i] = fmt.Sprintf("EEG X%d", i-25)
	}
	for i := 42; i < 74; i++ {
		l[i] = fmt.Sprintf("DC%02d", i-41)
	}
	l[74] = "EEG BN1"
	l[75] = "EEG BN2"
	l[76] = "EEG Mark1"
	l[77] = "EEG Mark2"
	l[100] = "EEG X12/BP1"
	l[101] = "EEG X13/BP2"
	l[102] = "EEG X14/BP3"
	l[103] = "EEG X15/BP4"
	for i := 104; i < 254; i++ {
		l[i] = fmt.Sprintf("EEG X%d", i-88)
	}
	l[255] = "Z"

	return &l
}

// Label returns the label of electrode code.
func (l *Labels) Label(code byte) string {
	return l[code]
}

// ParseElectrodes applies the "index=name" lines of the [ELECTRODE] section
// of a .21E file. Names are transliterated to ASCII and cut to 16 bytes; an
// empty name resets the label.
func (l *Labels) ParseElectrodes(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	inSection := false
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, electrodeTag):
			inSection = true
			continue
		case strings.HasPrefix(line, "["):
			inSection = false
		}
		if !inSection {
			continue
		}

		key, name, ok := strings.Cut(strings.TrimLeft(line, "="), "=")
		if !ok {
			continue
		}
		name, _, _ = strings.Cut(name, "=")
		name = strings.TrimRight(name, "\r")

		idx := atoi(key)
		if idx < 0 || idx >= len(l) {
			continue
		}
		if name == "" {
			l[idx] = unusedLabel
			continue
		}
		if len(name) > labelWidth {
			name = name[:labelWidth]
		}
		l[idx] = strings.TrimRight(string(charset.Latin1ToASCII([]byte(name))), " ")
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading electrode names: %w", err)
	}
	return nil
}

// LoadElectrodes applies the .21E (or .21e) file next to the .eeg file at
// path. It returns an error satisfying errors.Is(err, fs.ErrNotExist) when
// there is none.
func (l *Labels) LoadElectrodes(path string) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".21E", ".21e"} {
		f, err := os.Open(base + ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return err
		}
		defer f.Close()
		return l.ParseElectrodes(f)
	}
	return fmt.Errorf("no electrode file for %s: %w", path, fs.ErrNotExist)
}

// atoi parses a leading decimal integer, ignoring leading blanks and any
// trailing garbage. It returns 0 when there are no digits.
func atoi(s string) int {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<20 {
			break
		}
	}
	if neg {
		return -n
	}
	return n
}
