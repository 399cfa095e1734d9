// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package nihonkohden_test

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenPSG/edfconv/nihonkohden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLabels(t *testing.T) {
	labels := nihonkohden.DefaultLabels()

	tests := map[byte]string{
		0:   "EEG FP1",
		17:  "EEG CZ",
		25:  "EEG T2",
		26:  "EEG X1",
		36:  "EEG X11",
		37:  "-",
		42:  "DC01",
		73:  "DC32",
		74:  "EEG BN1",
		77:  "EEG Mark2",
		78:  "-",
		100: "EEG X12/BP1",
		103: "EEG X15/BP4",
		104: "EEG X16",
		253: "EEG X165",
		254: "-",
		255: "Z",
	}
	for code, want := range tests {
		assert.Equal(t, want, labels.Label(code), "code %d", code)
	}
}

const electrodeFile = "[SETUP]\r\n" +
	"0000=Ignored\r\n" +
	"[ELECTRODE]\r\n" +
	"0000=Fp1\r\n" +
	"0001=\r\n" +
	"0002=A very long electrode name\r\n" +
	"0042=Caf\xe9 \r\n" +
	"0300=Out of range\r\n" +
	"[REFERENCE]\r\n" +
	"0003=Ref\r\n"

func TestParseElectrodes(t *testing.T) {
	labels := nihonkohden.DefaultLabels()
	require.NoError(t, labels.ParseElectrodes(strings.NewReader(electrodeFile)))

	assert.Equal(t, "Fp1", labels.Label(0))
	assert.Equal(t, "-", labels.Label(1))
	assert.Equal(t, "A very long elec", labels.Label(2))
	assert.Equal(t, "EEG F4", labels.Label(3))
	assert.Equal(t, "Cafe", labels.Label(42))
}

func TestLoadElectrodes(t *testing.T) {
	dir := t.TempDir()
	eeg := filepath.Join(dir, "session.eeg")

	labels := nihonkohden.DefaultLabels()
	err := labels.LoadElectrodes(eeg)
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "EEG FP1", labels.Label(0))

	writeFile(t, dir, "session.21E", []byte(electrodeFile))
	require.NoError(t, labels.LoadElectrodes(eeg))
	assert.Equal(t, "Fp1", labels.Label(0))
}
