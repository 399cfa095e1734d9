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
	"testing"

	"github.com/OpenPSG/edfconv/edf"
	"github.com/OpenPSG/edfconv/nihonkohden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patientFields() map[int]string {
	return map[int]string{
		0x604: "ID 123",
		0x62e: "Jane Doe",
		0x64a: "Female",
		0x660: "1980",
		0x665: "07",
		0x668: "04",
		0x40:  "2021",
		0x44:  "03",
		0x46:  "05",
		0x6aa: "Tech",
	}
}

func TestParsePatient(t *testing.T) {
	p, err := nihonkohden.ParsePatient(nihonkohden.NewFile(buildPatient(patientFields())))
	require.NoError(t, err)

	assert.Equal(t, &nihonkohden.Patient{
		ID:         "ID_123",
		Sex:        "F",
		Birthdate:  "04-JUL-1980",
		Name:       "Jane_Doe",
		Startdate:  "05-MAR-2021",
		Admin:      "X",
		Technician: "Tech",
	}, p)

	id := p.Identity([]byte(testDevice))
	assert.Equal(t, "ID_123 F 04-JUL-1980 Jane_Doe", id.Patient)
	assert.Equal(t, "Startdate 05-MAR-2021 X Tech Nihon_Kohden_EEG-1100A_V01.00", id.Recording)
}

func TestParsePatientUnknownFields(t *testing.T) {
	fields := patientFields()
	fields[0x64a] = "Other"
	fields[0x665] = "13"
	fields[0x46] = "x5"
	delete(fields, 0x604)

	p, err := nihonkohden.ParsePatient(nihonkohden.NewFile(buildPatient(fields)))
	require.NoError(t, err)

	assert.Equal(t, "X", p.ID)
	assert.Equal(t, "X", p.Sex)
	assert.Equal(t, "X", p.Birthdate)
	assert.Equal(t, "X", p.Startdate)

	fields[0x64a] = "Male"
	p, err = nihonkohden.ParsePatient(nihonkohden.NewFile(buildPatient(fields)))
	require.NoError(t, err)
	assert.Equal(t, "M", p.Sex)
}

func TestParsePatientRejects(t *testing.T) {
	b := buildPatient(patientFields())
	copy(b, "NOT A RECORDER  ")

	_, err := nihonkohden.ParsePatient(nihonkohden.NewFile(b))
	require.Error(t, err)
	assert.True(t, edf.IsFormat(err))
	assert.ErrorIs(t, err, edf.ErrUnknownSignature)

	_, err = nihonkohden.ParsePatient(nihonkohden.NewFile(buildPatient(patientFields())[:0x610]))
	require.Error(t, err)
	assert.True(t, edf.IsIO(err))
}

func TestPlainIdentity(t *testing.T) {
	eeg := buildEEG(testDevice, "Jane Doe")

	id, err := nihonkohden.PlainIdentity(nihonkohden.NewFile(eeg))
	require.NoError(t, err)
	assert.Equal(t, nihonkohden.Identity{
		Patient:   "Jane Doe",
		Recording: "Nihon Kohden EEG-1100A V01.00",
	}, id)
}
