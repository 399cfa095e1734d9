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
	"strings"

	"github.com/OpenPSG/edfconv/charset"
)

// Offsets of the .pnt fields.
const (
	pntPatientID  = 0x604
	pntSex        = 0x64a
	pntBirthYear  = 0x660
	pntBirthMonth = 0x665
	pntBirthDay   = 0x668
	pntName       = 0x62e
	pntStartYear  = 0x40
	pntStartMonth = 0x44
	pntStartDay   = 0x46
	pntAdmin      = 0x61c
	pntTechnician = 0x6aa
)

// Offset and size of the free text patient field of an .eeg file.
const (
	eegPatient     = 0x4f
	eegPatientSize = 32
)

var months = [...]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// Identity holds the EDF patient and recording identification fields.
type Identity struct {
	Patient   string
	Recording string
}

// Patient is the content of a .pnt file.
type Patient struct {
	ID         string // EDF+ subfields: ASCII, spaces replaced by '_', "X" when unknown
	Sex        string // "M", "F" or "X"
	Birthdate  string // dd-MMM-yyyy or "X"
	Name       string
	Startdate  string // dd-MMM-yyyy or "X"
	Admin      string
	Technician string
}

// ParsePatient decodes a .pnt file.
func ParsePatient(f *File) (*Patient, error) {
	if _, err := checkSignature(f, 0, ".pnt file"); err != nil {
		return nil, err
	}

	var (
		p   Patient
		err error
	)
	field := func(off, n int) string {
		if err != nil {
			return ""
		}
		var b []byte
		b, err = f.bytes(off, n)
		return subfield(b)
	}
	date := func(yearOff, monthOff, dayOff int) string {
		if err != nil {
			return ""
		}
		var year, month, day []byte
		if year, err = f.bytes(yearOff, 4); err != nil {
			return ""
		}
		if month, err = f.bytes(monthOff, 2); err != nil {
			return ""
		}
		if day, err = f.bytes(dayOff, 2); err != nil {
			return ""
		}
		return formatDate(year, month, day)
	}

	p.ID = field(pntPatientID, 10)
	p.Name = field(pntName, 20)
	p.Admin = field(pntAdmin, 10)
	p.Technician = field(pntTechnician, 20)
	p.Birthdate = date(pntBirthYear, pntBirthMonth, pntBirthDay)
	p.Startdate = date(pntStartYear, pntStartMonth, pntStartDay)
	if err != nil {
		return nil, err
	}

	sex, err := f.bytes(pntSex, 6)
	if err != nil {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(sex, []byte("Male")):
		p.Sex = "M"
	case bytes.HasPrefix(sex, []byte("Female")):
		p.Sex = "F"
	default:
		p.Sex = "X"
	}

	return &p, nil
}

// Identity builds the EDF+ identification fields. device is the signature of
// the recorder.
func (p *Patient) Identity(device []byte) Identity {
	sig := strings.ReplaceAll(asciiUntilNUL(device), " ", "_")
	return Identity{
		Patient: strings.Join([]string{p.ID, p.Sex, p.Birthdate, p.Name}, " "),
		Recording: strings.Join([]string{
			"Startdate", p.Startdate, p.Admin, p.Technician, "Nihon_Kohden_" + sig,
		}, " "),
	}
}

// PlainIdentity builds the identification fields of an EDF file without
// annotations, which come from the .eeg file alone.
func PlainIdentity(eeg *File) (Identity, error) {
	patient, err := eeg.bytes(eegPatient, eegPatientSize)
	if err != nil {
		return Identity{}, err
	}
	device, err := eeg.bytes(0, SignatureSize)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Patient:   asciiUntilNUL(patient),
		Recording: "Nihon Kohden " + asciiUntilNUL(device),
	}, nil
}

func asciiUntilNUL(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(charset.Latin1ToASCII(b))
}

// subfield converts a text field to an EDF+ subfield.
func subfield(b []byte) string {
	s := strings.ReplaceAll(asciiUntilNUL(b), " ", "_")
	if s == "" {
		return "X"
	}
	return s
}

// formatDate renders ASCII date fields as dd-MMM-yyyy, or "X" if any of them
// is invalid.
func formatDate(year, month, day []byte) string {
	d, m, y := atoi(string(day)), atoi(string(month)), atoi(string(year))
	if d < 1 || d > 31 || !digits(day) {
		return "X"
	}
	if m < 1 || m > 12 {
		return "X"
	}
	if y < 1 || y > 9999 || !digits(year) {
		return "X"
	}
	return string(day) + "-" + months[m-1] + "-" + string(year)
}

func digits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
