// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package nihonkohden decodes Nihon Kohden EEG recorder files (.eeg with the
// optional .log, .pnt and .21E companions) and re-encodes every waveform
// block as an EDF or EDF+ file.
package nihonkohden

import (
	"bytes"
	"strings"

	"github.com/OpenPSG/edfconv/edf"
	"golang.org/x/exp/slices"
)

// SignatureSize is the length of a device signature.
const SignatureSize = 16

// Devices lists the device signatures that can be converted.
var Devices = []string{
	"EEG-1100A V01.00",
	"EEG-1100B V01.00",
	"EEG-1100C V01.00",
	"QI-403A   V01.00",
	"QI-403A   V02.00",
	"EEG-2100  V01.00",
	"EEG-2100  V02.00",
	"DAE-2100D V01.30",
	"DAE-2100D V02.00",
	"EEG-1100A V02.00",
	"EEG-1100B V02.00",
	"EEG-1100C V02.00",
}

// Some .log files drop the last character of the version.
const truncatedDevice = "EEG-1100A V02.0"

// CheckDevice reports whether sig is the signature of a supported device.
func CheckDevice(sig []byte) bool {
	if len(sig) < SignatureSize {
		return false
	}
	sig = sig[:SignatureSize]
	if slices.Contains(Devices, string(sig)) {
		return true
	}
	return string(sig[:15]) == truncatedDevice && sig[15] == 0
}

// checkSignature validates the device signature at off in f.
func checkSignature(f *File, off int, what string) ([]byte, error) {
	sig, err := f.bytes(off, SignatureSize)
	if err != nil {
		return nil, err
	}
	if !CheckDevice(sig) {
		return nil, edf.FormatError(edf.ErrUnknownSignature, "%s has unknown signature %q", what, printable(sig))
	}
	return sig, nil
}

// printable cuts b at the first NUL for use in messages.
func printable(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.ToValidUTF8(string(b), "?")
}
