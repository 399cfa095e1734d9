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

	"github.com/OpenPSG/edfconv/nihonkohden"
	"github.com/stretchr/testify/assert"
)

func TestCheckDevice(t *testing.T) {
	for _, dev := range nihonkohden.Devices {
		assert.True(t, nihonkohden.CheckDevice([]byte(dev)), dev)
	}

	tests := []struct {
		sig  string
		want bool
	}{
		{"EEG-1100A V02.0\x00", true},
		{"EEG-1100A V02.0\x00trailing", true},
		{"EEG-1100A V02.0X", false},
		{"EEG-1100A V02.", false},
		{"EEG-9999  V01.00", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nihonkohden.CheckDevice([]byte(tt.sig)), "%q", tt.sig)
	}
}
