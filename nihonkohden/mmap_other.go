//go:build !unix

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
	"errors"
	"os"
)

var errNoMmap = errors.New("mmap not supported")

func mmap(*os.File, int) ([]byte, error) {
	return nil, errNoMmap
}

func munmap([]byte) error {
	return nil
}
