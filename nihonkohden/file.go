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
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/OpenPSG/edfconv/edf"
)

// File is the read-only contents of one recorder file.
type File struct {
	Data    []byte
	mmapped bool
}

// OpenFile maps a recorder file read-only. If mmap is unavailable the file is
// read into memory instead. The returned file must be closed to release any
// mapping.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("file %s is too large", path)
	}

	if size > 0 {
		if data, err := mmap(f, int(size)); err == nil {
			return &File{Data: data, mmapped: true}, nil
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return &File{Data: data}, nil
}

// NewFile wraps data that is already in memory.
func NewFile(data []byte) *File {
	return &File{Data: data}
}

// Close releases the mapping, if any.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = munmap(f.Data)
	}
	f.Data = nil
	f.mmapped = false
	return err
}

// bytes returns n bytes at off. Reading past the end is an I/O error.
func (f *File) bytes(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(f.Data) {
		return nil, edf.IOError(-1, fmt.Errorf("error reading %d bytes at offset %#x: %w", n, off, io.ErrUnexpectedEOF))
	}
	return f.Data[off : off+n], nil
}

func (f *File) byteAt(off int) (int, error) {
	b, err := f.bytes(off, 1)
	if err != nil {
		return 0, err
	}
	return int(b[0]), nil
}

// addressAt reads a little-endian 32-bit block address.
func (f *File) addressAt(off int) (int, error) {
	b, err := f.bytes(off, 4)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(b)), nil
}
