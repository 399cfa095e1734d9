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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Session is an .eeg file opened together with its companion files.
type Session struct {
	Path      string
	Recording *Recording
	Converter *Converter
	files     []*File
	log       *slog.Logger
}

// Load opens the .eeg file at path. With annotations the .log and .pnt files
// next to it are required. A .21E file is used when present.
func Load(path string, annotations bool, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if ext := filepath.Ext(path); ext != ".eeg" && ext != ".EEG" {
		return nil, fmt.Errorf("filename extension must be .eeg or .EEG, got %q", ext)
	}

	s := &Session{Path: path, log: logger}
	fail := func(err error) (*Session, error) {
		_ = s.Close()
		return nil, err
	}

	eeg, err := s.open(path)
	if err != nil {
		return fail(err)
	}
	if s.Recording, err = Open(eeg); err != nil {
		return fail(fmt.Errorf("%s: %w", path, err))
	}

	labels := DefaultLabels()
	if err := labels.LoadElectrodes(path); errors.Is(err, fs.ErrNotExist) {
		logger.Info("no .21E file, using default electrode names")
	} else if err != nil {
		return fail(err)
	}
	opts := []Option{WithLabels(labels), WithLogger(logger)}

	if annotations {
		logFile, err := s.companion("log")
		if err != nil {
			return fail(err)
		}
		events, err := ParseLog(logFile.File)
		if err != nil {
			return fail(fmt.Errorf("%s: %w", logFile.name, err))
		}

		pntFile, err := s.companion("pnt")
		if err != nil {
			return fail(err)
		}
		patient, err := ParsePatient(pntFile.File)
		if err != nil {
			return fail(fmt.Errorf("%s: %w", pntFile.name, err))
		}

		logger.Debug("loaded companion files",
			slog.Int("events", len(events.Events)),
			slog.Bool("subevents", events.Subevents))
		opts = append(opts, WithAnnotations(events, patient))
	}

	if s.Converter, err = NewConverter(s.Recording, opts...); err != nil {
		return fail(err)
	}

	return s, nil
}

type namedFile struct {
	*File
	name string
}

func (s *Session) open(path string) (*File, error) {
	f, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	s.files = append(s.files, f)
	return f, nil
}

// companion opens the file next to the .eeg file with extension ext, trying
// lower and upper case.
func (s *Session) companion(ext string) (namedFile, error) {
	base := strings.TrimSuffix(s.Path, filepath.Ext(s.Path))
	var firstErr error
	for _, e := range []string{ext, strings.ToUpper(ext)} {
		path := base + "." + e
		f, err := s.open(path)
		if err == nil {
			return namedFile{File: f, name: path}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return namedFile{}, fmt.Errorf("error opening .%s file, use no annotations if there is none: %w", ext, firstErr)
}

// OutputPath returns the name of the EDF file for waveform block b.
func (s *Session) OutputPath(b Block) string {
	base := strings.TrimSuffix(s.Path, filepath.Ext(s.Path))
	if s.Converter.Annotations() {
		return fmt.Sprintf("%s_%d-%d+.edf", base, b.Control+1, b.Index+1)
	}
	return fmt.Sprintf("%s_%d-%d.edf", base, b.Control+1, b.Index+1)
}

// ConvertAll writes every waveform block to its own file next to the .eeg
// file and returns the paths written. The session elapsed time is carried
// from block to block. It stops at the first error.
func (s *Session) ConvertAll(ctx context.Context) ([]string, error) {
	var (
		written []string
		elapsed int
	)
	for _, b := range s.Recording.Blocks {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		path := s.OutputPath(b)
		f, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("error creating %s: %w", path, err)
		}

		elapsed, err = s.Converter.Convert(f, b, elapsed)
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("error closing %s: %w", path, closeErr)
		}
		if err != nil {
			return written, fmt.Errorf("%s: %w", path, err)
		}

		s.log.Info("wrote", slog.String("path", path))
		written = append(written, path)
	}
	return written, nil
}

// Close releases the files of the session.
func (s *Session) Close() error {
	var errs []error
	for _, f := range s.files {
		errs = append(errs, f.Close())
	}
	s.files = nil
	return errors.Join(errs...)
}
