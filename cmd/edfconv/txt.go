// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/OpenPSG/edfconv/edf"
	"github.com/OpenPSG/edfconv/internal/logger"
	"github.com/OpenPSG/edfconv/internal/textout"
)

func txtCmd(opts *globalOptions) *cli.Command {
	var matrix bool

	return &cli.Command{
		Name:      "txt",
		Usage:     "Write the header, signals, annotations and samples of an EDF or BDF file as text tables",
		ArgsUsage: "<file.edf|file.bdf>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "charset",
				Usage:       "annotation text charset (utf8, ascii, latin1)",
				Value:       "utf8",
				Destination: &opts.charset,
			},
			&cli.StringFlag{
				Name:        "out-dir",
				Usage:       "directory for the text tables (default: next to the input)",
				Destination: &opts.outDir,
			},
			&cli.BoolFlag{
				Name:        "matrix",
				Usage:       "also print every sample as a single column on stdout",
				Destination: &matrix,
			},
		},
		Action: opts.action(func(ctx context.Context, cmd *cli.Command, log logger.Logger) error {
			args, err := inputArgs(cmd, 1, edfExtensions...)
			if err != nil {
				return err
			}
			codec, err := edf.ParseTextCodec(opts.charset)
			if err != nil {
				return err
			}
			base, err := outputBase(args[0], opts.outDir)
			if err != nil {
				return err
			}

			var stdout io.Writer
			if matrix {
				stdout = cmd.Root().Writer
			}
			return writeText(ctx, log, args[0], base, codec, stdout)
		}),
	}
}

// writeText converts input into the four text tables named after base. With
// a non-nil matrix writer every sample is also printed there, one per line.
func writeText(ctx context.Context, log logger.Logger, input, base string, codec edf.TextCodec, matrix io.Writer) (err error) {
	start := time.Now()

	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	er, err := edf.Open(f)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	hdr := er.Header()
	log.Debug("opened input", "path", input, "signals", hdr.SignalCount, "records", hdr.DataRecords, "plus", hdr.Plus())

	headerPath, signalsPath, annotationsPath, dataPath := textout.Paths(base)
	if err := writeFile(headerPath, func(w io.Writer) error { return textout.WriteHeader(w, hdr) }); err != nil {
		return err
	}
	if err := writeFile(signalsPath, func(w io.Writer) error { return textout.WriteSignals(w, hdr) }); err != nil {
		return err
	}

	af, err := os.Create(annotationsPath)
	if err != nil {
		return err
	}
	defer closeFile(af, &err)
	df, err := os.Create(dataPath)
	if err != nil {
		return err
	}
	defer closeFile(df, &err)

	var labels []string
	for _, ch := range hdr.OrdinaryChannels() {
		labels = append(labels, hdr.Signals[ch].Label)
	}
	tables, err := textout.NewTables(af, df, labels)
	if err != nil {
		return err
	}

	d, err := er.Demux(edf.WithTextCodec(codec), edf.WithLogger(log.Slog()))
	if err != nil {
		return err
	}

	var sink edf.Sink = tables
	var collector *edf.Collector
	if matrix != nil {
		collector = &edf.Collector{}
		sink = teeSink{tables, collector}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.Next(sink); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}
	}
	if err := tables.Flush(); err != nil {
		return err
	}

	if collector != nil {
		bw := bufio.NewWriter(matrix)
		for _, v := range collector.Flatten() {
			bw.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
			bw.WriteByte('\n')
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}

	log.Info("wrote text tables",
		"path", dataPath,
		"rows", humanize.Comma(int64(tables.Rows())),
		"annotations", humanize.Comma(int64(tables.Annotations())),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// teeSink forwards everything to each of its sinks.
type teeSink []edf.Sink

func (t teeSink) Annotation(a edf.Annotation) error {
	for _, s := range t {
		if err := s.Annotation(a); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSink) Row(r *edf.Row) error {
	for _, s := range t {
		if err := s.Row(r); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, fn func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)
	return fn(f)
}

// closeFile closes f, reporting the error through errp unless one is
// already set.
func closeFile(f *os.File, errp *error) {
	if err := f.Close(); err != nil && *errp == nil {
		*errp = fmt.Errorf("error closing %s: %w", f.Name(), err)
	}
}
