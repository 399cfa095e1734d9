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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"golang.org/x/exp/slices"

	"github.com/OpenPSG/edfconv/edf"
	"github.com/OpenPSG/edfconv/internal/logger"
	"github.com/OpenPSG/edfconv/nihonkohden"
)

type signalSummary struct {
	Index            int     `json:"index"`
	Label            string  `json:"label"`
	Dimension        string  `json:"dimension,omitempty"`
	PhysicalMin      float64 `json:"physical_min"`
	PhysicalMax      float64 `json:"physical_max"`
	DigitalMin       int     `json:"digital_min"`
	DigitalMax       int     `json:"digital_max"`
	SamplesPerRecord int     `json:"samples_per_record"`
	SampleRate       float64 `json:"sample_rate"`
	Annotation       bool    `json:"annotation,omitempty"`
}

type blockSummary struct {
	Name       string    `json:"name"`
	Start      time.Time `json:"start"`
	SampleRate int       `json:"sample_rate"`
	Channels   int       `json:"channels"`
	Records    int       `json:"records"`
	Error      string    `json:"error,omitempty"`
}

type fileSummary struct {
	Path        string          `json:"path"`
	Size        int64           `json:"size"`
	Format      string          `json:"format"`
	PatientID   string          `json:"patient_id,omitempty"`
	RecordingID string          `json:"recording_id,omitempty"`
	Start       *time.Time      `json:"start,omitempty"`
	Records     int             `json:"records,omitempty"`
	RecordSecs  float64         `json:"record_seconds,omitempty"`
	Signals     []signalSummary `json:"signals,omitempty"`
	Device      string          `json:"device,omitempty"`
	Blocks      []blockSummary  `json:"blocks,omitempty"`
}

func inspectCmd(opts *globalOptions) *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarize the header of an EDF, BDF or Nihon Kohden file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the summary as JSON",
				Destination: &asJSON,
			},
		},
		Action: opts.action(func(ctx context.Context, cmd *cli.Command, log logger.Logger) error {
			args, err := inputArgs(cmd, 1, append(slices.Clone(edfExtensions), eegExtensions...)...)
			if err != nil {
				return err
			}

			var summary *fileSummary
			if slices.Contains(eegExtensions, filepath.Ext(args[0])) {
				summary, err = inspectRecording(args[0])
			} else {
				summary, err = inspectEDF(args[0])
			}
			if err != nil {
				return err
			}
			log.Debug("inspected", "path", args[0], "format", summary.Format)

			w := cmd.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return printSummary(w, summary)
		}),
	}
}

func inspectEDF(path string) (*fileSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	hdr, err := edf.DecodeHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s := &fileSummary{
		Path:        path,
		Size:        stat.Size(),
		Format:      formatName(hdr),
		PatientID:   hdr.PatientID,
		RecordingID: hdr.RecordingID,
		Start:       &hdr.StartTime,
		Records:     hdr.DataRecords,
		RecordSecs:  hdr.RecordSeconds(),
	}
	for i, sig := range hdr.Signals {
		ss := signalSummary{
			Index:            i + 1,
			Label:            sig.Label,
			Dimension:        sig.PhysicalDimension,
			PhysicalMin:      sig.PhysicalMin,
			PhysicalMax:      sig.PhysicalMax,
			DigitalMin:       sig.DigitalMin,
			DigitalMax:       sig.DigitalMax,
			SamplesPerRecord: sig.SamplesPerRecord,
			Annotation:       sig.Annotation,
		}
		if hdr.RecordSeconds() > 0 {
			ss.SampleRate = float64(sig.SamplesPerRecord) / hdr.RecordSeconds()
		}
		s.Signals = append(s.Signals, ss)
	}
	return s, nil
}

func formatName(hdr *edf.Header) string {
	name := "EDF"
	if hdr.Version == edf.VersionBDF {
		name = "BDF"
	}
	if hdr.Plus() {
		name += "+C"
		if !hdr.Continuous() {
			name = name[:len(name)-1] + "D"
		}
	}
	return name
}

func inspectRecording(path string) (*fileSummary, error) {
	f, err := nihonkohden.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := nihonkohden.Open(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s := &fileSummary{
		Path:   path,
		Size:   int64(len(f.Data)),
		Format: "Nihon Kohden",
		Device: string(rec.Device),
	}
	for _, b := range rec.Blocks {
		bs := blockSummary{Name: fmt.Sprintf("%d-%d", b.Control+1, b.Index+1)}
		wf, err := rec.Waveform(b)
		if err != nil {
			bs.Error = err.Error()
		} else {
			bs.Start = wf.Start
			bs.SampleRate = wf.SampleRate
			bs.Channels = wf.Channels()
			bs.Records = wf.Records
		}
		s.Blocks = append(s.Blocks, bs)
	}
	return s, nil
}

func printSummary(w io.Writer, s *fileSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "File:\t%s (%s)\n", s.Path, humanize.Bytes(uint64(s.Size)))
	fmt.Fprintf(tw, "Format:\t%s\n", s.Format)
	if s.Device != "" {
		fmt.Fprintf(tw, "Device:\t%s\n", s.Device)
		for _, b := range s.Blocks {
			if b.Error != "" {
				fmt.Fprintf(tw, "Block %s:\t%s\n", b.Name, b.Error)
				continue
			}
			duration := time.Duration(b.Records) * time.Second / nihonkohden.RecordsPerSecond
			fmt.Fprintf(tw, "Block %s:\t%s, %d Hz, %d channels, %s\n",
				b.Name, b.Start.Format(time.DateTime), b.SampleRate, b.Channels, duration)
		}
		return tw.Flush()
	}

	fmt.Fprintf(tw, "Patient:\t%s\n", s.PatientID)
	fmt.Fprintf(tw, "Recording:\t%s\n", s.RecordingID)
	if s.Start != nil {
		fmt.Fprintf(tw, "Start:\t%s\n", s.Start.Format(time.DateTime))
	}
	duration := time.Duration(float64(s.Records) * s.RecordSecs * float64(time.Second))
	fmt.Fprintf(tw, "Records:\t%s x %gs (%s)\n", humanize.Comma(int64(s.Records)), s.RecordSecs, duration)
	fmt.Fprintf(tw, "Signals:\t%d\n", len(s.Signals))
	for _, sig := range s.Signals {
		if sig.Annotation {
			fmt.Fprintf(tw, "  %d\t%s\tannotations\n", sig.Index, sig.Label)
			continue
		}
		fmt.Fprintf(tw, "  %d\t%s\t%g Hz\t%g..%g %s\n",
			sig.Index, sig.Label, sig.SampleRate, sig.PhysicalMin, sig.PhysicalMax, sig.Dimension)
	}
	return tw.Flush()
}
