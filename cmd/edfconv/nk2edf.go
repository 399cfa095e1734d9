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
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/OpenPSG/edfconv/internal/logger"
	"github.com/OpenPSG/edfconv/nihonkohden"
)

func nk2edfCmd(opts *globalOptions) *cli.Command {
	var noAnnotations bool

	return &cli.Command{
		Name:      "nk2edf",
		Usage:     "Convert a Nihon Kohden .eeg recording into one EDF+ file per waveform block",
		ArgsUsage: "<file.eeg>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "no-annotations",
				Usage:       "write plain EDF without the .log events and .pnt patient data",
				Destination: &noAnnotations,
			},
		},
		Action: opts.action(func(ctx context.Context, cmd *cli.Command, log logger.Logger) error {
			args, err := inputArgs(cmd, 1, eegExtensions...)
			if err != nil {
				return err
			}

			start := time.Now()
			s, err := nihonkohden.Load(args[0], !noAnnotations, log.Slog())
			if err != nil {
				return err
			}
			defer s.Close()

			log.Debug("opened recording",
				"path", args[0],
				"device", string(s.Recording.Device),
				"blocks", len(s.Recording.Blocks))

			written, err := s.ConvertAll(ctx)
			if err != nil {
				return err
			}

			log.Info("conversion finished",
				"files", humanize.Comma(int64(len(written))),
				"elapsed", time.Since(start).Round(time.Millisecond))
			return nil
		}),
	}
}
