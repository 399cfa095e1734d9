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
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/OpenPSG/edfconv/edf"
	"github.com/OpenPSG/edfconv/internal/logger"
	"github.com/OpenPSG/edfconv/internal/wavout"
)

func wavCmd(opts *globalOptions) *cli.Command {
	var channel int

	return &cli.Command{
		Name:      "wav",
		Usage:     "Export one signal of an EDF or BDF file as a mono WAV file",
		ArgsUsage: "<file.edf|file.bdf> <out.wav>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "channel",
				Aliases:     []string{"c"},
				Usage:       "signal number as listed by inspect, starting at 1",
				Value:       1,
				Destination: &channel,
			},
		},
		Action: opts.action(func(ctx context.Context, cmd *cli.Command, log logger.Logger) (err error) {
			args, err := inputArgs(cmd, 2, edfExtensions...)
			if err != nil {
				return err
			}
			if err := checkExtension(args[1], ".wav", ".WAV"); err != nil {
				return err
			}

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			er, err := edf.Open(in)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer closeFile(out, &err)

			n, err := wavout.Export(out, er, channel-1)
			if err != nil {
				return err
			}

			log.Info("wrote wav file",
				"path", args[1],
				"signal", er.Header().Signals[channel-1].Label,
				"samples", humanize.Comma(int64(n)))
			return nil
		}),
	}
}
