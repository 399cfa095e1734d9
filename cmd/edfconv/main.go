// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Command edfconv converts EDF, BDF and Nihon Kohden recordings.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := run(context.Background(), os.Args, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return newApp(stdout, stderr).Run(ctx, args)
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	opts := &globalOptions{}

	return &cli.Command{
		Name:      "edfconv",
		Usage:     "Convert EDF, BDF and Nihon Kohden recordings",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     opts.flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			txtCmd(opts),
			nk2edfCmd(opts),
			inspectCmd(opts),
			wavCmd(opts),
		},
	}
}
