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
	"log/slog"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/OpenPSG/edfconv/internal/logger"
)

// globalOptions holds the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	debug      bool
	charset    string
	outDir     string
}

func (o *globalOptions) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to the config file (default $" + envConfig + " or the user config dir)",
			Destination: &o.configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &o.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &o.logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &o.debug,
		},
	}
}

// action wraps a subcommand: it applies the config file to every flag that
// was not set and attaches a logger tagged with a run id to the context.
func (o *globalOptions) action(fn func(ctx context.Context, cmd *cli.Command, log logger.Logger) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := LoadConfig(o.configPath)
		if err != nil {
			return err
		}
		o.applyConfig(cmd, cfg)

		level := logger.ParseLevel(o.logLevel)
		if o.debug {
			level = slog.LevelDebug
		}
		log := logger.Format(o.logFormat, cmd.Root().ErrWriter, level).With("run", uuid.NewString())

		return fn(logger.WithContext(ctx, log), cmd, log)
	}
}
