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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/exp/slices"
)

var (
	edfExtensions = []string{".edf", ".EDF", ".bdf", ".BDF"}
	eegExtensions = []string{".eeg", ".EEG"}
)

// inputArgs returns the n positional arguments of cmd. The first one must
// carry one of exts.
func inputArgs(cmd *cli.Command, n int, exts ...string) ([]string, error) {
	if cmd.Args().Len() != n {
		return nil, fmt.Errorf("expected %d argument(s), got %d, usage: %s %s", n, cmd.Args().Len(), cmd.Name, cmd.ArgsUsage)
	}
	args := cmd.Args().Slice()
	if err := checkExtension(args[0], exts...); err != nil {
		return nil, err
	}
	return args, nil
}

func checkExtension(path string, exts ...string) error {
	if len(exts) == 0 || slices.Contains(exts, filepath.Ext(path)) {
		return nil
	}
	return fmt.Errorf("filename extension of %s must be one of %s", path, strings.Join(exts, ", "))
}

// outputBase returns the path the output names of input are derived from,
// moved into outDir if set. outDir is created when missing.
func outputBase(input, outDir string) (string, error) {
	outDir = strings.TrimSpace(outDir)
	if outDir == "" {
		return input, nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating output directory: %w", err)
	}
	return filepath.Join(outDir, filepath.Base(input)), nil
}
