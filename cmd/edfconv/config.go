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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfig = "EDFCONV_CONFIG"

// Config represents the edfconv configuration file
// (~/.config/edfconv/config.yaml). Its values are defaults for flags that
// are not given on the command line.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Charset   string `yaml:"charset"`
	OutDir    string `yaml:"out_dir"`
}

func defaultConfigPath() string {
	if path := strings.TrimSpace(os.Getenv(envConfig)); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "edfconv", "config.yaml")
}

// LoadConfig reads the config file at path, or at the default location when
// path is empty. A missing default file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return Config{}, nil
	} else if err != nil {
		return Config{}, fmt.Errorf("error reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// applyConfig applies config file defaults to the options whose flag was
// not explicitly set.
func (o *globalOptions) applyConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		o.logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		o.logFormat = cfg.LogFormat
	}
	if cfg.Charset != "" && !c.IsSet("charset") {
		o.charset = cfg.Charset
	}
	if cfg.OutDir != "" && !c.IsSet("out-dir") {
		o.outDir = cfg.OutDir
	}
}
