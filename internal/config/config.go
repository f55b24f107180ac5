// Copyright (C) 2025 blocknet
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads the optional profile-default configuration file and
// the optional developer-convenience dotenv file consulted by cmd/s3p.
// Neither is required: every flag they can set has a CLI equivalent, and
// no environment variable is read unless --env-file is passed.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults holds default CLI flag values an operator can pin once in a
// profile file instead of repeating on every invocation.
type Defaults struct {
	Data      int     `yaml:"data"`
	Parity    int     `yaml:"parity"`
	Chunk     int     `yaml:"chunk"`
	Overhead  float64 `yaml:"overhead"`
	LogLevel  string  `yaml:"log_level"`
	LogFormat string  `yaml:"log_format"`
}

// LoadFromFile reads a YAML defaults file. It is never required by a
// command: absent flags simply keep their built-in defaults.
func LoadFromFile(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	d := &Defaults{}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	return d, nil
}

// LoadEnvFile loads a dotenv file into the process environment without
// overwriting variables already set. It is only ever called when --env-file
// is explicitly passed; no command reads an environment variable otherwise.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}
