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

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{FatalLevel, "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, WarnLevel)

	l.Debug("debug message")
	l.Info("info message")
	assert.Empty(t, buf.String())

	l.Warn("warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, InfoLevel)

	l.Info("pack complete", String("scid", "deadbeef"), Int("k", 4))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pack complete", entry["message"])
	assert.Equal(t, "deadbeef", entry["scid"])
	assert.Equal(t, float64(4), entry["k"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestWithFieldsAttachesBaseFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, InfoLevel).WithFields(String("run_id", "run-1"))

	l.Info("first line")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry["run_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
}

func TestTextFormatSingleLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, InfoLevel)
	l.SetTextFormat(true)

	l.Info("hello", String("run_id", "run-2"))
	out := buf.String()
	assert.Contains(t, out, "[INFO] hello")
	assert.Contains(t, out, "run_id=run-2")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte{'\n'}))
}
