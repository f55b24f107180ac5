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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	content := `data: 4
parity: 2
chunk: 1024
overhead: 1.5
log_level: debug
log_format: json`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, d.Data)
	assert.Equal(t, 2, d.Parity)
	assert.Equal(t, 1024, d.Chunk)
	assert.Equal(t, 1.5, d.Overhead)
	assert.Equal(t, "debug", d.LogLevel)
	assert.Equal(t, "json", d.LogFormat)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFileBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data: [not-an-int"), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadEnvFileDoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.env")
	require.NoError(t, os.WriteFile(path, []byte("IKM_HEX=aabb\nSALT_HEX=ccdd\n"), 0o644))

	t.Setenv("IKM_HEX", "preset")
	// register SALT_HEX for restore, then clear it so the load can set it
	t.Setenv("SALT_HEX", "")
	os.Unsetenv("SALT_HEX")

	require.NoError(t, LoadEnvFile(path))

	assert.Equal(t, "preset", os.Getenv("IKM_HEX"))
	assert.Equal(t, "ccdd", os.Getenv("SALT_HEX"))
}
