// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package sysinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFstabFromFileParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fstab")
	contents := "# comment line\n" +
		"\n" +
		"/dev/sda1 / ext4 defaults,noatime 0 1\n" +
		"tmpfs /tmp tmpfs,ramfs rw,nosuid 0 0\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	entries, err := fstabFromFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "/dev/sda1", entries[0].Device)
	assert.Equal(t, "/", entries[0].Path)
	assert.Equal(t, []string{"ext4"}, entries[0].Filesystems)
	assert.Equal(t, []string{"defaults", "noatime"}, entries[0].Options)
	assert.Equal(t, 0, entries[0].DumpFrequency)
	assert.Equal(t, 1, entries[0].Pass)

	assert.Equal(t, []string{"tmpfs", "ramfs"}, entries[1].Filesystems)
}

func TestFstabFromFileSkipsShortLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fstab")
	require.NoError(t, os.WriteFile(path, []byte("tmpfs /tmp tmpfs\n"), 0o644))

	entries, err := fstabFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
