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

func writeMounts(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mounts")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestMountsFromFileParsesFields(t *testing.T) {
	path := writeMounts(t, "sysfs /sys sysfs rw,nosuid,nodev 0 0\n"+
		"/dev/sda1 /boot\\040data ext4 rw,relatime 0 0\n")

	entries, err := mountsFromFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "sysfs", entries[0].Device)
	assert.Equal(t, "/sys", entries[0].Path)
	assert.Equal(t, "sysfs", entries[0].Filesystem)
	assert.Equal(t, []string{"rw", "nosuid", "nodev"}, entries[0].Options)

	assert.Equal(t, "/boot data", entries[1].Path)
}

func TestMountsFromFileSkipsMalformedLines(t *testing.T) {
	path := writeMounts(t, "short line\nsysfs /sys sysfs rw 0 0\n")

	entries, err := mountsFromFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/sys", entries[0].Path)
}

func TestMountsEqualIgnoresOrder(t *testing.T) {
	a := []MountEntry{
		{Device: "sysfs", Path: "/sys", Filesystem: "sysfs"},
		{Device: "proc", Path: "/proc", Filesystem: "proc"},
	}
	b := []MountEntry{
		{Device: "proc", Path: "/proc", Filesystem: "proc"},
		{Device: "sysfs", Path: "/sys", Filesystem: "sysfs"},
	}
	assert.True(t, MountsEqual(a, b))

	b[0].Path = "/proc2"
	assert.False(t, MountsEqual(a, b))
}

func TestUnescapeMountField(t *testing.T) {
	assert.Equal(t, "/boot data", unescapeMountField("/boot\\040data"))
	assert.Equal(t, "/sys", unescapeMountField("/sys"))
}
