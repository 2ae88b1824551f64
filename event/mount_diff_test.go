// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reactivo/reactivo/sysinfo"
)

func TestDiffMountsReportsMountedAndUnmounted(t *testing.T) {
	prev := []sysinfo.MountEntry{
		{Device: "sysfs", Path: "/sys"},
		{Device: "proc", Path: "/proc"},
	}
	current := []sysinfo.MountEntry{
		{Device: "proc", Path: "/proc"},
		{Device: "tmpfs", Path: "/tmp"},
	}

	var mounted, unmounted [][2]string
	diffMounts(prev, current,
		func(device, path string) { mounted = append(mounted, [2]string{device, path}) },
		func(device, path string) { unmounted = append(unmounted, [2]string{device, path}) })

	assert.Equal(t, [][2]string{{"tmpfs", "/tmp"}}, mounted)
	assert.Equal(t, [][2]string{{"sysfs", "/sys"}}, unmounted)
}

func TestDiffMountsNoChange(t *testing.T) {
	entries := []sysinfo.MountEntry{{Device: "sysfs", Path: "/sys"}}

	var mounted, unmounted int
	diffMounts(entries, entries,
		func(device, path string) { mounted++ },
		func(device, path string) { unmounted++ })

	assert.Zero(t, mounted)
	assert.Zero(t, unmounted)
}
