// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build !linux
// +build !linux

package sysinfo

import (
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/disk"
)

// Mounts reads the live mount table via gopsutil's partition listing
// (getmntinfo and friends under the hood), since there is no
// /proc/self/mounts outside Linux.
func Mounts() ([]MountEntry, error) {
	parts, err := disk.Partitions(true)
	if err != nil {
		return nil, errors.Wrap(err, "sysinfo: list partitions")
	}
	entries := make([]MountEntry, 0, len(parts))
	for _, p := range parts {
		entries = append(entries, MountEntry{
			Device:     p.Device,
			Path:       p.Mountpoint,
			Filesystem: p.Fstype,
			Options:    p.Opts,
		})
	}
	return entries, nil
}
