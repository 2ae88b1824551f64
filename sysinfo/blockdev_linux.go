// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package sysinfo

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const defaultProbeBlockSize = 1024

// BlockDevices enumerates /sys/block entries and runs DetectExt
// against each /dev/<name> node, skipping devices whose superblock
// does not carry the ext2/3/4/jbd magic. Devices that cannot be opened
// (permissions, removed between listing and read) are skipped rather
// than failing the whole scan.
func BlockDevices() ([]BlockDevice, error) {
	names, err := os.ReadDir("/sys/block")
	if err != nil {
		return nil, errors.Wrap(err, "sysinfo: read /sys/block")
	}

	var devices []BlockDevice
	for _, ent := range names {
		path := filepath.Join("/dev", ent.Name())
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		dev, ok, err := DetectExt(f, defaultProbeBlockSize)
		f.Close()
		if err != nil || !ok {
			continue
		}
		dev.Path = path
		devices = append(devices, *dev)
	}
	return devices, nil
}
