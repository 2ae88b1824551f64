// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package sysinfo

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FSEntry is one static /etc/fstab row.
type FSEntry struct {
	Device        string   `yaml:"device"`
	Path          string   `yaml:"path"`
	Filesystems   []string `yaml:"filesystems"`
	Options       []string `yaml:"options"`
	DumpFrequency int      `yaml:"dump_frequency"`
	Pass          int      `yaml:"pass"`
}

// FSTable reads /etc/fstab, the static configured-mounts table (as
// distinct from Mounts, the live kernel-reported table).
func FSTable() ([]FSEntry, error) {
	return fstabFromFile("/etc/fstab")
}

func fstabFromFile(path string) ([]FSEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "sysinfo: open fstab")
	}
	defer f.Close()

	var entries []FSEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		entry := FSEntry{
			Device:      fields[0],
			Path:        fields[1],
			Filesystems: strings.Split(fields[2], ","),
			Options:     strings.Split(fields[3], ","),
		}
		if len(fields) > 4 {
			entry.DumpFrequency, _ = strconv.Atoi(fields[4])
		}
		if len(fields) > 5 {
			entry.Pass, _ = strconv.Atoi(fields[5])
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "sysinfo: scan fstab")
	}
	return entries, nil
}
