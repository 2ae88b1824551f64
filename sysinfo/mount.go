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

// MountEntry is one row of the mount table.
type MountEntry struct {
	Device     string   `yaml:"device"`
	Path       string   `yaml:"path"`
	Filesystem string   `yaml:"filesystem"`
	Options    []string `yaml:"options"`
}

func mountsFromFile(path string) ([]MountEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "sysinfo: open mount table")
	}
	defer f.Close()

	var entries []MountEntry
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
		entries = append(entries, MountEntry{
			Device:     unescapeMountField(fields[0]),
			Path:       unescapeMountField(fields[1]),
			Filesystem: fields[2],
			Options:    strings.Split(fields[3], ","),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "sysinfo: scan mount table")
	}
	return entries, nil
}

// unescapeMountField decodes the octal escapes (\040 for space, etc.)
// the kernel uses in /proc/self/mounts for paths containing
// whitespace.
func unescapeMountField(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// MountsEqual reports whether two mount tables contain the same
// entries, order-independent. Used by event.Mount's poll fallback: an
// unchanged table across polls must emit zero signals.
func MountsEqual(a, b []MountEntry) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, e := range a {
		seen[e.Device+"\x00"+e.Path]++
	}
	for _, e := range b {
		key := e.Device + "\x00" + e.Path
		if seen[key] == 0 {
			return false
		}
		seen[key]--
	}
	return true
}
