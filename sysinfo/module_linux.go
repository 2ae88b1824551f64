// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package sysinfo

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Modules reads /proc/modules, one line per loaded module:
// name size use_count dependents state address.
func Modules() ([]ModuleInfo, error) {
	f, err := os.Open("/proc/modules")
	if err != nil {
		return nil, errors.Wrap(err, "sysinfo: open /proc/modules")
	}
	defer f.Close()

	var modules []ModuleInfo
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}
		size, _ := strconv.ParseUint(fields[1], 10, 64)
		useCount, _ := strconv.Atoi(fields[2])
		var deps []string
		if fields[3] != "-" {
			deps = strings.Split(strings.TrimSuffix(fields[3], ","), ",")
		}
		modules = append(modules, ModuleInfo{
			Name:       fields[0],
			SizeBytes:  size,
			UseCount:   useCount,
			Dependents: deps,
			State:      fields[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "sysinfo: scan /proc/modules")
	}
	return modules, nil
}
