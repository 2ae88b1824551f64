// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package sysinfo

import "errors"

// ErrUnsupported is returned by platform-specific introspection calls
// (Modules on non-Linux) that have no portable equivalent -- not
// fatal, reported so the caller can fall back or skip.
var ErrUnsupported = errors.New("sysinfo: unsupported on this platform")

// ModuleInfo is one loaded kernel module, read from /proc/modules
// (the stable text interface) rather than the raw
// query_module/init_module syscalls.
type ModuleInfo struct {
	Name       string   `yaml:"name"`
	SizeBytes  uint64   `yaml:"size_bytes"`
	UseCount   int      `yaml:"use_count"`
	Dependents []string `yaml:"dependents"`
	State      string   `yaml:"state"`
}
