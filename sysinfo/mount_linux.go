// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package sysinfo

// Mounts reads the live mount table from /proc/self/mounts, which the
// kernel keeps current without a separate syscall; it is also what
// event.Mount watches for change readiness.
func Mounts() ([]MountEntry, error) {
	return mountsFromFile("/proc/self/mounts")
}
