// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build !linux
// +build !linux

package sysinfo

// Modules has no portable equivalent of /proc/modules outside Linux;
// kldstat-style per-kernel paths are not implemented.
func Modules() ([]ModuleInfo, error) {
	return nil, ErrUnsupported
}
