// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build !linux && !freebsd && !dragonfly && !darwin && !netbsd && !openbsd
// +build !linux,!freebsd,!dragonfly,!darwin,!netbsd,!openbsd

package event

import "github.com/reactivo/reactivo"

// newProcessSource has no native event source on platforms without
// netlink or kqueue; the portable table-diff poller is the only
// option.
func newProcessSource(rt *reactivo.Runtime, p *Process) (func(), error) {
	return newProcessPollSource(rt, p)
}
