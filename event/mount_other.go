// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build !linux
// +build !linux

package event

import (
	"time"

	"github.com/reactivo/reactivo"
)

const mountPollInterval = 10 * time.Second

// newMountSource has no /proc/self/mounts readiness mechanism outside
// Linux, so it diffs the table on a repeating Timer (kqueue
// EVFILT_TIMER on the BSDs, the self-pipe source elsewhere) at a
// 10-second cadence.
func newMountSource(rt *reactivo.Runtime, onChange func()) (func(), error) {
	timer, err := NewTimer(rt, mountPollInterval, true)
	if err != nil {
		return nil, err
	}
	timer.Expired.ConnectFree(onChange)
	return func() { timer.Close() }, nil
}
