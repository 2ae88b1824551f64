// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package event

import (
	"os"

	"github.com/pkg/errors"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/internal/poller"
)

// newMountSource registers /proc/self/mounts for readiness with the
// runtime's epoll backend. The kernel marks this file's fd readable
// (via EPOLLPRI, included in internal/poller's epoll read flags) when
// the mount table changes, so the callback only needs to re-diff --
// no seek/reread bookkeeping of the fd's own content is required.
func newMountSource(rt *reactivo.Runtime, onChange func()) (func(), error) {
	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		return nil, errors.Wrap(err, "event: open mount table")
	}
	fd := int(f.Fd())

	rt.AddOnLoop(fd, poller.SimplePollReadFlags, func(fd int, observed poller.Event) {
		onChange()
	})

	closed := false
	return func() {
		if closed {
			return
		}
		closed = true
		rt.RemoveOnLoop(fd, poller.SimplePollReadFlags)
		f.Close()
	}, nil
}
