// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build freebsd || dragonfly || darwin || netbsd || openbsd
// +build freebsd dragonfly darwin netbsd openbsd

package event

import (
	"golang.org/x/sys/unix"

	"github.com/pkg/errors"
)

// newWrapperKqueue opens the dedicated kqueue a typed wrapper arms its
// native filter (EVFILT_VNODE, EVFILT_PROC, EVFILT_TIMER) on. The
// wrapper's kqueue fd, not the watched resource, is what gets
// registered with the runtime's backend.
func newWrapperKqueue() (int, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return -1, errors.Wrap(err, "event: kqueue")
	}
	if _, err := unix.FcntlInt(uintptr(kq), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(kq)
		return -1, errors.Wrap(err, "event: kqueue cloexec")
	}
	return kq, nil
}

// drainWrapperKqueue collects whatever events are pending on kq
// without blocking. The runtime's backend registers kq level-triggered,
// so anything left behind by a short read re-surfaces on the next poll
// turn.
func drainWrapperKqueue(kq int) []unix.Kevent_t {
	evts := make([]unix.Kevent_t, 16)
	ts := unix.Timespec{}
	n, err := unix.Kevent(kq, nil, evts, &ts)
	if err != nil || n <= 0 {
		return nil
	}
	return evts[:n]
}
