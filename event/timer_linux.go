// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package event

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/internal/poller"
)

// newTimerSource arms a timerfd and registers it for readability with
// the runtime's epoll backend. A non-repeating timer carries a zero
// Interval, which the kernel treats as "fire once".
func newTimerSource(rt *reactivo.Runtime, d time.Duration, repeat bool, onFire func()) (func(), error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, errors.Wrap(err, "event: timerfd_create")
	}

	interval := time.Duration(0)
	if repeat {
		interval = d
	}
	spec := unix.ItimerSpec{
		Value:    unix.NsecToTimespec(d.Nanoseconds()),
		Interval: unix.NsecToTimespec(interval.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "event: timerfd_settime")
	}

	rt.AddOnLoop(fd, poller.SimplePollReadFlags, func(fd int, observed poller.Event) {
		var buf [8]byte
		if _, err := unix.Read(fd, buf[:]); err != nil {
			return
		}
		onFire()
	})

	closed := false
	return func() {
		if closed {
			return
		}
		closed = true
		rt.RemoveOnLoop(fd, poller.SimplePollReadFlags)
		unix.Close(fd)
	}, nil
}
