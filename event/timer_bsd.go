// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build freebsd || dragonfly || darwin || netbsd || openbsd
// +build freebsd dragonfly darwin netbsd openbsd

package event

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/internal/poller"
)

// timerIdent is the arbitrary kevent identifier the single EVFILT_TIMER
// filter of a Timer is armed under; each Timer owns its own kqueue, so
// the value never collides.
const timerIdent = 1

// newTimerSource arms an EVFILT_TIMER filter on its own kqueue and
// registers that kqueue's fd for readability with the runtime's
// backend. EVFILT_TIMER's default unit is milliseconds; EV_ONESHOT
// covers the non-repeating case.
func newTimerSource(rt *reactivo.Runtime, d time.Duration, repeat bool, onFire func()) (func(), error) {
	kq, err := newWrapperKqueue()
	if err != nil {
		return nil, err
	}

	flags := unix.EV_ADD | unix.EV_ENABLE
	if !repeat {
		flags |= unix.EV_ONESHOT
	}
	var ev unix.Kevent_t
	unix.SetKevent(&ev, timerIdent, unix.EVFILT_TIMER, flags)
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1 // zero means "as fast as possible", never what a caller wants
	}
	ev.Data = ms
	if _, err := unix.Kevent(kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		unix.Close(kq)
		return nil, errors.Wrap(err, "event: kevent add timer")
	}

	rt.AddOnLoop(kq, poller.SimplePollReadFlags, func(int, poller.Event) {
		if len(drainWrapperKqueue(kq)) > 0 {
			onFire()
		}
	})

	closed := false
	return func() {
		if closed {
			return
		}
		closed = true
		rt.RemoveOnLoop(kq, poller.SimplePollReadFlags)
		unix.Close(kq)
	}, nil
}
