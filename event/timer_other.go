// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build !linux && !freebsd && !dragonfly && !darwin && !netbsd && !openbsd
// +build !linux,!freebsd,!dragonfly,!darwin,!netbsd,!openbsd

package event

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/internal/poller"
)

// newTimerSource is the generic fallback for platforms with neither
// timerfd nor kqueue: a time.AfterFunc/time.Ticker timer that wakes
// the loop through a self-pipe. The Go timer runs the callback on its
// own goroutine; only the single byte write into the pipe crosses
// into poller-callback territory.
func newTimerSource(rt *reactivo.Runtime, d time.Duration, repeat bool, onFire func()) (func(), error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "event: timer self-pipe")
	}
	readFD, writeFD := int(r.Fd()), int(w.Fd())
	unix.CloseOnExec(readFD)
	unix.CloseOnExec(writeFD)
	if err := unix.SetNonblock(readFD, true); err != nil {
		r.Close()
		w.Close()
		return nil, errors.Wrap(err, "event: timer self-pipe nonblock")
	}

	rt.AddOnLoop(readFD, poller.SimplePollReadFlags, func(fd int, observed poller.Event) {
		var buf [64]byte
		for {
			if _, err := unix.Read(readFD, buf[:]); err != nil {
				break
			}
		}
		onFire()
	})

	wake := func() { unix.Write(writeFD, []byte{0}) }

	var stopSource func()
	if repeat {
		ticker := time.NewTicker(d)
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-ticker.C:
					wake()
				case <-done:
					return
				}
			}
		}()
		stopSource = func() {
			ticker.Stop()
			close(done)
		}
	} else {
		timer := time.AfterFunc(d, wake)
		stopSource = func() { timer.Stop() }
	}

	closed := false
	return func() {
		if closed {
			return
		}
		closed = true
		stopSource()
		rt.RemoveOnLoop(readFD, poller.SimplePollReadFlags)
		r.Close()
		w.Close()
	}, nil
}
