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

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/internal/poller"
	"github.com/reactivo/reactivo/log"
	"github.com/reactivo/reactivo/sysinfo"
)

// EVFILT_PROC fflags, from <sys/event.h>. Stable kernel ABI across the
// BSDs; spelled out locally because not every platform's unix package
// exports all of them.
const (
	noteProcExit  uint32 = 0x80000000 // NOTE_EXIT
	noteProcFork  uint32 = 0x40000000 // NOTE_FORK
	noteProcExec  uint32 = 0x20000000 // NOTE_EXEC
	noteProcTrack uint32 = 0x00000001 // NOTE_TRACK: auto-register forked children
	noteProcChild uint32 = 0x00000004 // NOTE_CHILD: event came from a tracked fork; parent pid in Data
)

const procFflags = noteProcExit | noteProcFork | noteProcExec | noteProcTrack

// newProcessSource arms an EVFILT_PROC filter per running process on
// its own kqueue and registers that kqueue's fd with the runtime's
// backend. NOTE_TRACK makes the kernel extend the watch to forked
// children automatically (surfaced as NOTE_CHILD events carrying the
// parent pid in Data), so the seed list only needs the processes alive
// at construction time. EPERM/ESRCH while seeding are expected (other
// users' processes, pids that exited mid-scan) and skipped. If the
// kqueue itself cannot be created the generic table-diff poller takes
// over, mirroring the netlink fallback on Linux.
func newProcessSource(rt *reactivo.Runtime, p *Process) (func(), error) {
	kq, err := newWrapperKqueue()
	if err != nil {
		log.Warnf("event: kqueue process filter unavailable, falling back to polling: %v", err)
		return newProcessPollSource(rt, p)
	}

	procs, err := sysinfo.Processes()
	if err != nil {
		unix.Close(kq)
		log.Warnf("event: seed process list, falling back to polling: %v", err)
		return newProcessPollSource(rt, p)
	}
	for _, proc := range procs {
		watchPID(kq, int(proc.PID))
	}

	rt.AddOnLoop(kq, poller.SimplePollReadFlags, func(int, poller.Event) {
		for _, ev := range drainWrapperKqueue(kq) {
			dispatchProcEvent(p, ev)
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

// watchPID registers one EVFILT_PROC filter; errors are ignored, the
// kernel removes the filter itself when the process exits.
func watchPID(kq, pid int) {
	var ev unix.Kevent_t
	unix.SetKevent(&ev, pid, unix.EVFILT_PROC, unix.EV_ADD|unix.EV_ENABLE|unix.EV_CLEAR)
	ev.Fflags = procFflags
	_, _ = unix.Kevent(kq, []unix.Kevent_t{ev}, nil, nil)
}

func dispatchProcEvent(p *Process, ev unix.Kevent_t) {
	pid := int(ev.Ident)
	switch {
	case ev.Fflags&noteProcChild != 0:
		// Auto-registered on a tracked fork: Ident is the child, Data
		// carries the parent.
		p.Forked.Emit(int(ev.Data), pid)
	case ev.Fflags&noteProcExec != 0:
		p.Execed.Emit(pid)
	case ev.Fflags&noteProcExit != 0:
		// Plain NOTE_EXIT carries no portable wait status; the exit code
		// is reported as zero, the same precision the polling fallback
		// offers.
		p.Exited.Emit(pid, 0)
	}
}
