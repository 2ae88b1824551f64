// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build freebsd || dragonfly || darwin || netbsd || openbsd
// +build freebsd dragonfly darwin netbsd openbsd

package event

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/internal/poller"
)

// EVFILT_VNODE fflags, from <sys/event.h>. Stable kernel ABI across
// the BSDs; spelled out locally because not every platform's unix
// package exports all of them.
const (
	noteVnodeDelete uint32 = 0x1  // NOTE_DELETE
	noteVnodeWrite  uint32 = 0x2  // NOTE_WRITE
	noteVnodeExtend uint32 = 0x4  // NOTE_EXTEND
	noteVnodeAttrib uint32 = 0x8  // NOTE_ATTRIB
	noteVnodeRename uint32 = 0x20 // NOTE_RENAME
)

const fileVnodeFflags = noteVnodeWrite | noteVnodeExtend |
	noteVnodeAttrib | noteVnodeDelete | noteVnodeRename

// newFileSource arms an EVFILT_VNODE filter on its own kqueue and
// registers that kqueue's fd -- kqueues are themselves pollable --
// with the runtime's backend, so vnode events surface as ordinary
// readability on the loop goroutine.
func newFileSource(rt *reactivo.Runtime, path string, onChange func(FileFlags)) (func(), error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "event: open %s", path)
	}
	kq, err := newWrapperKqueue()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	var ev unix.Kevent_t
	unix.SetKevent(&ev, fd, unix.EVFILT_VNODE, unix.EV_ADD|unix.EV_CLEAR)
	ev.Fflags = fileVnodeFflags
	if _, err := unix.Kevent(kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		unix.Close(kq)
		unix.Close(fd)
		return nil, errors.Wrap(err, "event: kevent add vnode")
	}

	rt.AddOnLoop(kq, poller.SimplePollReadFlags, func(int, poller.Event) {
		for _, ev := range drainWrapperKqueue(kq) {
			if flags := vnodeFlags(ev.Fflags); flags != 0 {
				onChange(flags)
			}
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
		unix.Close(fd)
	}, nil
}

func vnodeFlags(fflags uint32) FileFlags {
	var flags FileFlags
	if fflags&(noteVnodeWrite|noteVnodeExtend) != 0 {
		flags |= FileWriteEvent
	}
	if fflags&noteVnodeAttrib != 0 {
		flags |= FileAttributeMod
	}
	if fflags&noteVnodeRename != 0 {
		flags |= FileMoved
	}
	if fflags&noteVnodeDelete != 0 {
		flags |= FileDeleted
	}
	return flags
}
