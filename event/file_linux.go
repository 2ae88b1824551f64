// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package event

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/internal/poller"
)

// Linux inotify event flag constants, matching <sys/inotify.h>.
const (
	inCreate     uint32 = 0x100
	inClosew     uint32 = 0x8
	inAttrib     uint32 = 0x4
	inDelete     uint32 = 0x200
	inMovedFrom  uint32 = 0x40
	inMovedTo    uint32 = 0x80
	inMoveSelf   uint32 = 0x800
	inDeleteSelf uint32 = 0x400
	inIsDir      uint32 = 0x40000000
)

const fileWatchMask = inCreate | inClosew | inAttrib | inDelete |
	inMovedFrom | inMovedTo | inMoveSelf | inDeleteSelf

var inotifyEventSize = int(unsafe.Sizeof(unix.InotifyEvent{}))

// newFileSource registers one inotify watch and demultiplexes its
// events through the runtime's backend.
func newFileSource(rt *reactivo.Runtime, path string, onChange func(FileFlags)) (func(), error) {
	ifd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, errors.Wrap(err, "event: inotify_init1")
	}
	if _, err := unix.InotifyAddWatch(ifd, path, fileWatchMask); err != nil {
		unix.Close(ifd)
		return nil, errors.Wrap(err, "event: inotify_add_watch")
	}

	rt.AddOnLoop(ifd, poller.SimplePollReadFlags, func(fd int, observed poller.Event) {
		buf := make([]byte, 4096)
		n, err := unix.Read(ifd, buf)
		if err != nil || n <= 0 {
			return
		}
		dispatchInotify(buf[:n], onChange)
	})

	closed := false
	return func() {
		if closed {
			return
		}
		closed = true
		rt.RemoveOnLoop(ifd, poller.SimplePollReadFlags)
		unix.Close(ifd)
	}, nil
}

func dispatchInotify(buf []byte, onChange func(FileFlags)) {
	evSize := inotifyEventSize
	for offset := 0; offset+evSize <= len(buf); {
		ev := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		offset += evSize
		if ev.Len > 0 {
			if offset+int(ev.Len) > len(buf) {
				break
			}
			offset += int(ev.Len)
		}

		if ev.Mask&inIsDir != 0 {
			continue
		}

		var flags FileFlags
		switch {
		case ev.Mask&(inCreate|inMovedTo) != 0:
			flags = FileWriteEvent
		case ev.Mask&inClosew != 0:
			flags = FileWriteEvent
		case ev.Mask&inAttrib != 0:
			flags = FileAttributeMod
		case ev.Mask&(inMovedFrom|inMoveSelf) != 0:
			flags = FileMoved
		case ev.Mask&(inDelete|inDeleteSelf) != 0:
			flags = FileDeleted
		default:
			continue
		}
		onChange(flags)
	}
}
