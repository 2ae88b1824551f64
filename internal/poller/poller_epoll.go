// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package poller

import (
	"encoding/binary"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo/metrics"
)

const (
	rflags = unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLPRI
	wflags = unix.EPOLLOUT
	eflags = unix.EPOLLERR
	hflags = unix.EPOLLHUP | unix.EPOLLRDHUP

	defaultEventCount = 64
)

func newBackend() (Backend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	// efd is the wakeup eventfd: registered once for EPOLLIN and never
	// exposed through Add/Remove, so a Trigger can unblock a Poll
	// that's parked with no fd otherwise ready.
	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("eventfd", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN}
	ev.Fd = int32(efd)
	if err := unix.EpollCtl(fd, unix.EPOLL_CTL_ADD, efd, &ev); err != nil {
		unix.Close(efd)
		unix.Close(fd)
		return nil, os.NewSyscallError("epoll_ctl", err)
	}
	return &epoll{
		fd:   fd,
		efd:  efd,
		regs: make(map[int]*registration),
		evts: make([]unix.EpollEvent, defaultEventCount),
	}, nil
}

type epoll struct {
	mu   sync.Mutex
	fd   int
	efd  int
	regs map[int]*registration
	evts []unix.EpollEvent

	notified int32
}

func toNative(flags Event) uint32 {
	var n uint32
	if flags&SimplePollReadFlags != 0 {
		n |= rflags
	}
	if flags&SimplePollWriteFlags != 0 {
		n |= wflags
	}
	return n
}

func fromNative(n uint32) Event {
	var e Event
	if n&rflags != 0 {
		e |= SimplePollReadFlags
	}
	if n&wflags != 0 {
		e |= SimplePollWriteFlags
	}
	if n&eflags != 0 {
		e |= EventError
	}
	if n&hflags != 0 {
		e |= EventDisconnected
	}
	return e
}

func (ep *epoll) Add(fd int, flags Event, cb Callback) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	reg, exists := ep.regs[fd]
	op := unix.EPOLL_CTL_MOD
	if !exists {
		reg = &registration{}
		ep.regs[fd] = reg
		op = unix.EPOLL_CTL_ADD
	}
	reg.flags |= flags
	reg.cb = cb

	ev := unix.EpollEvent{Events: toNative(reg.flags) | eflags | hflags}
	ev.Fd = int32(fd)
	if err := unix.EpollCtl(ep.fd, op, fd, &ev); err != nil {
		return errors.Wrap(os.NewSyscallError("epoll_ctl", err), "poller: add")
	}
	return nil
}

func (ep *epoll) Remove(fd int, flags Event) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	reg, exists := ep.regs[fd]
	if !exists {
		return nil
	}
	reg.flags &^= flags
	if reg.flags == 0 {
		delete(ep.regs, fd)
		if err := unix.EpollCtl(ep.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && err != unix.ENOENT {
			return errors.Wrap(os.NewSyscallError("epoll_ctl", err), "poller: remove")
		}
		return nil
	}
	ev := unix.EpollEvent{Events: toNative(reg.flags) | eflags | hflags}
	ev.Fd = int32(fd)
	if err := unix.EpollCtl(ep.fd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return errors.Wrap(os.NewSyscallError("epoll_ctl", err), "poller: remove")
	}
	return nil
}

func (ep *epoll) Poll(timeoutMs int) (bool, error) {
	var n int
	var err error
	for {
		n, err = unix.EpollWait(ep.fd, ep.evts, timeoutMs)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return false, errors.Wrap(os.NewSyscallError("epoll_wait", err), "poller: poll")
	}
	metrics.Add(metrics.PollWait, 1)
	metrics.Add(metrics.PollEvents, uint64(n))
	if n <= 0 {
		return false, nil
	}

	ep.mu.Lock()
	type dispatch struct {
		fd  int
		obs Event
		cb  Callback
	}
	pending := make([]dispatch, 0, n)
	woke := false
	for i := 0; i < n; i++ {
		fd := int(ep.evts[i].Fd)
		if fd == ep.efd {
			woke = true
			continue
		}
		reg, ok := ep.regs[fd]
		if !ok {
			continue
		}
		obs := fromNative(ep.evts[i].Events)
		pending = append(pending, dispatch{fd: fd, obs: obs, cb: reg.cb})
	}
	ep.mu.Unlock()

	if woke {
		ep.drainTrigger()
	}
	for _, d := range pending {
		if d.cb != nil {
			d.cb(d.fd, d.obs)
		}
	}
	return true, nil
}

// drainTrigger resets the eventfd counter to zero and re-arms Trigger.
// A single read drains the whole accumulated counter value, so one
// call suffices even if Trigger was called more than once since the
// last Poll.
func (ep *epoll) drainTrigger() {
	buf := make([]byte, 8)
	unix.Read(ep.efd, buf)
	atomic.StoreInt32(&ep.notified, 0)
}

// Trigger wakes a blocked epoll_wait by writing to the eventfd. The
// compare-and-swap coalesces concurrent callers into a single write
// between two Poll wakeups.
func (ep *epoll) Trigger() error {
	if !atomic.CompareAndSwapInt32(&ep.notified, 0, 1) {
		return nil
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, 1)
	if _, err := unix.Write(ep.efd, buf); err != nil && err != unix.EAGAIN {
		return os.NewSyscallError("write", err)
	}
	return nil
}

func (ep *epoll) Close() error {
	unix.Close(ep.efd)
	return os.NewSyscallError("close", unix.Close(ep.fd))
}
