// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build !linux && !freebsd && !dragonfly && !darwin && !netbsd && !openbsd
// +build !linux,!freebsd,!dragonfly,!darwin,!netbsd,!openbsd

package poller

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const maxPollFDs = 1024

// pollBackend is the generic POSIX poll(2) fallback used when no native
// multiplexer (epoll, kqueue) is available for the target platform.
type pollBackend struct {
	mu   sync.Mutex
	regs map[int]*registration

	// wakeR/wakeW are a self-pipe always included in the fd set passed
	// to poll(2), the same wakeup shape as the epoll/kqueue backends'
	// eventfd/self-pipe, needed here too since this backend has no
	// native Trigger-equivalent syscall of its own.
	wakeR, wakeW int
	notified     int32
}

func newBackend() (Backend, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, os.NewSyscallError("pipe", err)
	}
	for _, pfd := range fds {
		unix.CloseOnExec(pfd)
		if err := unix.SetNonblock(pfd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, os.NewSyscallError("fcntl", err)
		}
	}
	return &pollBackend{regs: make(map[int]*registration), wakeR: fds[0], wakeW: fds[1]}, nil
}

func (p *pollBackend) Add(fd int, flags Event, cb Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	reg, exists := p.regs[fd]
	if !exists {
		reg = &registration{}
		p.regs[fd] = reg
	}
	reg.flags |= flags
	reg.cb = cb
	return nil
}

func (p *pollBackend) Remove(fd int, flags Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	reg, exists := p.regs[fd]
	if !exists {
		return nil
	}
	reg.flags &^= flags
	if reg.flags == 0 {
		delete(p.regs, fd)
	}
	return nil
}

func toPollEvents(flags Event) int16 {
	var e int16
	if flags&SimplePollReadFlags != 0 {
		e |= unix.POLLIN
	}
	if flags&SimplePollWriteFlags != 0 {
		e |= unix.POLLOUT
	}
	return e
}

func fromPollEvents(revents int16) Event {
	var e Event
	if revents&unix.POLLIN != 0 {
		e |= SimplePollReadFlags
	}
	if revents&unix.POLLOUT != 0 {
		e |= SimplePollWriteFlags
	}
	if revents&unix.POLLERR != 0 {
		e |= EventError
	}
	if revents&unix.POLLHUP != 0 {
		e |= EventDisconnected
	}
	return e
}

func (p *pollBackend) Poll(timeoutMs int) (bool, error) {
	p.mu.Lock()
	if len(p.regs) > maxPollFDs {
		p.mu.Unlock()
		return false, errors.New("poller: too many registered fds for poll(2) fallback")
	}
	fds := make([]unix.PollFd, 0, len(p.regs)+1)
	order := make([]int, 0, len(p.regs)+1)
	for fd, reg := range p.regs {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: toPollEvents(reg.flags)})
		order = append(order, fd)
	}
	wakeIdx := len(fds)
	fds = append(fds, unix.PollFd{Fd: int32(p.wakeR), Events: unix.POLLIN})
	p.mu.Unlock()

	var n int
	var err error
	for {
		n, err = unix.Poll(fds, timeoutMs)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return false, errors.Wrap(os.NewSyscallError("poll", err), "poller: poll")
	}
	if n <= 0 {
		return false, nil
	}

	p.mu.Lock()
	type dispatch struct {
		fd  int
		obs Event
		cb  Callback
	}
	pending := make([]dispatch, 0, n)
	woke := false
	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		if i == wakeIdx {
			woke = true
			continue
		}
		reg, ok := p.regs[order[i]]
		if !ok {
			continue
		}
		pending = append(pending, dispatch{fd: order[i], obs: fromPollEvents(pfd.Revents), cb: reg.cb})
	}
	p.mu.Unlock()

	if woke {
		p.drainTrigger()
	}
	for _, d := range pending {
		if d.cb != nil {
			d.cb(d.fd, d.obs)
		}
	}
	return true, nil
}

// drainTrigger empties the self-pipe and re-arms Trigger.
func (p *pollBackend) drainTrigger() {
	buf := make([]byte, 64)
	for {
		_, err := unix.Read(p.wakeR, buf)
		if err != nil {
			break
		}
	}
	atomic.StoreInt32(&p.notified, 0)
}

// Trigger wakes a blocked poll(2) call by writing to the self-pipe. The
// compare-and-swap coalesces concurrent callers into a single write
// between two Poll wakeups.
func (p *pollBackend) Trigger() error {
	if !atomic.CompareAndSwapInt32(&p.notified, 0, 1) {
		return nil
	}
	for {
		_, err := unix.Write(p.wakeW, []byte{1})
		if err != unix.EINTR {
			if err != nil && err != unix.EAGAIN {
				return os.NewSyscallError("write", err)
			}
			return nil
		}
	}
}

func (p *pollBackend) Close() error {
	unix.Close(p.wakeR)
	unix.Close(p.wakeW)
	return nil
}
