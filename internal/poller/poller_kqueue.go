// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build freebsd || dragonfly || darwin || netbsd || openbsd
// +build freebsd dragonfly darwin netbsd openbsd

package poller

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const defaultKevent = 64

func newBackend() (Backend, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("fcntl", err)
	}
	// EVFILT_USER isn't defined on every kqueue platform this backend
	// targets (absent on netbsd/openbsd), so the wakeup primitive is a
	// self-pipe instead: a dedicated read end registered once and never
	// exposed through Add/Remove.
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("pipe", err)
	}
	for _, pfd := range fds {
		unix.CloseOnExec(pfd)
		if err := unix.SetNonblock(pfd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			unix.Close(fd)
			return nil, os.NewSyscallError("fcntl", err)
		}
	}
	var evt unix.Kevent_t
	unix.SetKevent(&evt, fds[0], unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE)
	if _, err := unix.Kevent(fd, []unix.Kevent_t{evt}, nil, nil); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		unix.Close(fd)
		return nil, os.NewSyscallError("kevent", err)
	}
	return &kqueue{
		fd:    fd,
		regs:  make(map[int]*registration),
		evts:  make([]unix.Kevent_t, defaultKevent),
		wakeR: fds[0],
		wakeW: fds[1],
	}, nil
}

type kqueue struct {
	mu   sync.Mutex
	fd   int
	regs map[int]*registration
	evts []unix.Kevent_t

	wakeR, wakeW int
	notified     int32
}

func (k *kqueue) changeFilter(fd int, filter int, add bool) error {
	flags := unix.EV_DELETE
	if add {
		flags = unix.EV_ADD | unix.EV_ENABLE
	}
	var evt unix.Kevent_t
	unix.SetKevent(&evt, fd, filter, flags)
	_, err := unix.Kevent(k.fd, []unix.Kevent_t{evt}, nil, nil)
	if err != nil && !add && err == unix.ENOENT {
		return nil
	}
	return err
}

func (k *kqueue) apply(fd int, old, new Event) error {
	if old&SimplePollReadFlags == 0 && new&SimplePollReadFlags != 0 {
		if err := k.changeFilter(fd, unix.EVFILT_READ, true); err != nil {
			return err
		}
	} else if old&SimplePollReadFlags != 0 && new&SimplePollReadFlags == 0 {
		if err := k.changeFilter(fd, unix.EVFILT_READ, false); err != nil {
			return err
		}
	}
	if old&SimplePollWriteFlags == 0 && new&SimplePollWriteFlags != 0 {
		if err := k.changeFilter(fd, unix.EVFILT_WRITE, true); err != nil {
			return err
		}
	} else if old&SimplePollWriteFlags != 0 && new&SimplePollWriteFlags == 0 {
		if err := k.changeFilter(fd, unix.EVFILT_WRITE, false); err != nil {
			return err
		}
	}
	return nil
}

func (k *kqueue) Add(fd int, flags Event, cb Callback) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	reg, exists := k.regs[fd]
	old := Event(0)
	if exists {
		old = reg.flags
	} else {
		reg = &registration{}
		k.regs[fd] = reg
	}
	reg.flags |= flags
	reg.cb = cb
	if err := k.apply(fd, old, reg.flags); err != nil {
		return errors.Wrap(err, "poller: add")
	}
	return nil
}

func (k *kqueue) Remove(fd int, flags Event) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	reg, exists := k.regs[fd]
	if !exists {
		return nil
	}
	old := reg.flags
	reg.flags &^= flags
	if err := k.apply(fd, old, reg.flags); err != nil {
		return errors.Wrap(err, "poller: remove")
	}
	if reg.flags == 0 {
		delete(k.regs, fd)
	}
	return nil
}

func (k *kqueue) Poll(timeoutMs int) (bool, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}
	var n int
	var err error
	for {
		n, err = unix.Kevent(k.fd, nil, k.evts, ts)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return false, errors.Wrap(os.NewSyscallError("kevent", err), "poller: poll")
	}
	if n <= 0 {
		return false, nil
	}

	k.mu.Lock()
	type dispatch struct {
		fd  int
		obs Event
		cb  Callback
	}
	pending := make([]dispatch, 0, n)
	woke := false
	for i := 0; i < n; i++ {
		ev := k.evts[i]
		fd := int(ev.Ident)
		if fd == k.wakeR {
			woke = true
			continue
		}
		reg, ok := k.regs[fd]
		if !ok {
			continue
		}
		var obs Event
		switch ev.Filter {
		case unix.EVFILT_READ:
			obs |= SimplePollReadFlags
		case unix.EVFILT_WRITE:
			obs |= SimplePollWriteFlags
		}
		if ev.Flags&unix.EV_EOF != 0 {
			obs |= EventDisconnected
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			obs |= EventError
		}
		pending = append(pending, dispatch{fd: fd, obs: obs, cb: reg.cb})
	}
	k.mu.Unlock()

	if woke {
		k.drainTrigger()
	}
	for _, d := range pending {
		if d.cb != nil {
			d.cb(d.fd, d.obs)
		}
	}
	return true, nil
}

// drainTrigger empties the self-pipe and re-arms Trigger.
func (k *kqueue) drainTrigger() {
	buf := make([]byte, 64)
	for {
		_, err := unix.Read(k.wakeR, buf)
		if err != nil {
			break
		}
	}
	atomic.StoreInt32(&k.notified, 0)
}

// Trigger wakes a blocked kevent call by writing to the self-pipe. The
// compare-and-swap coalesces concurrent callers into a single write
// between two Poll wakeups.
func (k *kqueue) Trigger() error {
	if !atomic.CompareAndSwapInt32(&k.notified, 0, 1) {
		return nil
	}
	for {
		_, err := unix.Write(k.wakeW, []byte{1})
		if err != unix.EINTR {
			if err != nil && err != unix.EAGAIN {
				return os.NewSyscallError("write", err)
			}
			return nil
		}
	}
}

func (k *kqueue) Close() error {
	unix.Close(k.wakeR)
	unix.Close(k.wakeW)
	return os.NewSyscallError("close", unix.Close(k.fd))
}
