// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package proc

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// rtSigMin/rtSigMax bound the Linux real-time signal range. The exact
// lower bound (SIGRTMIN) is glibc-reserved and varies by a few values
// across libcs; 34 is the conservative common case.
const (
	rtSigMin = 34
	rtSigMax = 64
)

// waitOpts asks for stop and continue transitions as well as exits.
const waitOpts = unix.WNOHANG | unix.WCONTINUED | unix.WUNTRACED

// procStateFromChar maps the single-character codes in
// /proc/<pid>/stat's third field.
func procStateFromChar(c byte) State {
	switch c {
	case 'R':
		return Running
	case 'S', 'D':
		return Waiting
	case 'T', 't':
		return Stopped
	case 'Z':
		return Zombie
	default:
		return Invalid
	}
}

// processState reads /proc/<pid>/stat directly.
func processState(pid int) (State, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return Invalid, errors.Wrapf(err, "proc: read /proc/%d/stat", pid)
	}
	// The comm field is parenthesized and may itself contain spaces or
	// parens, so split on the last ')' rather than by field index.
	s := string(data)
	idx := strings.LastIndexByte(s, ')')
	if idx < 0 || idx+2 >= len(s) {
		return Invalid, errors.Errorf("proc: malformed /proc/%d/stat", pid)
	}
	fields := strings.Fields(s[idx+2:])
	if len(fields) == 0 {
		return Invalid, errors.Errorf("proc: malformed /proc/%d/stat", pid)
	}
	return procStateFromChar(fields[0][0]), nil
}

// sigqueue sends a real-time queued signal via rt_sigqueueinfo(2),
// carrying value as the signal's payload. golang.org/x/sys/unix does
// not wrap sigqueue itself (it is a glibc convenience over the raw
// syscall), so this builds the kernel siginfo_t by hand: three
// leading int32 header fields (signo, errno, code=SI_QUEUE), then --
// at the platform's natural 8-byte alignment for the sigval union --
// pid, uid and the sigval payload.
func sigqueue(pid, sig, value int) error {
	const siQueue = -1
	var info [128]byte
	*(*int32)(unsafe.Pointer(&info[0])) = int32(sig)
	*(*int32)(unsafe.Pointer(&info[4])) = 0
	*(*int32)(unsafe.Pointer(&info[8])) = siQueue
	*(*int32)(unsafe.Pointer(&info[16])) = int32(os.Getpid())
	*(*uint32)(unsafe.Pointer(&info[20])) = uint32(os.Getuid())
	*(*int32)(unsafe.Pointer(&info[24])) = int32(value)

	_, _, errno := unix.RawSyscall(unix.SYS_RT_SIGQUEUEINFO, uintptr(pid), uintptr(sig), uintptr(unsafe.Pointer(&info[0])))
	if errno != 0 {
		return errors.Wrap(errno, "proc: rt_sigqueueinfo")
	}
	return nil
}
