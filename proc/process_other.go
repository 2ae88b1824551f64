// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build !linux
// +build !linux

package proc

import (
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// rtSigMin/rtSigMax are unused on this platform: sendSignal only takes
// the real-time-queued path when runtime.GOOS == "linux", since
// sigqueue(3)'s RT semantics are not portably exposed elsewhere (BSD
// queued signals use a different, kqueue-observed mechanism entirely).
const (
	rtSigMin = 0
	rtSigMax = 0
)

// waitOpts omits WCONTINUED, which not every non-Linux libc exposes;
// continue transitions are then simply not observed on those systems.
const waitOpts = unix.WNOHANG | unix.WUNTRACED

// sigqueue degrades to a plain kill; rt_sigqueueinfo has no portable
// equivalent outside Linux.
func sigqueue(pid, sig, value int) error {
	return unix.Kill(pid, unix.Signal(sig))
}

// processState uses gopsutil, matching sysinfo.Process's cross-platform
// backend, since there is no /proc on BSD/Darwin.
func processState(pid int) (State, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return Invalid, errors.Wrapf(err, "proc: process %d", pid)
	}
	statuses, err := p.Status()
	if err != nil || len(statuses) == 0 {
		return Invalid, errors.Wrapf(err, "proc: status %d", pid)
	}
	switch statuses[0] {
	case "running":
		return Running, nil
	case "sleep", "idle", "wait":
		return Waiting, nil
	case "stop":
		return Stopped, nil
	case "zombie":
		return Zombie, nil
	default:
		return Invalid, nil
	}
}
