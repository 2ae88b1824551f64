// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package event

import (
	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/signal"
)

// Process watches system-wide process lifecycle events -- exec, exit,
// fork -- as distinct from package proc, which only manages children
// this program itself spawned. The native source is the Linux netlink
// Proc Connector when CAP_NET_ADMIN is available, or kqueue
// EVFILT_PROC on the BSDs; either falls back to a periodic
// sysinfo.Processes() diff when the native source cannot be set up.
type Process struct {
	*signal.Object

	// Execed fires with the pid of a process that just exec'd.
	Execed *signal.Signal1[int]
	// Exited fires with (pid, exitCode) for a normal exit.
	Exited *signal.Signal2[int, int]
	// Killed fires with (pid, signal) for a signal-terminated process.
	Killed *signal.Signal2[int, int]
	// Forked fires with (parentPID, childPID).
	Forked *signal.Signal2[int, int]

	closeFn func()
}

// NewProcess constructs and arms a Process watcher against rt's loop.
func NewProcess(rt *reactivo.Runtime) (*Process, error) {
	p := &Process{
		Object: signal.NewObject(),
		Execed: signal.NewSignal1[int](rt.Queue()),
		Exited: signal.NewSignal2[int, int](rt.Queue()),
		Killed: signal.NewSignal2[int, int](rt.Queue()),
		Forked: signal.NewSignal2[int, int](rt.Queue()),
	}
	closeFn, err := newProcessSource(rt, p)
	if err != nil {
		return nil, err
	}
	p.closeFn = closeFn
	return p, nil
}

// Close tears down the native source.
func (p *Process) Close() {
	if p.closeFn != nil {
		p.closeFn()
		p.closeFn = nil
	}
	p.Object.Close()
}
