// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package proc

import (
	"os"
	gosignal "os/signal"
	"runtime"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo/metrics"
)

// table is the process-wide pid-indexed registry of live children. It
// is the one piece of process-wide mutable state this package does not
// thread through an explicit context object: SIGCHLD delivery is
// genuinely process-wide
// in the Go runtime (os/signal.Notify has no per-handle scoping), so
// there is exactly one reaper goroutine no matter how many
// reactivo.Runtime instances exist. Each entry still carries its own
// owning Runtime, so transitions enqueue onto the right queue.
var (
	tableMu sync.Mutex
	table   = make(map[int]*Process)

	// orphans holds wait statuses reaped before their Process was
	// registered: a fast child can exit between cmd.Start and register,
	// and Wait4 consumes the status exactly once. register checks here
	// so the transition is delivered instead of dropped.
	orphans = make(map[int]unix.WaitStatus)

	reaperOnce sync.Once
	sigchld    chan os.Signal
)

func register(p *Process) {
	startReaper()
	tableMu.Lock()
	status, reaped := orphans[p.pid]
	if reaped {
		delete(orphans, p.pid)
	} else {
		table[p.pid] = p
	}
	tableMu.Unlock()
	if reaped {
		transition(p, p.pid, status)
	}
}

// startReaper installs the process-wide SIGCHLD handler exactly once.
// Go's runtime already delivers SIGCHLD through a buffered channel
// rather than a raw signal handler, so the waitpid loop runs in normal
// goroutine context and no self-pipe is needed.
func startReaper() {
	reaperOnce.Do(func() {
		sigchld = make(chan os.Signal, 64)
		gosignal.Notify(sigchld, syscall.SIGCHLD)
		go reapLoop()
	})
}

func reapLoop() {
	for range sigchld {
		reapOnce()
	}
}

// reapOnce loops waitpid(-1, WNOHANG|WCONTINUED|WUNTRACED),
// transitioning every matching table entry and enqueuing the
// corresponding signal emission onto that entry's own Runtime.
func reapOnce() {
	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-1, &status, waitOpts, nil)
		if err != nil || pid <= 0 {
			return
		}

		tableMu.Lock()
		p, ok := table[pid]
		if ok && (status.Exited() || status.Signaled()) {
			delete(table, pid)
		}
		if !ok {
			orphans[pid] = status
		}
		tableMu.Unlock()
		if !ok {
			continue
		}

		transition(p, pid, status)
	}
}

// transition applies one reaped wait status to p, closing pipes and
// emitting the matching lifecycle signal.
func transition(p *Process, pid int, status unix.WaitStatus) {
	switch {
	case status.Exited():
		code := status.ExitStatus()
		p.mu.Lock()
		p.state = Finished
		p.mu.Unlock()
		p.closePipes()
		metrics.Add(metrics.ProcFinished, 1)
		p.Finished.Emit(pid, code)
	case status.Signaled():
		sig := int(status.Signal())
		p.mu.Lock()
		p.state = Finished
		p.mu.Unlock()
		p.closePipes()
		metrics.Add(metrics.ProcKilled, 1)
		p.Killed.Emit(pid, sig)
	case status.Stopped():
		p.mu.Lock()
		p.state = Stopped
		p.mu.Unlock()
		p.StoppedSig.Emit(pid)
	case status.Continued():
		p.mu.Lock()
		p.state = Running
		p.mu.Unlock()
		p.Started.Emit(pid)
	}
}

// refreshState re-derives a non-sticky state by reading /proc (Linux)
// or gopsutil elsewhere; Finished and Initializing are sticky and
// never re-queried.
func refreshState(pid int, cached State) State {
	if cached == Finished || cached == Initializing {
		return cached
	}
	s, err := processState(pid)
	if err != nil {
		return Invalid
	}
	return s
}

// sendSignal delivers sig to pid, using a real-time queued signal on
// Linux when sig falls in the RT range, falling back to a plain kill
// otherwise.
func sendSignal(pid, sig, value int) error {
	if runtime.GOOS == "linux" && sig >= rtSigMin && sig <= rtSigMax {
		return sigqueue(pid, sig, value)
	}
	return unix.Kill(pid, unix.Signal(sig))
}
