// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package reactivo is the application loop: the single consumer
// goroutine that owns the poller.Backend and drains the queue.Queue,
// wrapped in an explicit Runtime context object rather than
// process-wide globals.
package reactivo

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/reactivo/reactivo/internal/poller"
	"github.com/reactivo/reactivo/log"
	"github.com/reactivo/reactivo/metrics"
	"github.com/reactivo/reactivo/queue"
)

// Runtime is one process-wide event loop context: one poller.Backend,
// one queue.Queue, one run flag, one exit code. Callers normally
// construct a single Runtime in main() -- but nothing prevents constructing more than
// one for embedding or tests, since every piece of state lives on the
// struct rather than in a package-level global.
type Runtime struct {
	opts    options
	backend poller.Backend
	queue   *queue.Queue

	running  atomic.Bool
	exitCode atomic.Int32
	done     chan struct{}
}

// New constructs a Runtime, picking the best available native poller
// backend for the platform. Failure to create the event-backend handle
// is the one unrecoverable startup error; it is returned here rather
// than aborting the process.
func New(opts ...Option) (*Runtime, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt.f(&o)
	}
	backend, err := poller.New()
	if err != nil {
		return nil, errors.Wrap(err, "reactivo: create event backend")
	}
	rt := &Runtime{
		opts:    o,
		backend: backend,
		queue:   queue.New(),
		done:    make(chan struct{}),
	}
	// The queue's waker routes through the backend's Trigger so that a
	// Push from any goroutine wakes Exec's blocked Poll call, not just
	// a Wait call -- see queue.Queue.SetWaker's doc comment.
	rt.queue.SetWaker(func() {
		if err := rt.backend.Trigger(); err != nil {
			log.Errorf("reactivo: poller trigger: %v", err)
		}
	})
	rt.running.Store(true)
	return rt, nil
}

// Backend exposes the poller.Backend so package event's typed wrappers
// can register fd interest. Registration must only ever be called from
// the loop goroutine itself (see AddOnLoop) or before Exec starts.
func (rt *Runtime) Backend() poller.Backend { return rt.backend }

// Queue exposes the signal queue so package signal's Signal* types can
// be constructed against this Runtime.
func (rt *Runtime) Queue() *queue.Queue { return rt.queue }

// AddOnLoop routes a poller registration request through the signal
// queue so it executes on the loop goroutine: the backend's
// registration map is only ever touched from one goroutine, and
// producers that need to register dispatch the registration as a
// queue entry instead of calling the backend directly.
func (rt *Runtime) AddOnLoop(fd int, flags poller.Event, cb poller.Callback) {
	rt.queue.Push(func() {
		if err := rt.backend.Add(fd, flags, cb); err != nil {
			log.Errorf("reactivo: poller add fd=%d: %v", fd, err)
		}
	})
}

// RemoveOnLoop is AddOnLoop's counterpart, used by package event's
// wrappers to unregister a native descriptor from Close.
func (rt *Runtime) RemoveOnLoop(fd int, flags poller.Event) {
	rt.queue.Push(func() {
		if err := rt.backend.Remove(fd, flags); err != nil {
			log.Errorf("reactivo: poller remove fd=%d: %v", fd, err)
		}
	})
}

// Submit dispatches task onto the runtime's bounded overflow goroutine
// pool rather than blocking the loop goroutine. Use this for slow slot
// bodies -- e.g. a ProcessWatcher poll tick -- that must not stall
// signal dispatch.
func (rt *Runtime) Submit(task func()) error {
	metrics.Add(metrics.TaskAssigned, 1)
	return rt.opts.pool.Submit(task)
}

// SingleShot enqueues slot directly, bypassing the signal layer
// entirely.
func (rt *Runtime) SingleShot(slot func()) {
	rt.queue.Push(slot)
}

// Exec is the application loop: park in the poller backend's Poll,
// then drain whatever the queue collected meanwhile. The one blocking
// call per turn is Poll -- a Push from any goroutine reaches it
// immediately through the queue's waker (see New), and fd readiness
// callbacks dispatched by Poll route their work through the queue too,
// so one turn services both. Exec returns the exit code once Quit has
// been observed and the queue has fully drained.
func (rt *Runtime) Exec() int {
	defer close(rt.done)
	for {
		if ok, err := rt.backend.Poll(rt.opts.pollTimeoutMs); err != nil {
			if rt.opts.ignorePollTaskError {
				log.Warnf("reactivo: poll error ignored: %v", err)
			} else {
				log.Errorf("reactivo: poll error: %v", err)
			}
		} else if ok {
			metrics.Add(metrics.PollWakeups, 1)
		}

		jobs, running := rt.queue.Drain()
		for _, job := range jobs {
			job()
		}
		if !running && rt.queue.Len() == 0 {
			return int(rt.exitCode.Load())
		}
	}
}

// Quit sets the exit code and clears the run flag exactly once;
// subsequent calls are no-ops and the first code wins.
func (rt *Runtime) Quit(code int) {
	if rt.running.CAS(true, false) {
		rt.exitCode.Store(int32(code))
		rt.queue.Stop()
		// A Quit from a non-loop goroutine must also reach an Exec
		// parked inside Poll, not just one blocked in the queue's Wait.
		if err := rt.backend.Trigger(); err != nil {
			log.Errorf("reactivo: poller trigger: %v", err)
		}
	}
}

// Running reports whether Quit has not yet been observed.
func (rt *Runtime) Running() bool { return rt.running.Load() }

// Done returns a channel closed once Exec has returned.
func (rt *Runtime) Done() <-chan struct{} { return rt.done }

// Close releases the Runtime's native poller handle. Call after Exec
// returns.
func (rt *Runtime) Close() error {
	return rt.backend.Close()
}
