// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package queue provides the process-wide FIFO of deferred nullary
// invocations that the application loop drains on its single consumer
// goroutine.
package queue

import "sync"

// Job is a deferred nullary invocation. Arguments are bound by the
// caller before the Job is pushed, so the Job never needs its own
// parameters: the closure already captured copies of everything it
// needs at enqueue time.
type Job func()

// Queue is a FIFO of Jobs guarded by one mutex and a condition
// variable that is broadcast whenever the queue transitions from empty
// to non-empty, or whenever Stop is called.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	jobs    []Job
	running bool

	// waker, if set, is called after every Push, outside the lock. The
	// application loop (package runtime) wires this to its
	// poller.Backend's Trigger, so a Push from any goroutine -- a
	// signal Emit, a reaper callback, a new fd registration -- also
	// wakes a Poll call the loop goroutine may be blocked inside,
	// not just a Wait call. Without it, a push that lands while the
	// loop is parked in Poll (the common case with the default
	// indefinite poll timeout) only broadcasts a condvar nobody is
	// waiting on yet, and sits undelivered until an unrelated fd event
	// happens to return Poll.
	waker func()
}

// New creates a running Queue.
func New() *Queue {
	q := &Queue{running: true}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// SetWaker installs fn to be called, outside the lock, after every
// subsequent Push. Intended to be called once, right after New, before
// any goroutine can observe the queue.
func (q *Queue) SetWaker(fn func()) {
	q.mu.Lock()
	q.waker = fn
	q.mu.Unlock()
}

// Push appends job to the queue, wakes every Wait waiter, and -- if a
// waker is installed -- also wakes a concurrently blocked Poll call.
func (q *Queue) Push(job Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	waker := q.waker
	q.mu.Unlock()
	q.cond.Broadcast()
	if waker != nil {
		waker()
	}
}

// Wait blocks until the queue is non-empty or has been stopped, then
// returns every job currently queued (possibly none, if Stop woke the
// waiter). The mutex is held only while swapping the slice; invocation
// of the returned jobs must happen with the mutex released.
func (q *Queue) Wait() ([]Job, bool) {
	q.mu.Lock()
	for len(q.jobs) == 0 && q.running {
		q.cond.Wait()
	}
	jobs := q.jobs
	q.jobs = nil
	running := q.running
	q.mu.Unlock()
	return jobs, running
}

// Drain returns every job currently queued without blocking, plus the
// running flag. The application loop uses this instead of Wait: its
// park point is the poller's blocking wait, which every Push reaches
// through the waker, so a blocking condvar wait on this side would
// only hide fd readiness from the loop.
func (q *Queue) Drain() ([]Job, bool) {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	running := q.running
	q.mu.Unlock()
	return jobs, running
}

// Stop clears the running flag and wakes every waiter so that a
// blocked Wait call can observe the stop and return. Stop does not
// drain the queue; callers typically perform one final Wait/drain
// after Stop to flush any jobs pushed concurrently with the stop.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.running = false
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len reports the number of jobs currently queued. Intended for tests
// and diagnostics, not for control flow (it is stale the instant it is
// read).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
