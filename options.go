// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 Tencent.
// All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package reactivo

import "github.com/panjf2000/ants/v2"

const (
	defaultPollTimeoutMs = -1
	defaultPoolSize      = 0 // 0 means unbounded, matching ants' INT32_MAX convention.
)

// Option configures a Runtime at construction time.
type Option struct {
	f func(*options)
}

type options struct {
	pollTimeoutMs       int
	ignorePollTaskError bool
	pool                *ants.Pool
}

func defaultOptions() options {
	pool, _ := ants.NewPool(defaultPoolSize)
	return options{
		pollTimeoutMs: defaultPollTimeoutMs,
		pool:          pool,
	}
}

// WithPollTimeout sets the timeout, in milliseconds, Exec passes to the
// poller backend's Poll each turn. Negative (the default) waits
// indefinitely until an fd is ready or the queue wakes the loop;
// 0 turns every iteration into a non-blocking probe.
func WithPollTimeout(ms int) Option {
	return Option{func(o *options) {
		o.pollTimeoutMs = ms
	}}
}

// WithIgnorePollTaskError makes Exec log a poller Poll error at warning
// level instead of error level. Either way Exec goes on draining the
// queue after the error; the loop never exits because of a poll failure.
func WithIgnorePollTaskError(ignore bool) Option {
	return Option{func(o *options) {
		o.ignorePollTaskError = ignore
	}}
}

// WithPoolSize sets the size of the bounded overflow goroutine pool
// Submit dispatches onto. 0 (the default) means unbounded.
func WithPoolSize(n int) Option {
	return Option{func(o *options) {
		pool, err := ants.NewPool(n)
		if err == nil {
			o.pool = pool
		}
	}}
}
