// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package event implements the typed event wrappers: Poll, File,
// Process, Timer and Mount. Each wraps a native resource,
// registers interest with the runtime's poller.Backend or an internal
// polling goroutine, and exposes portable signal.Signal* fields. None
// of these wrappers run user slots from inside a poller callback --
// every callback only enqueues, matching the "observe, don't invoke"
// requirement of the typed wrapper contract.
package event

import (
	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/internal/poller"
	"github.com/reactivo/reactivo/signal"
)

// Poll is the thinnest wrapper: a raw fd registered with the runtime's
// event backend, re-surfacing the observed flags as a signal instead
// of a callback. Every other wrapper in this package is built out of
// one or more Polls or, where no native fd exists, a polling
// goroutine feeding the same kind of signal.
type Poll struct {
	*signal.Object

	rt    *reactivo.Runtime
	fd    int
	flags poller.Event

	// Activated fires with (fd, observedFlags) once per readiness
	// notification.
	Activated *signal.Signal2[int, poller.Event]
}

// NewPoll registers fd with flags (a subset of this package's Error,
// Disconnected, Readable and Writeable) and returns
// a Poll whose Activated signal fires on the runtime's loop thread.
func NewPoll(rt *reactivo.Runtime, fd int, flags poller.Event) *Poll {
	p := &Poll{
		Object:    signal.NewObject(),
		rt:        rt,
		fd:        fd,
		flags:     flags,
		Activated: signal.NewSignal2[int, poller.Event](rt.Queue()),
	}
	rt.AddOnLoop(fd, flags, func(fd int, observed poller.Event) {
		p.Activated.Emit(fd, observed)
	})
	return p
}

// FD returns the wrapped descriptor.
func (p *Poll) FD() int { return p.fd }

// Close unregisters fd from the runtime's backend. It does not close
// fd itself -- ownership of the descriptor stays with the caller that
// constructed the Poll, matching the rest of the wrappers in this
// package.
func (p *Poll) Close() {
	p.rt.RemoveOnLoop(p.fd, p.flags)
	p.Object.Close()
}

// Portable flag names re-exported from internal/poller so callers of
// package event never need to import internal/poller directly.
const (
	Readable     = poller.SimplePollReadFlags
	Writeable    = poller.SimplePollWriteFlags
	Error        = poller.EventError
	Disconnected = poller.EventDisconnected
)
