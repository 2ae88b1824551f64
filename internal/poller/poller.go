// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package poller provides the single process-wide OS event demultiplexer:
// one native kernel handle (epoll, kqueue, or a POSIX poll fallback),
// picked at build time, behind one portable Backend contract.
package poller

import "fmt"

// Event is an opaque native flag word. Its encoding is backend specific:
// a plain bitmask on epoll/poll, a packed (filter, flags) pair on kqueue.
// Portable callers should only ever combine SimplePollReadFlags and
// SimplePollWriteFlags; anything more specific belongs to a typed
// wrapper in package event that knows which backend it is running on.
type Event uint64

// String renders the portable bits of e for diagnostics.
func (e Event) String() string {
	var parts []string
	if e&SimplePollReadFlags != 0 {
		parts = append(parts, "Readable")
	}
	if e&SimplePollWriteFlags != 0 {
		parts = append(parts, "Writable")
	}
	if e&EventError != 0 {
		parts = append(parts, "Error")
	}
	if e&EventDisconnected != 0 {
		parts = append(parts, "Disconnected")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Event(%#x)", uint64(e))
	}
	return fmt.Sprint(parts)
}

// Portable flag bits. Backends translate these to/from their native
// encoding; typed wrappers in package event never need to know which
// backend is in use.
const (
	// SimplePollReadFlags requests readability notifications.
	SimplePollReadFlags Event = 1 << iota
	// SimplePollWriteFlags requests writability notifications.
	SimplePollWriteFlags
	// EventError is OR-ed into observed flags on a hard error.
	EventError
	// EventDisconnected is OR-ed into observed flags on peer hang-up.
	EventDisconnected
)

// Callback is invoked by Poll with the fd that became ready and the
// native flags that were actually observed for it (a subset of some
// registered mask). A registration is never dispatched for flags it
// did not ask for.
type Callback func(fd int, observed Event)

// Backend is the single-per-process OS event demultiplexer contract.
// Registration (Add/Remove) and Poll must only ever be
// called from the one goroutine that owns this Backend; concurrent
// registration from other goroutines requires external synchronization
// (in practice, routing the registration request through the signal
// queue so it runs on the loop goroutine, see package runtime).
type Backend interface {
	// Add registers interest in flags for fd, invoking cb when any of
	// them is observed. If fd is already registered its flags are OR-ed
	// in and cb replaces the previous callback; otherwise a new
	// registration is created. The kernel watch reflects the OR of
	// every registration's flags for that fd.
	Add(fd int, flags Event, cb Callback) error

	// Remove clears flags from the registration on fd. If the mask
	// becomes zero the registration is dropped and the kernel watch
	// removed; otherwise the kernel watch is updated to the residual
	// mask.
	Remove(fd int, flags Event) error

	// Poll blocks up to timeoutMs (negative: indefinitely, zero: a
	// non-blocking probe) and dispatches every ready registration's
	// callback before returning. It reports true when the wait returned
	// because a registration was ready or Trigger was called, and false
	// on a hard error from the underlying wait syscall or when the
	// timeout elapsed with nothing ready.
	Poll(timeoutMs int) (bool, error)

	// Trigger wakes a blocked Poll call from another goroutine, without
	// running anything itself -- the caller is expected to have already
	// placed the work somewhere Poll's caller will find it (in
	// practice, package runtime's queue.Queue) before calling Trigger.
	// Repeated calls between two Poll wakeups coalesce into one
	// wakeup.
	Trigger() error

	// Close releases the native kernel handle. Poll must not be called
	// again afterward.
	Close() error
}

// New picks the best available native backend for the current platform
// and constructs it.
func New() (Backend, error) {
	return newBackend()
}

// registration holds the aggregate portable mask and callback for one fd.
// Shared by every backend implementation.
type registration struct {
	flags Event
	cb    Callback
}
