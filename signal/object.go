// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package signal provides the lifetime-tracked Object base type and
// the typed Signal/Slot/Binding machinery: a signal holds an
// ordered list of (receiver, invoker) bindings and enqueues bound
// invocations onto a queue.Queue for asynchronous, cross-goroutine-safe
// dispatch.
//
// Go's garbage collector removes the use-after-free hazard an
// address-valued liveness token would guard against, but it does not
// remove the need for liveness tracking: an Object can still be
// explicitly Close()d while a slot bound to it sits queued, and a
// dispatched slot must see a live receiver or not be dispatched at
// all. Liveness here is a shared, atomically-flipped cell rather than
// a raw pointer compared against itself, so a recycled allocation can
// never alias a dead receiver back to life.
package signal

import "go.uber.org/atomic"

// Object is the lifetime-tracked base type. Embed it (or hold one) in
// any receiver that methods are bound to via Connect.
type Object struct {
	alive *atomic.Bool
}

// NewObject returns a live Object.
func NewObject() *Object {
	o := &Object{alive: atomic.NewBool(true)}
	return o
}

// Close marks the object dead. Any binding whose receiver is this
// Object will be elided on its next traversal and removed from the
// signal it was connected to. Close is idempotent.
func (o *Object) Close() {
	o.alive.Store(false)
}

// Alive reports whether the object has not yet been Close()d.
func (o *Object) Alive() bool {
	return o.alive.Load()
}
