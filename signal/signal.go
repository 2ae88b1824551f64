// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package signal

import (
	"fmt"
	"sync"

	"github.com/reactivo/reactivo/queue"
)

// maxForwardDepth bounds re-entrant signal-to-signal forwarding
// chains. Cycle detection for signal graphs is not guaranteed; the
// depth limit turns a runaway cycle into a panic with a usable
// message, and each Forward hop also costs one drain turn because the
// binding re-enters via Push rather than recursing.
const maxForwardDepth = 64

// token is the liveness cell a binding checks before dispatch. A nil
// token means "free function", and the liveness check is skipped.
type token = Object

func isLive(t *token) bool {
	return t == nil || t.Alive()
}

// binding0 is a connection carrying no arguments. call receives the
// forwarding depth of the emission that triggered it, used only by
// Forward bindings to detect runaway re-entrant chains.
type binding0 struct {
	receiver *token
	call     func(depth int)
}

// Signal0 is a zero-argument signal.
type Signal0 struct {
	q     *queue.Queue
	mu    sync.Mutex
	binds []binding0
}

// NewSignal0 creates a signal that enqueues onto q when emitted.
func NewSignal0(q *queue.Queue) *Signal0 { return &Signal0{q: q} }

// Connect binds method to receiver obj; the slot is skipped if obj was
// Close()d before dispatch.
func (s *Signal0) Connect(obj *Object, method func()) {
	s.mu.Lock()
	s.binds = append(s.binds, binding0{receiver: obj, call: func(int) {
		// Re-checked at dispatch: the receiver may die between the
		// emit-time traversal and the drain that runs this closure.
		if isLive(obj) {
			method()
		}
	}})
	s.mu.Unlock()
}

// ConnectFree binds a free function, ignoring receiver liveness.
func (s *Signal0) ConnectFree(fn func()) {
	s.mu.Lock()
	s.binds = append(s.binds, binding0{call: func(int) { fn() }})
	s.mu.Unlock()
}

// Forward re-raises every Emit of s as an Emit of dst. Each
// hop is a fresh Push onto dst's queue, so a forwarding chain costs one
// drain turn per hop rather than recursing on the call stack.
func (s *Signal0) Forward(dst *Signal0) {
	s.mu.Lock()
	s.binds = append(s.binds, binding0{call: func(depth int) { dst.emit(depth + 1) }})
	s.mu.Unlock()
}

// Emit enqueues an invocation of every live binding, in connection
// order, and removes bindings whose receiver died. Zero bindings is a
// no-op: no queue growth.
func (s *Signal0) Emit() { s.emit(0) }

func (s *Signal0) emit(depth int) {
	if depth > maxForwardDepth {
		panic(fmt.Sprintf("signal: forwarding chain exceeded %d hops, probable cycle", maxForwardDepth))
	}
	s.mu.Lock()
	live := s.binds[:0]
	for _, b := range s.binds {
		if !isLive(b.receiver) {
			continue
		}
		live = append(live, b)
		call := b.call
		s.q.Push(func() { call(depth) })
	}
	s.binds = live
	s.mu.Unlock()
}

// Disconnect clears every binding.
func (s *Signal0) Disconnect() {
	s.mu.Lock()
	s.binds = nil
	s.mu.Unlock()
}

// DisconnectObject clears every binding whose receiver is obj.
func (s *Signal0) DisconnectObject(obj *Object) {
	s.mu.Lock()
	live := s.binds[:0]
	for _, b := range s.binds {
		if b.receiver != obj {
			live = append(live, b)
		}
	}
	s.binds = live
	s.mu.Unlock()
}

// Len reports the current binding count.
func (s *Signal0) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.binds)
}
