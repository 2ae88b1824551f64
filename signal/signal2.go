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

type binding2[A, B any] struct {
	receiver *token
	call     func(depth int, a A, b B)
}

// Signal2 is a signal carrying two arguments.
type Signal2[A, B any] struct {
	q     *queue.Queue
	mu    sync.Mutex
	binds []binding2[A, B]
}

// NewSignal2 creates a signal that enqueues onto q when emitted.
func NewSignal2[A, B any](q *queue.Queue) *Signal2[A, B] { return &Signal2[A, B]{q: q} }

// Connect binds method to receiver obj.
func (s *Signal2[A, B]) Connect(obj *Object, method func(A, B)) {
	s.mu.Lock()
	s.binds = append(s.binds, binding2[A, B]{receiver: obj, call: func(_ int, a A, b B) {
		if isLive(obj) {
			method(a, b)
		}
	}})
	s.mu.Unlock()
}

// ConnectFunc2 binds fn to receiver obj, passing recv through as the
// typed receiver pointer; obj only supplies the liveness check.
func ConnectFunc2[T, A, B any](s *Signal2[A, B], obj *Object, recv *T, fn func(*T, A, B)) {
	s.mu.Lock()
	s.binds = append(s.binds, binding2[A, B]{receiver: obj, call: func(_ int, a A, b B) {
		if isLive(obj) {
			fn(recv, a, b)
		}
	}})
	s.mu.Unlock()
}

// ConnectFree binds a free function, ignoring receiver liveness.
func (s *Signal2[A, B]) ConnectFree(fn func(A, B)) {
	s.mu.Lock()
	s.binds = append(s.binds, binding2[A, B]{call: func(_ int, a A, b B) { fn(a, b) }})
	s.mu.Unlock()
}

// Forward re-raises every Emit of s as an Emit of dst.
func (s *Signal2[A, B]) Forward(dst *Signal2[A, B]) {
	s.mu.Lock()
	s.binds = append(s.binds, binding2[A, B]{call: func(depth int, a A, b B) { dst.emit(depth+1, a, b) }})
	s.mu.Unlock()
}

// Emit enqueues an invocation of every live binding with a and b, in
// connection order, and removes bindings whose receiver died.
func (s *Signal2[A, B]) Emit(a A, b B) { s.emit(0, a, b) }

func (s *Signal2[A, B]) emit(depth int, a A, b B) {
	if depth > maxForwardDepth {
		panic(fmt.Sprintf("signal: forwarding chain exceeded %d hops, probable cycle", maxForwardDepth))
	}
	s.mu.Lock()
	live := s.binds[:0]
	for _, bd := range s.binds {
		if !isLive(bd.receiver) {
			continue
		}
		live = append(live, bd)
		call := bd.call
		s.q.Push(func() { call(depth, a, b) })
	}
	s.binds = live
	s.mu.Unlock()
}

// Disconnect clears every binding.
func (s *Signal2[A, B]) Disconnect() {
	s.mu.Lock()
	s.binds = nil
	s.mu.Unlock()
}

// DisconnectObject clears every binding whose receiver is obj.
func (s *Signal2[A, B]) DisconnectObject(obj *Object) {
	s.mu.Lock()
	live := s.binds[:0]
	for _, bd := range s.binds {
		if bd.receiver != obj {
			live = append(live, bd)
		}
	}
	s.binds = live
	s.mu.Unlock()
}

// Len reports the current binding count.
func (s *Signal2[A, B]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.binds)
}
