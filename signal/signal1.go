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

// binding1 carries one argument, copied into the closure at Emit time
// per the "arguments bound by copy at enqueue time" invariant.
type binding1[A any] struct {
	receiver *token
	call     func(depth int, a A)
}

// Signal1 is a signal carrying one argument.
type Signal1[A any] struct {
	q     *queue.Queue
	mu    sync.Mutex
	binds []binding1[A]
}

// NewSignal1 creates a signal that enqueues onto q when emitted.
func NewSignal1[A any](q *queue.Queue) *Signal1[A] { return &Signal1[A]{q: q} }

// Connect binds method to receiver obj.
func (s *Signal1[A]) Connect(obj *Object, method func(A)) {
	s.mu.Lock()
	s.binds = append(s.binds, binding1[A]{receiver: obj, call: func(_ int, a A) {
		if isLive(obj) {
			method(a)
		}
	}})
	s.mu.Unlock()
}

// ConnectFunc binds fn to receiver obj, passing recv through as the
// typed receiver pointer: the slot is a plain function that takes the
// receiver as its first argument, with obj supplying the liveness
// check.
func ConnectFunc[T any, A any](s *Signal1[A], obj *Object, recv *T, fn func(*T, A)) {
	s.mu.Lock()
	s.binds = append(s.binds, binding1[A]{receiver: obj, call: func(_ int, a A) {
		if isLive(obj) {
			fn(recv, a)
		}
	}})
	s.mu.Unlock()
}

// ConnectFree binds a free function, ignoring receiver liveness.
func (s *Signal1[A]) ConnectFree(fn func(A)) {
	s.mu.Lock()
	s.binds = append(s.binds, binding1[A]{call: func(_ int, a A) { fn(a) }})
	s.mu.Unlock()
}

// Forward re-raises every Emit of s as an Emit of dst.
func (s *Signal1[A]) Forward(dst *Signal1[A]) {
	s.mu.Lock()
	s.binds = append(s.binds, binding1[A]{call: func(depth int, a A) { dst.emit(depth+1, a) }})
	s.mu.Unlock()
}

// Emit enqueues an invocation of every live binding with a, in
// connection order, and removes bindings whose receiver died.
func (s *Signal1[A]) Emit(a A) { s.emit(0, a) }

func (s *Signal1[A]) emit(depth int, a A) {
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
		s.q.Push(func() { call(depth, a) })
	}
	s.binds = live
	s.mu.Unlock()
}

// Disconnect clears every binding.
func (s *Signal1[A]) Disconnect() {
	s.mu.Lock()
	s.binds = nil
	s.mu.Unlock()
}

// DisconnectObject clears every binding whose receiver is obj.
func (s *Signal1[A]) DisconnectObject(obj *Object) {
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
func (s *Signal1[A]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.binds)
}
