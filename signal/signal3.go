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

type binding3[A, B, C any] struct {
	receiver *token
	call     func(depth int, a A, b B, c C)
}

// Signal3 is a signal carrying three arguments.
type Signal3[A, B, C any] struct {
	q     *queue.Queue
	mu    sync.Mutex
	binds []binding3[A, B, C]
}

// NewSignal3 creates a signal that enqueues onto q when emitted.
func NewSignal3[A, B, C any](q *queue.Queue) *Signal3[A, B, C] { return &Signal3[A, B, C]{q: q} }

// Connect binds method to receiver obj.
func (s *Signal3[A, B, C]) Connect(obj *Object, method func(A, B, C)) {
	s.mu.Lock()
	s.binds = append(s.binds, binding3[A, B, C]{receiver: obj, call: func(_ int, a A, b B, c C) {
		if isLive(obj) {
			method(a, b, c)
		}
	}})
	s.mu.Unlock()
}

// ConnectFunc3 binds fn to receiver obj, passing recv through as the
// typed receiver pointer; obj only supplies the liveness check.
func ConnectFunc3[T, A, B, C any](s *Signal3[A, B, C], obj *Object, recv *T, fn func(*T, A, B, C)) {
	s.mu.Lock()
	s.binds = append(s.binds, binding3[A, B, C]{receiver: obj, call: func(_ int, a A, b B, c C) {
		if isLive(obj) {
			fn(recv, a, b, c)
		}
	}})
	s.mu.Unlock()
}

// ConnectFree binds a free function, ignoring receiver liveness.
func (s *Signal3[A, B, C]) ConnectFree(fn func(A, B, C)) {
	s.mu.Lock()
	s.binds = append(s.binds, binding3[A, B, C]{call: func(_ int, a A, b B, c C) { fn(a, b, c) }})
	s.mu.Unlock()
}

// Forward re-raises every Emit of s as an Emit of dst.
func (s *Signal3[A, B, C]) Forward(dst *Signal3[A, B, C]) {
	s.mu.Lock()
	s.binds = append(s.binds, binding3[A, B, C]{call: func(depth int, a A, b B, c C) { dst.emit(depth+1, a, b, c) }})
	s.mu.Unlock()
}

// Emit enqueues an invocation of every live binding with a, b and c, in
// connection order, and removes bindings whose receiver died.
func (s *Signal3[A, B, C]) Emit(a A, b B, c C) { s.emit(0, a, b, c) }

func (s *Signal3[A, B, C]) emit(depth int, a A, b B, c C) {
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
		s.q.Push(func() { call(depth, a, b, c) })
	}
	s.binds = live
	s.mu.Unlock()
}

// Disconnect clears every binding.
func (s *Signal3[A, B, C]) Disconnect() {
	s.mu.Lock()
	s.binds = nil
	s.mu.Unlock()
}

// DisconnectObject clears every binding whose receiver is obj.
func (s *Signal3[A, B, C]) DisconnectObject(obj *Object) {
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
func (s *Signal3[A, B, C]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.binds)
}
