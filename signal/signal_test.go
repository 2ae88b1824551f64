// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactivo/reactivo/queue"
	"github.com/reactivo/reactivo/signal"
)

func drain(t *testing.T, q *queue.Queue) {
	t.Helper()
	jobs, _ := q.Drain()
	for _, j := range jobs {
		j()
	}
}

func TestEmitOrder(t *testing.T) {
	q := queue.New()
	s := signal.NewSignal0(q)
	var got []int
	s.ConnectFree(func() { got = append(got, 1) })
	s.ConnectFree(func() { got = append(got, 2) })
	s.ConnectFree(func() { got = append(got, 3) })

	s.Emit()
	drain(t, q)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestEmitZeroBindings(t *testing.T) {
	q := queue.New()
	s := signal.NewSignal0(q)
	s.Emit()
	assert.Equal(t, 0, q.Len())
}

func TestLateDeletion(t *testing.T) {
	q := queue.New()
	s := signal.NewSignal0(q)
	obj := signal.NewObject()
	called := false
	s.Connect(obj, func() { called = true })

	s.Emit()
	obj.Close()
	drain(t, q)
	assert.False(t, called, "a receiver destroyed before drain must not have its slot invoked")

	s.Emit() // next traversal observes the dead receiver
	drain(t, q)
	assert.False(t, called)
	assert.Equal(t, 0, s.Len(), "the dead binding must have been removed by the traversal")
}

func TestDisconnectObjectClearsOnlyItsBindings(t *testing.T) {
	q := queue.New()
	s := signal.NewSignal0(q)
	a := signal.NewObject()
	b := signal.NewObject()
	var aCalled, bCalled bool
	s.Connect(a, func() { aCalled = true })
	s.Connect(b, func() { bCalled = true })

	s.DisconnectObject(a)
	require.Equal(t, 1, s.Len())

	s.Emit()
	drain(t, q)
	assert.False(t, aCalled)
	assert.True(t, bCalled)
}

func TestForwardDeliversToDestination(t *testing.T) {
	q := queue.New()
	src := signal.NewSignal1[int](q)
	dst := signal.NewSignal1[int](q)
	var got int
	dst.ConnectFree(func(v int) { got = v })
	src.Forward(dst)

	src.Emit(42)
	drain(t, q) // runs src's forwarding binding, which pushes dst's emission
	drain(t, q) // runs dst's binding
	assert.Equal(t, 42, got)
}

func TestForwardCyclePanics(t *testing.T) {
	q := queue.New()
	a := signal.NewSignal0(q)
	b := signal.NewSignal0(q)
	a.Forward(b)
	b.Forward(a)

	a.Emit()
	assert.Panics(t, func() {
		for i := 0; i < 200; i++ {
			jobs, _ := q.Wait()
			for _, j := range jobs {
				j()
			}
		}
	})
}

func TestConnectFuncThreadsTypedReceiver(t *testing.T) {
	q := queue.New()
	s := signal.NewSignal1[string](q)
	obj := signal.NewObject()
	type widget struct{ name string }
	w := &widget{}

	signal.ConnectFunc(s, obj, w, func(recv *widget, v string) { recv.name = v })
	s.Emit("lamp")
	drain(t, q)
	assert.Equal(t, "lamp", w.name)
}
