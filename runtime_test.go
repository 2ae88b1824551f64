// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package reactivo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuitIdempotent(t *testing.T) {
	rt, err := New(WithPollTimeout(0))
	require.NoError(t, err)
	defer rt.Close()

	rt.Quit(7)
	rt.Quit(9) // no-op, first code sticks

	code := rt.Exec()
	assert.Equal(t, 7, code)
}

func TestSingleShotRunsOnLoop(t *testing.T) {
	rt, err := New(WithPollTimeout(0))
	require.NoError(t, err)
	defer rt.Close()

	ran := make(chan struct{})
	rt.SingleShot(func() {
		close(ran)
		rt.Quit(0)
	})

	done := make(chan int, 1)
	go func() { done <- rt.Exec() }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("single-shot slot never ran")
	}
	<-done
}

func TestSubmitRunsOffLoop(t *testing.T) {
	rt, err := New(WithPollTimeout(0))
	require.NoError(t, err)
	defer rt.Close()

	ran := make(chan struct{})
	require.NoError(t, rt.Submit(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("submitted task never ran")
	}
}

// TestDefaultPollTimeoutDoesNotStallCrossGoroutinePush exercises the
// documented default (no WithPollTimeout override, so Exec's loop
// goroutine parks inside backend.Poll(-1)) against a SingleShot pushed
// from a second goroutine with no fd activity pending anywhere in the
// process. Before the queue's waker was wired to the poller backend's
// Trigger, this push only broadcast a condvar nobody was waiting on --
// the loop goroutine was blocked in Poll, not in Queue.Wait -- and sat
// undelivered, so this test would hang until its own timeout.
func TestDefaultPollTimeoutDoesNotStallCrossGoroutinePush(t *testing.T) {
	rt, err := New() // defaults: pollTimeoutMs == -1, block indefinitely
	require.NoError(t, err)
	defer rt.Close()

	done := make(chan int, 1)
	go func() { done <- rt.Exec() }()

	ran := make(chan struct{})
	go func() {
		time.Sleep(50 * time.Millisecond)
		rt.SingleShot(func() {
			close(ran)
			rt.Quit(0)
		})
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("cross-goroutine SingleShot never reached the loop goroutine blocked in Poll(-1)")
	}

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(2 * time.Second):
		t.Fatal("Exec never returned after Quit")
	}
}
