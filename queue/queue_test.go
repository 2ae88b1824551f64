// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactivo/reactivo/queue"
)

func TestPushWaitOrder(t *testing.T) {
	q := queue.New()
	var got []int
	q.Push(func() { got = append(got, 1) })
	q.Push(func() { got = append(got, 2) })

	jobs, running := q.Wait()
	require.True(t, running)
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		j()
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestWaitBlocksUntilPush(t *testing.T) {
	q := queue.New()
	done := make(chan struct{})
	go func() {
		jobs, running := q.Wait()
		assert.True(t, running)
		assert.Len(t, jobs, 1)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Wait returned before any job was pushed")
	default:
	}
	q.Push(func() {})
	<-done
}

func TestStopWakesWaiters(t *testing.T) {
	q := queue.New()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, running := q.Wait()
		assert.False(t, running)
	}()
	time.Sleep(10 * time.Millisecond)
	q.Stop()
	wg.Wait()
}

func TestPushCallsWaker(t *testing.T) {
	q := queue.New()
	var calls int
	var mu sync.Mutex
	q.SetWaker(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	q.Push(func() {})
	q.Push(func() {})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestLenReflectsPendingJobs(t *testing.T) {
	q := queue.New()
	assert.Equal(t, 0, q.Len())
	q.Push(func() {})
	assert.Equal(t, 1, q.Len())
}
