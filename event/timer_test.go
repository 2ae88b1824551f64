// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package event_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/event"
)

func TestTimerOneShotFiresOnce(t *testing.T) {
	rt, err := reactivo.New(reactivo.WithPollTimeout(20))
	require.NoError(t, err)
	defer rt.Close()

	var count int32
	timer, err := event.NewTimer(rt, 20*time.Millisecond, false)
	require.NoError(t, err)
	defer timer.Close()
	timer.Expired.ConnectFree(func() { atomic.AddInt32(&count, 1) })

	go rt.Exec()
	defer func() {
		rt.Quit(0)
		<-rt.Done()
	}()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestTimerRepeatFiresMultipleTimes(t *testing.T) {
	rt, err := reactivo.New(reactivo.WithPollTimeout(10))
	require.NoError(t, err)
	defer rt.Close()

	var count int32
	timer, err := event.NewTimer(rt, 15*time.Millisecond, true)
	require.NoError(t, err)
	defer timer.Close()
	timer.Expired.ConnectFree(func() { atomic.AddInt32(&count, 1) })

	go rt.Exec()
	defer func() {
		rt.Quit(0)
		<-rt.Done()
	}()

	time.Sleep(250 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}
