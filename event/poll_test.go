// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package event_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/event"
	"github.com/reactivo/reactivo/internal/poller"
)

func TestPollActivatedOnReadable(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	rt, err := reactivo.New(reactivo.WithPollTimeout(20))
	require.NoError(t, err)
	defer rt.Close()

	p := event.NewPoll(rt, int(r.Fd()), event.Readable)
	defer p.Close()

	fired := make(chan poller.Event, 1)
	p.Activated.ConnectFree(func(fd int, flags poller.Event) {
		select {
		case fired <- flags:
		default:
		}
	})

	go rt.Exec()
	defer func() {
		rt.Quit(0)
		<-rt.Done()
	}()

	time.Sleep(10 * time.Millisecond)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	select {
	case flags := <-fired:
		assert.NotZero(t, flags)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Activated")
	}
}
