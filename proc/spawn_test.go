// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package proc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reactivo/reactivo"
)

func newTestRuntime(t *testing.T) *reactivo.Runtime {
	t.Helper()
	rt, err := reactivo.New(reactivo.WithPollTimeout(10))
	require.NoError(t, err)
	go rt.Exec()
	t.Cleanup(func() {
		rt.Quit(0)
		<-rt.Done()
		rt.Close()
	})
	return rt
}

// TestProcessLifecycle spawns /bin/true,
// observe Started then Finished(pid, 0) in that order, never Killed.
func TestProcessLifecycle(t *testing.T) {
	rt := newTestRuntime(t)

	var order []string
	done := make(chan struct{})

	p := New(rt, "/bin/true", nil)
	p.Started.ConnectFree(func(pid int) { order = append(order, "started") })
	p.Finished.ConnectFree(func(pid int, code int) {
		order = append(order, "finished")
		require.Equal(t, 0, code)
		close(done)
	})
	p.Killed.ConnectFree(func(pid int, sig int) {
		t.Fatal("Killed must not fire for a normal exit")
	})

	require.Equal(t, Initializing, p.State())
	require.NoError(t, p.Start())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process never reported finished")
	}
	require.Equal(t, []string{"started", "finished"}, order)
}

// TestProcessKilled exercises the signaled-exit branch: Killed fires
// exactly once, Finished never fires.
func TestProcessKilled(t *testing.T) {
	rt := newTestRuntime(t)

	p := New(rt, "/bin/sleep", []string{"30"})
	killed := make(chan int, 1)
	p.Finished.ConnectFree(func(pid int, code int) {
		t.Fatal("Finished must not fire for a signaled exit")
	})
	p.Killed.ConnectFree(func(pid int, sig int) {
		killed <- sig
	})
	require.NoError(t, p.Start())

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, p.SendSignal(9, 0)) // SIGKILL

	select {
	case sig := <-killed:
		require.Equal(t, 9, sig)
	case <-time.After(5 * time.Second):
		t.Fatal("process never reported killed")
	}
}
