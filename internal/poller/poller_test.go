// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package poller_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo/internal/poller"
)

func TestPollNonBlockingEmpty(t *testing.T) {
	be, err := poller.New()
	require.NoError(t, err)
	defer be.Close()

	ready, err := be.Poll(0)
	assert.NoError(t, err)
	assert.False(t, ready)
}

// TestAddRemoveAggregateFlags exercises the add/remove flag-aggregation
// invariant: add(f, m1, cb1); add(f, m2, cb2); remove(f, m1) leaves the
// watch on f with exactly m2/cb2 still registered and ready.
func TestAddRemoveAggregateFlags(t *testing.T) {
	be, err := poller.New()
	require.NoError(t, err)
	defer be.Close()

	r, w, err := unixSocketpair(t)
	require.NoError(t, err)
	defer unix.Close(r)
	defer unix.Close(w)

	var readFired, writeFired int
	require.NoError(t, be.Add(r, poller.SimplePollReadFlags, func(fd int, obs poller.Event) {
		readFired++
	}))
	require.NoError(t, be.Add(r, poller.SimplePollWriteFlags, func(fd int, obs poller.Event) {
		writeFired++
	}))

	// Remove the read interest; only write-callback registration should remain.
	require.NoError(t, be.Remove(r, poller.SimplePollReadFlags))

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	ready, err := be.Poll(100)
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, 0, readFired, "read callback must not fire after its flags were removed")
	assert.Equal(t, 1, writeFired, "the write registration (m2/cb2) must still be live")
}

// TestTriggerWakesBlockedPoll exercises the cross-goroutine wakeup
// primitive a blocked indefinite Poll needs: without it, a Poll(-1)
// call parks until some unrelated fd becomes ready, which never
// happens in this test.
func TestTriggerWakesBlockedPoll(t *testing.T) {
	be, err := poller.New()
	require.NoError(t, err)
	defer be.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		assert.NoError(t, be.Trigger())
	}()

	start := time.Now()
	_, err = be.Poll(-1)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "Poll(-1) must return once Trigger is called, not block indefinitely")
}

// TestTriggerCoalesces exercises the notified guard: multiple Trigger
// calls between two Poll wakeups must not queue up multiple wakeups or
// error out.
func TestTriggerCoalesces(t *testing.T) {
	be, err := poller.New()
	require.NoError(t, err)
	defer be.Close()

	require.NoError(t, be.Trigger())
	require.NoError(t, be.Trigger())
	require.NoError(t, be.Trigger())

	ready, err := be.Poll(1000)
	require.NoError(t, err)
	assert.True(t, ready)

	// The trigger must be fully drained and re-armable after one Poll.
	require.NoError(t, be.Trigger())
	ready, err = be.Poll(1000)
	require.NoError(t, err)
	assert.True(t, ready)
}

func unixSocketpair(t *testing.T) (int, int, error) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}
