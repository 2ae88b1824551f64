// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package ipc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

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

// TestServerHandshakeWithFD: server binds, client connects, server
// accepts the peer, client passes an fd over a
// zero-byte-payload message, and the server's NewPeerMessage carries an
// fd referring to the same inode as the file the client opened.
func TestServerHandshakeWithFD(t *testing.T) {
	rt := newTestRuntime(t)
	path := filepath.Join(t.TempDir(), "s.sock")

	srv, err := Listen(rt, path, 0)
	require.NoError(t, err)
	defer srv.Close()

	accepted := make(chan int, 1)
	srv.NewPeerRequest.ConnectFree(func(fd int, addr string, cred PeerCred) {
		require.NoError(t, srv.AcceptPeerRequest(fd))
		accepted <- fd
	})

	gotMsg := make(chan Message, 1)
	srv.NewPeerMessage.ConnectFree(func(fd int, msg Message) {
		gotMsg <- msg
	})

	cli, err := Dial(rt, path)
	require.NoError(t, err)
	defer cli.Close()

	var peerFD int
	select {
	case peerFD = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted peer")
	}
	require.NotZero(t, peerFD)

	dataPath := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(dataPath, []byte("x"), 0o644))
	f, err := os.Open(dataPath)
	require.NoError(t, err)
	defer f.Close()

	var wantStat unix.Stat_t
	require.NoError(t, unix.Fstat(int(f.Fd()), &wantStat))

	_, err = cli.Write(nil, int(f.Fd()))
	require.NoError(t, err)

	select {
	case msg := <-gotMsg:
		require.NotEqual(t, noFD, msg.FD)
		var gotStat unix.Stat_t
		require.NoError(t, unix.Fstat(msg.FD, &gotStat))
		require.Equal(t, wantStat.Ino, gotStat.Ino)
		unix.Close(msg.FD)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the passed fd")
	}
}

// TestClientWriteContiguous checks that every written packet is
// received as one contiguous buffer of the same length.
func TestClientWriteContiguous(t *testing.T) {
	rt := newTestRuntime(t)
	path := filepath.Join(t.TempDir(), "s.sock")

	srv, err := Listen(rt, path, 0)
	require.NoError(t, err)
	defer srv.Close()

	srv.NewPeerRequest.ConnectFree(func(fd int, addr string, cred PeerCred) {
		_ = srv.AcceptPeerRequest(fd)
	})

	gotMsg := make(chan Message, 1)
	srv.NewPeerMessage.ConnectFree(func(fd int, msg Message) {
		gotMsg <- msg
	})

	cli, err := Dial(rt, path)
	require.NoError(t, err)
	defer cli.Close()

	payload := []byte("hello reactivo")
	time.Sleep(50 * time.Millisecond) // let the accept settle
	_, err = cli.Write(payload, -1)
	require.NoError(t, err)

	select {
	case msg := <-gotMsg:
		require.Equal(t, payload, msg.Data)
		require.Equal(t, noFD, msg.FD)
	case <-time.After(2 * time.Second):
		t.Fatal("message never arrived")
	}
}

// TestRejectPeerRequest exercises the reject path: the fd is closed
// and never promoted, so no ConnectedPeer fires.
func TestRejectPeerRequest(t *testing.T) {
	rt := newTestRuntime(t)
	path := filepath.Join(t.TempDir(), "s.sock")

	srv, err := Listen(rt, path, 0)
	require.NoError(t, err)
	defer srv.Close()

	rejected := make(chan struct{})
	srv.NewPeerRequest.ConnectFree(func(fd int, addr string, cred PeerCred) {
		srv.RejectPeerRequest(fd)
		close(rejected)
	})
	srv.ConnectedPeer.ConnectFree(func(int) {
		t.Fatal("ConnectedPeer must not fire for a rejected peer")
	})

	cli, err := Dial(rt, path)
	require.NoError(t, err)
	defer cli.Close()

	select {
	case <-rejected:
	case <-time.After(2 * time.Second):
		t.Fatal("server never observed the peer request")
	}
}
