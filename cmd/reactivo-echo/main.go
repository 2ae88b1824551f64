// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Command reactivo-echo is the toolkit's minimal worked example: one
// Runtime, one ipc.ServerSocket, and the accept-or-reject peer
// handshake. Every accepted peer's
// messages are echoed back unchanged; SIGINT/SIGTERM drain the
// runtime via Quit rather than os.Exit, so in-flight writes complete.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/ipc"
	"github.com/reactivo/reactivo/log"
)

func main() {
	path := flag.String("socket", "/tmp/reactivo-echo.sock", "SOCK_SEQPACKET path to listen on")
	flag.Parse()

	rt, err := reactivo.New()
	if err != nil {
		log.Fatalf("reactivo-echo: %v", err)
	}
	defer rt.Close()

	srv, err := ipc.Listen(rt, *path, 0)
	if err != nil {
		log.Fatalf("reactivo-echo: listen %s: %v", *path, err)
	}
	defer srv.Close()

	srv.NewPeerRequest.ConnectFree(func(fd int, addr string, cred ipc.PeerCred) {
		log.Infof("reactivo-echo: peer fd=%d pid=%d uid=%d requesting connection", fd, cred.PID, cred.UID)
		if err := srv.AcceptPeerRequest(fd); err != nil {
			log.Warnf("reactivo-echo: accept fd=%d: %v", fd, err)
		}
	})
	srv.NewPeerMessage.ConnectFree(func(fd int, msg ipc.Message) {
		if _, err := srv.Write(fd, msg.Data, msg.FD); err != nil {
			log.Warnf("reactivo-echo: write fd=%d: %v", fd, err)
		}
	})
	srv.DisconnectedPeer.ConnectFree(func(fd int) {
		log.Infof("reactivo-echo: peer fd=%d disconnected", fd)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		rt.Quit(0)
	}()

	os.Exit(rt.Exec())
}
