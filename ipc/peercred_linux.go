// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package ipc

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// getPeerCred reads the connected peer's credentials via
// SO_PEERCRED.
func getPeerCred(fd int) (PeerCred, error) {
	ucred, err := unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return PeerCred{}, errors.Wrap(err, "ipc: getsockopt SO_PEERCRED")
	}
	return PeerCred{PID: ucred.Pid, UID: ucred.Uid, GID: ucred.Gid}, nil
}
