// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build darwin || freebsd
// +build darwin freebsd

package ipc

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// getPeerCred reads the connected peer's credentials via
// LOCAL_PEERCRED. Xucred carries no pid on these platforms; PID is
// left zero.
func getPeerCred(fd int) (PeerCred, error) {
	xucred, err := unix.GetsockoptXucred(fd, unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
	if err != nil {
		return PeerCred{}, errors.Wrap(err, "ipc: getsockopt LOCAL_PEERCRED")
	}
	var gid uint32
	if len(xucred.Groups) > 0 {
		gid = xucred.Groups[0]
	}
	return PeerCred{UID: xucred.Uid, GID: gid}, nil
}
