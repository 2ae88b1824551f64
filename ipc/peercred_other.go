// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build !linux && !darwin && !freebsd
// +build !linux,!darwin,!freebsd

package ipc

import "github.com/pkg/errors"

// getPeerCred has no implementation for NetBSD/OpenBSD/AIX's
// getpeereid-family calls in this build; callers get a zero PeerCred
// and a non-fatal error.
func getPeerCred(fd int) (PeerCred, error) {
	return PeerCred{}, errors.New("ipc: peer credentials unsupported on this platform")
}
