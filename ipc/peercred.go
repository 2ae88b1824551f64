// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package ipc implements Unix-domain sequenced-packet socket
// transport with SCM_RIGHTS file-descriptor passing and peer
// credential exchange. The standard net package has no SOCK_SEQPACKET
// support, so both ends are built on golang.org/x/sys/unix directly.
package ipc

// PeerCred is the portable peer-credential record: the {pid, uid,
// gid} of the process at the other end of a connection. Its exact
// kernel source is per-OS -- see peercred_linux.go (SO_PEERCRED) and
// peercred_bsd.go (LOCAL_PEERCRED).
type PeerCred struct {
	PID int32
	UID uint32
	GID uint32
}
