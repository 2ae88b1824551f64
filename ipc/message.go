// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package ipc

// Message is one received packet: a variable-length byte buffer plus
// an optional passed file descriptor. FD is -1 when none was received.
// Ownership of FD transfers to whichever slot handles the signal
// carrying this Message -- it must unix.Close(msg.FD) when done with
// it, per the fd-passing ownership contract.
type Message struct {
	Data []byte
	FD   int
}

const noFD = -1
