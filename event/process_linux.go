// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package event

import (
	"encoding/binary"
	"os"
	"syscall"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/internal/poller"
	"github.com/reactivo/reactivo/log"
)

// Netlink Connector kernel ABI constants, from <linux/netlink.h> and
// <linux/connector.h>. Never change.
const (
	netlinkConnector = 11 // NETLINK_CONNECTOR

	cnIdxProc uint32 = 1 // CN_IDX_PROC
	cnValProc uint32 = 1 // CN_VAL_PROC

	procCNMcastListen uint32 = 1 // PROC_CN_MCAST_LISTEN
	procCNMcastIgnore uint32 = 2 // PROC_CN_MCAST_IGNORE

	procEventFork uint32 = 0x00000001
	procEventExec uint32 = 0x00000002
	procEventExit uint32 = 0x80000000
)

// Kernel struct sizes, matching <linux/cn_proc.h>:
//
//	struct cn_msg          { idx(4) val(4) seq(4) ack(4) len(2) flags(2) } -> 20B
//	struct proc_event hdr  { what(4) cpu(4) timestamp_ns(8) }              -> 16B
const (
	cnMsgSize      = 20
	procEvtHdrSize = 16
	nlMsgHdrSize   = 16
)

// newProcessSource opens a NETLINK_CONNECTOR socket and subscribes to
// process events. Opening the socket requires CAP_NET_ADMIN; on any
// setup failure this falls back to the generic poller rather than
// surfacing the privilege error to the caller.
func newProcessSource(rt *reactivo.Runtime, p *Process) (func(), error) {
	sock, err := syscall.Socket(syscall.AF_NETLINK, syscall.SOCK_DGRAM, netlinkConnector)
	if err != nil {
		log.Warnf("event: netlink process connector unavailable, falling back to polling: %v", err)
		return newProcessPollSource(rt, p)
	}

	sa := &syscall.SockaddrNetlink{Family: syscall.AF_NETLINK, Pid: uint32(os.Getpid())}
	if err := syscall.Bind(sock, sa); err != nil {
		syscall.Close(sock)
		log.Warnf("event: bind netlink process connector, falling back to polling: %v", err)
		return newProcessPollSource(rt, p)
	}
	if err := sendProcCNMsg(sock, procCNMcastListen); err != nil {
		syscall.Close(sock)
		log.Warnf("event: subscribe to process events, falling back to polling: %v", err)
		return newProcessPollSource(rt, p)
	}
	if err := syscall.SetNonblock(sock, true); err != nil {
		syscall.Close(sock)
		log.Warnf("event: nonblocking netlink process connector, falling back to polling: %v", err)
		return newProcessPollSource(rt, p)
	}

	rt.AddOnLoop(sock, poller.SimplePollReadFlags, func(fd int, observed poller.Event) {
		buf := make([]byte, 8*1024)
		n, _, err := syscall.Recvfrom(sock, buf, 0)
		if err != nil {
			return
		}
		handleNetlinkMessages(p, buf[:n])
	})

	closed := false
	return func() {
		if closed {
			return
		}
		closed = true
		rt.RemoveOnLoop(sock, poller.SimplePollReadFlags)
		sendProcCNMsg(sock, procCNMcastIgnore)
		syscall.Close(sock)
	}, nil
}

func handleNetlinkMessages(p *Process, buf []byte) {
	msgs, err := syscall.ParseNetlinkMessage(buf)
	if err != nil {
		return
	}
	for i := range msgs {
		handleNetlinkMessage(p, &msgs[i])
	}
}

func handleNetlinkMessage(p *Process, msg *syscall.NetlinkMessage) {
	if msg.Header.Type == syscall.NLMSG_ERROR {
		return
	}
	data := msg.Data
	if len(data) < cnMsgSize+procEvtHdrSize {
		return
	}

	idx := binary.NativeEndian.Uint32(data[0:4])
	val := binary.NativeEndian.Uint32(data[4:8])
	if idx != cnIdxProc || val != cnValProc {
		return
	}

	payloadLen := int(binary.NativeEndian.Uint16(data[16:18]))
	payload := data[cnMsgSize:]
	if payloadLen > len(payload) {
		return
	}
	payload = payload[:payloadLen]
	if len(payload) < procEvtHdrSize {
		return
	}

	what := binary.NativeEndian.Uint32(payload[0:4])
	body := payload[procEvtHdrSize:]

	switch what {
	case procEventFork:
		if len(body) < 16 {
			return
		}
		parentPID := int(binary.NativeEndian.Uint32(body[0:4]))
		childPID := int(binary.NativeEndian.Uint32(body[8:12]))
		p.Forked.Emit(parentPID, childPID)
	case procEventExec:
		if len(body) < 8 {
			return
		}
		pid := int(binary.NativeEndian.Uint32(body[0:4]))
		p.Execed.Emit(pid)
	case procEventExit:
		if len(body) < 16 {
			return
		}
		pid := int(binary.NativeEndian.Uint32(body[0:4]))
		status := binary.NativeEndian.Uint32(body[8:12])
		if termsig := status & 0x7f; termsig != 0 {
			p.Killed.Emit(pid, int(termsig))
		} else {
			p.Exited.Emit(pid, int((status>>8)&0xff))
		}
	}
}

// sendProcCNMsg builds and sends a NETLINK_CONNECTOR message telling
// the kernel to start or stop delivering process events to sock.
//
// Message layout: nlmsghdr(16B) + cn_msg(20B) + uint32 op(4B) = 40B.
func sendProcCNMsg(sock int, op uint32) error {
	const opSize = 4
	const totalSize = nlMsgHdrSize + cnMsgSize + opSize
	buf := make([]byte, totalSize)

	binary.NativeEndian.PutUint32(buf[0:4], uint32(totalSize))
	binary.NativeEndian.PutUint16(buf[4:6], syscall.NLMSG_DONE)
	binary.NativeEndian.PutUint16(buf[6:8], 0)
	binary.NativeEndian.PutUint32(buf[8:12], 0)
	binary.NativeEndian.PutUint32(buf[12:16], uint32(os.Getpid()))

	off := nlMsgHdrSize
	binary.NativeEndian.PutUint32(buf[off+0:off+4], cnIdxProc)
	binary.NativeEndian.PutUint32(buf[off+4:off+8], cnValProc)
	binary.NativeEndian.PutUint32(buf[off+8:off+12], 0)
	binary.NativeEndian.PutUint32(buf[off+12:off+16], 0)
	binary.NativeEndian.PutUint16(buf[off+16:off+18], opSize)
	binary.NativeEndian.PutUint16(buf[off+18:off+20], 0)

	off += cnMsgSize
	binary.NativeEndian.PutUint32(buf[off:off+4], op)

	dst := &syscall.SockaddrNetlink{Family: syscall.AF_NETLINK, Pid: 0}
	return syscall.Sendto(sock, buf, 0, dst)
}
