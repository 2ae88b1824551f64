// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package ipc

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/event"
	"github.com/reactivo/reactivo/internal/poller"
	"github.com/reactivo/reactivo/internal/safejob"
	"github.com/reactivo/reactivo/log"
	"github.com/reactivo/reactivo/metrics"
	"github.com/reactivo/reactivo/signal"
)

// maxPacketSize bounds one recvmsg call's buffer. SOCK_SEQPACKET
// preserves message boundaries, so a buffer this size comfortably
// covers the pldstub and config-push payloads this toolkit expects to
// carry; a larger single message is truncated by the kernel per
// sequenced-packet semantics, not by this client.
const maxPacketSize = 64 * 1024

// ClientSocket is one end of a Unix SOCK_SEQPACKET connection, built
// directly on golang.org/x/sys/unix because the standard net package
// has no sequenced-packet dialer. Readability is observed through an
// internal event.Poll -- this type never polls its own fd directly.
type ClientSocket struct {
	*signal.Object

	rt   *reactivo.Runtime
	fd   int
	poll *event.Poll

	// closed guards disconnect's teardown so it runs exactly once no
	// matter which of the error, hangup, or explicit Close paths gets
	// there first.
	closed safejob.OnceJob

	// Connected fires once with (fd, peerAddr, peerCred) after dial or
	// accept completes.
	Connected *signal.Signal3[int, string, PeerCred]
	// NewMessage fires for each received packet.
	NewMessage *signal.Signal1[Message]
	// WriteFinished fires with the byte count of a completed Write.
	WriteFinished *signal.Signal1[int]
	// Disconnected fires once with fd when the peer goes away.
	Disconnected *signal.Signal1[int]
}

// Dial connects to the SOCK_SEQPACKET listener bound at path and
// returns a ClientSocket registered against rt's loop.
func Dial(rt *reactivo.Runtime, path string) (*ClientSocket, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	if err != nil {
		return nil, errors.Wrap(err, "ipc: socket")
	}
	unix.CloseOnExec(fd)

	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "ipc: connect %s", path)
	}
	return newClientSocket(rt, fd, path)
}

// newAcceptedClientSocket wraps an already-connected fd, used by
// ServerSocket.AcceptPeerRequest.
func newAcceptedClientSocket(rt *reactivo.Runtime, fd int, peerAddr string) (*ClientSocket, error) {
	return newClientSocket(rt, fd, peerAddr)
}

func newClientSocket(rt *reactivo.Runtime, fd int, peerAddr string) (*ClientSocket, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "ipc: set nonblocking")
	}

	cred, err := getPeerCred(fd)
	if err != nil {
		log.Warnf("ipc: peer credentials unavailable for fd=%d: %v", fd, err)
	}

	c := &ClientSocket{
		Object:        signal.NewObject(),
		rt:            rt,
		fd:            fd,
		Connected:     signal.NewSignal3[int, string, PeerCred](rt.Queue()),
		NewMessage:    signal.NewSignal1[Message](rt.Queue()),
		WriteFinished: signal.NewSignal1[int](rt.Queue()),
		Disconnected:  signal.NewSignal1[int](rt.Queue()),
	}
	c.poll = event.NewPoll(rt, fd, event.Readable|event.Disconnected|event.Error)
	c.poll.Activated.ConnectFree(c.onReadable)

	metrics.Add(metrics.SocketConnsCreate, 1)
	c.Connected.Emit(fd, peerAddr, cred)
	return c, nil
}

func (c *ClientSocket) onReadable(fd int, flags poller.Event) {
	if flags&(event.Error|event.Disconnected) != 0 {
		c.disconnect()
		return
	}

	buf := make([]byte, maxPacketSize)
	oob := make([]byte, unix.CmsgSpace(4))
	n, oobn, _, _, err := unix.Recvmsg(c.fd, buf, oob, 0)
	metrics.Add(metrics.SocketReadCalls, 1)
	if err != nil {
		metrics.Add(metrics.SocketReadFails, 1)
		c.disconnect()
		return
	}

	msgFD := noFD
	if oobn > 0 {
		cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err == nil {
			for _, cmsg := range cmsgs {
				fds, err := unix.ParseUnixRights(&cmsg)
				if err == nil && len(fds) > 0 {
					msgFD = fds[0]
					metrics.Add(metrics.SocketFDsPassed, 1)
				}
			}
		}
	}

	// A zero-byte read with no ancillary data is the peer hanging up; a
	// zero-byte packet that carries an fd is a legitimate message.
	if n == 0 && msgFD == noFD {
		c.disconnect()
		return
	}
	metrics.Add(metrics.SocketReadBytes, uint64(n))

	data := make([]byte, n)
	copy(data, buf[:n])
	c.NewMessage.Emit(Message{Data: data, FD: msgFD})
}

// Write sends one packet, optionally carrying fd as an SCM_RIGHTS
// ancillary message. Pass a negative fd to send no descriptor.
func (c *ClientSocket) Write(buf []byte, fd int) (int, error) {
	if c.closed.Closed() {
		return 0, errors.New("ipc: write on closed socket")
	}

	var oob []byte
	if fd >= 0 {
		oob = unix.UnixRights(fd)
	}
	n, err := unix.SendmsgN(c.fd, buf, oob, nil, 0)
	metrics.Add(metrics.SocketWriteCalls, 1)
	if err != nil {
		metrics.Add(metrics.SocketWriteFails, 1)
		return 0, errors.Wrap(err, "ipc: sendmsg")
	}
	metrics.Add(metrics.SocketWriteBytes, uint64(n))
	c.WriteFinished.Emit(n)
	return n, nil
}

// FD returns the wrapped socket descriptor.
func (c *ClientSocket) FD() int { return c.fd }

func (c *ClientSocket) disconnect() {
	if !c.closed.Begin() {
		return
	}
	c.poll.Close()
	unix.Close(c.fd)
	metrics.Add(metrics.SocketConnsClose, 1)
	c.Disconnected.Emit(c.fd)
}

// Close tears down the socket, emitting Disconnected if it had not
// already fired.
func (c *ClientSocket) Close() {
	c.disconnect()
	c.Object.Close()
}
