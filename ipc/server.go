// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package ipc

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/event"
	"github.com/reactivo/reactivo/internal/netutil"
	"github.com/reactivo/reactivo/internal/poller"
	"github.com/reactivo/reactivo/log"
	"github.com/reactivo/reactivo/metrics"
	"github.com/reactivo/reactivo/signal"
)

// peerRecord is the server's bookkeeping for one accepted-but-not-yet-
// promoted connection: an fd the application has not accepted or
// rejected yet, plus its address and credentials. It is distinct from
// the table of promoted ClientSocket instances, which only gains an
// entry once the application calls AcceptPeerRequest.
type peerRecord struct {
	fd   int
	addr string
	cred PeerCred
}

// ServerSocket binds and listens on a SOCK_SEQPACKET Unix-domain path.
// It never hands an accepted connection to user code directly -- each
// accept surfaces as a NewPeerRequest emission carrying the peer's
// credentials, and the application decides with AcceptPeerRequest or
// RejectPeerRequest before any per-peer resources are allocated.
type ServerSocket struct {
	*signal.Object

	rt   *reactivo.Runtime
	fd   int
	path string
	poll *event.Poll

	mu      sync.Mutex
	pending map[int]peerRecord
	clients map[int]*ClientSocket

	// NewPeerRequest fires when accept() produces a candidate
	// connection the application has not yet decided to keep.
	NewPeerRequest *signal.Signal3[int, string, PeerCred]
	// ConnectedPeer fires once a pending peer has been promoted by
	// AcceptPeerRequest.
	ConnectedPeer *signal.Signal1[int]
	// DisconnectedPeer fires when a promoted peer's connection drops.
	DisconnectedPeer *signal.Signal1[int]
	// NewPeerMessage fan-outs every promoted peer's NewMessage signal,
	// tagged with the originating fd.
	NewPeerMessage *signal.Signal2[int, Message]
}

// Listen creates, binds and listens a SOCK_SEQPACKET socket at path,
// a socket family net.Listen cannot create.
func Listen(rt *reactivo.Runtime, path string, backlog int) (*ServerSocket, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	if err != nil {
		return nil, errors.Wrap(err, "ipc: socket")
	}
	unix.CloseOnExec(fd)

	if len(path) >= unixPathMax {
		unix.Close(fd)
		return nil, errors.Errorf("ipc: socket path %q exceeds %d bytes", path, unixPathMax-1)
	}
	_ = os.Remove(path) // stale socket file from a prior run, not a programmer error.

	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "ipc: bind %s", path)
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "ipc: listen %s", path)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "ipc: set nonblocking")
	}

	s := &ServerSocket{
		Object:           signal.NewObject(),
		rt:               rt,
		fd:               fd,
		path:             path,
		pending:          make(map[int]peerRecord),
		clients:          make(map[int]*ClientSocket),
		NewPeerRequest:   signal.NewSignal3[int, string, PeerCred](rt.Queue()),
		ConnectedPeer:    signal.NewSignal1[int](rt.Queue()),
		DisconnectedPeer: signal.NewSignal1[int](rt.Queue()),
		NewPeerMessage:   signal.NewSignal2[int, Message](rt.Queue()),
	}
	s.poll = event.NewPoll(rt, fd, event.Readable|event.Error)
	s.poll.Activated.ConnectFree(s.onReadable)
	return s, nil
}

const unixPathMax = 108 // len(unix.RawSockaddrUnix{}.Path)

func (s *ServerSocket) onReadable(fd int, flags poller.Event) {
	for {
		// netutil.Accept folds the close-on-exec and non-blocking flags
		// into the accept4 syscall itself, falling back to a plain
		// accept plus two fcntls on kernels without accept4.
		nfd, sa, err := netutil.Accept(s.fd)
		if err != nil {
			if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
				log.Warnf("ipc: accept %s: %v", s.path, err)
			}
			return
		}

		addr := ""
		if un, ok := sa.(*unix.SockaddrUnix); ok {
			addr = un.Name
		}
		cred, err := getPeerCred(nfd)
		if err != nil {
			log.Warnf("ipc: peer credentials unavailable for fd=%d: %v", nfd, err)
		}

		s.mu.Lock()
		s.pending[nfd] = peerRecord{fd: nfd, addr: addr, cred: cred}
		s.mu.Unlock()

		s.NewPeerRequest.Emit(nfd, addr, cred)
	}
}

// AcceptPeerRequest promotes a pending peer into a live ClientSocket
// whose NewMessage is fanned out through NewPeerMessage. The server
// does not hand the raw fd to user code, it constructs the
// ClientSocket itself.
func (s *ServerSocket) AcceptPeerRequest(fd int) error {
	s.mu.Lock()
	rec, ok := s.pending[fd]
	if ok {
		delete(s.pending, fd)
	}
	s.mu.Unlock()
	if !ok {
		return errors.Errorf("ipc: no pending peer request for fd=%d", fd)
	}

	c, err := newAcceptedClientSocket(s.rt, rec.fd, rec.addr)
	if err != nil {
		return errors.Wrap(err, "ipc: accept peer")
	}
	c.NewMessage.ConnectFree(func(msg Message) {
		s.NewPeerMessage.Emit(fd, msg)
	})
	c.Disconnected.ConnectFree(func(int) {
		s.mu.Lock()
		delete(s.clients, fd)
		s.mu.Unlock()
		s.DisconnectedPeer.Emit(fd)
	})

	s.mu.Lock()
	s.clients[fd] = c
	s.mu.Unlock()

	metrics.Add(metrics.SocketConnsCreate, 1)
	s.ConnectedPeer.Emit(fd)
	return nil
}

// RejectPeerRequest closes and discards a pending peer.
func (s *ServerSocket) RejectPeerRequest(fd int) {
	s.mu.Lock()
	_, ok := s.pending[fd]
	delete(s.pending, fd)
	s.mu.Unlock()
	if ok {
		unix.Close(fd)
	}
}

// Write sends buf (optionally carrying passFD) to the promoted peer
// identified by fd.
func (s *ServerSocket) Write(fd int, buf []byte, passFD int) (int, error) {
	s.mu.Lock()
	c, ok := s.clients[fd]
	s.mu.Unlock()
	if !ok {
		return 0, errors.Errorf("ipc: no connected peer fd=%d", fd)
	}
	return c.Write(buf, passFD)
}

// Peers returns the fds of every currently promoted peer.
func (s *ServerSocket) Peers() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	fds := make([]int, 0, len(s.clients))
	for fd := range s.clients {
		fds = append(fds, fd)
	}
	return fds
}

// FD returns the listening socket's descriptor.
func (s *ServerSocket) FD() int { return s.fd }

// Close tears down every promoted and pending peer, then the listening
// socket itself, and removes the bound path from the filesystem.
func (s *ServerSocket) Close() error {
	s.mu.Lock()
	clients := make([]*ClientSocket, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	pending := make([]int, 0, len(s.pending))
	for fd := range s.pending {
		pending = append(pending, fd)
	}
	s.clients = make(map[int]*ClientSocket)
	s.pending = make(map[int]peerRecord)
	s.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	for _, fd := range pending {
		unix.Close(fd)
	}

	s.poll.Close()
	err := unix.Close(s.fd)
	_ = os.Remove(s.path)
	s.Object.Close()
	if err != nil {
		return errors.Wrap(err, "ipc: close listener")
	}
	return nil
}
