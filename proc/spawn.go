// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package proc

import (
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/event"
	"github.com/reactivo/reactivo/internal/poller"
	"github.com/reactivo/reactivo/internal/safejob"
	"github.com/reactivo/reactivo/metrics"
	"github.com/reactivo/reactivo/signal"
)

// Process is one spawned child: three stdio pipes plus a state
// machine surfaced as signals, reaped by a process-wide SIGCHLD
// handler rather than a synchronous Wait call.
type Process struct {
	*signal.Object

	rt   *reactivo.Runtime
	pid  int
	path string
	args []string
	opts spawnOptions

	stdin            *os.File
	stdout, stderr   *os.File
	outPoll, errPoll *event.Poll

	mu    sync.Mutex
	state State

	// ioGuard lets concurrent StdinWrite calls run against the stdin
	// pipe while it's open, but blocks all of them out -- instead of
	// racing a Write against a Close -- once the reaper goroutine tears
	// the pipes down on exit, matching safejob.ConcurrentJob's
	// many-readers/one-closer contract.
	ioGuard safejob.ConcurrentJob

	// Started fires on WIFCONTINUED (also once, synthetically, right
	// after a successful Start).
	Started *signal.Signal1[int]
	// StoppedSig fires on WIFSTOPPED.
	StoppedSig *signal.Signal1[int]
	// Finished fires exactly once with (pid, exitCode) on a normal exit.
	Finished *signal.Signal2[int, int]
	// Killed fires exactly once with (pid, signal) on a signaled exit.
	Killed *signal.Signal2[int, int]
	// StdoutData / StderrData fire with each chunk read from the
	// corresponding pipe.
	StdoutData *signal.Signal1[[]byte]
	StderrData *signal.Signal1[[]byte]
}

// SpawnOption configures Spawn.
type SpawnOption struct {
	f func(*spawnOptions)
}

type spawnOptions struct {
	env []string
	dir string
	uid *uint32
	gid *uint32
}

// WithEnv sets the child's environment, replacing the inherited one.
func WithEnv(env []string) SpawnOption {
	return SpawnOption{func(o *spawnOptions) { o.env = env }}
}

// WithWorkingDir sets the child's working directory.
func WithWorkingDir(dir string) SpawnOption {
	return SpawnOption{func(o *spawnOptions) { o.dir = dir }}
}

// WithCredentials sets the uid/gid the child execs as, matching the
// pldstub protocol's 0x07/0x08 opcodes' semantics for the direct-exec
// launch path.
func WithCredentials(uid, gid uint32) SpawnOption {
	return SpawnOption{func(o *spawnOptions) { o.uid, o.gid = &uid, &gid }}
}

// New prepares a Process for path with args without launching it. The
// returned Process is in state Initializing; connect slots to its
// signals, then call Start. Splitting construction from launch closes
// the window where a fast child could exit -- and have its Finished
// emission traverse zero bindings -- before the caller had a chance to
// connect.
func New(rt *reactivo.Runtime, path string, args []string, opts ...SpawnOption) *Process {
	o := spawnOptions{env: os.Environ()}
	for _, opt := range opts {
		opt.f(&o)
	}
	return &Process{
		Object:     signal.NewObject(),
		rt:         rt,
		path:       path,
		args:       args,
		opts:       o,
		state:      Initializing,
		Started:    signal.NewSignal1[int](rt.Queue()),
		StoppedSig: signal.NewSignal1[int](rt.Queue()),
		Finished:   signal.NewSignal2[int, int](rt.Queue()),
		Killed:     signal.NewSignal2[int, int](rt.Queue()),
		StdoutData: signal.NewSignal1[[]byte](rt.Queue()),
		StderrData: signal.NewSignal1[[]byte](rt.Queue()),
	}
}

// Start launches the prepared process, wiring three pipes for stdin/
// stdout/stderr and registering the new pid with the process-wide
// reaper. The Process transitions to Running (via a synthetic Started
// emission), or to Invalid with errno preserved if the exec itself
// failed. Starting an already-started Process is a programmer error,
// reported without side effects.
func (p *Process) Start() error {
	p.mu.Lock()
	if p.state != Initializing {
		state := p.state
		p.mu.Unlock()
		return errors.Errorf("proc: start in state %s", state)
	}
	p.mu.Unlock()

	// The parent keeps the stdin-write/stdout-read/stderr-read ends,
	// the child inherits the opposite ends as its stdio. cmd.Start
	// closes the child-held ends in the parent automatically (os/exec's
	// closeAfterStart).
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return errors.Wrap(err, "proc: stdin pipe")
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return errors.Wrap(err, "proc: stdout pipe")
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return errors.Wrap(err, "proc: stderr pipe")
	}

	cmd := exec.Command(p.path, p.args...)
	cmd.Env = p.opts.env
	cmd.Dir = p.opts.dir
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	if p.opts.uid != nil || p.opts.gid != nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{Credential: &syscall.Credential{}}
		if p.opts.uid != nil {
			cmd.SysProcAttr.Credential.Uid = *p.opts.uid
		}
		if p.opts.gid != nil {
			cmd.SysProcAttr.Credential.Gid = *p.opts.gid
		}
	}

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		p.mu.Lock()
		p.state = Invalid
		p.mu.Unlock()
		return errors.Wrap(err, "proc: start")
	}
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	p.pid = cmd.Process.Pid
	p.stdin = stdinW
	p.stdout = stdoutR
	p.stderr = stderrR

	unix.SetNonblock(int(p.stdout.Fd()), true)
	unix.SetNonblock(int(p.stderr.Fd()), true)
	p.outPoll = event.NewPoll(p.rt, int(p.stdout.Fd()), event.Readable|event.Disconnected)
	p.outPoll.Activated.ConnectFree(p.onStdoutReadable)
	p.errPoll = event.NewPoll(p.rt, int(p.stderr.Fd()), event.Readable|event.Disconnected)
	p.errPoll.Activated.ConnectFree(p.onStderrReadable)

	p.mu.Lock()
	p.state = Running
	p.mu.Unlock()

	metrics.Add(metrics.ProcSpawned, 1)
	// Started is enqueued before registration so that a child that has
	// already exited -- whose buffered wait status register delivers
	// immediately -- still surfaces Started ahead of Finished.
	p.Started.Emit(p.pid)
	register(p)
	return nil
}

// Spawn is New followed immediately by Start, for callers that do not
// need any of the lifecycle signals a fast child could emit before
// they connect (a supervisor that only consumes StdoutData from a
// long-lived daemon, say).
func Spawn(rt *reactivo.Runtime, path string, args []string, opts ...SpawnOption) (*Process, error) {
	p := New(rt, path, args, opts...)
	if err := p.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Process) onStdoutReadable(fd int, flags poller.Event) {
	buf := make([]byte, 4096)
	n, err := p.stdout.Read(buf)
	if n > 0 {
		p.StdoutData.Emit(buf[:n])
	}
	_ = err
}

func (p *Process) onStderrReadable(fd int, flags poller.Event) {
	buf := make([]byte, 4096)
	n, err := p.stderr.Read(buf)
	if n > 0 {
		p.StderrData.Emit(buf[:n])
	}
	_ = err
}

// PID returns the child's process id.
func (p *Process) PID() int { return p.pid }

// State returns the cached state, refreshed via the OS process table
// for any non-sticky state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return refreshState(p.pid, p.state)
}

// SendSignal delivers sig to the child -- a real-time queued signal
// on Linux when the signal number falls in the RT range, a plain kill
// elsewhere.
func (p *Process) SendSignal(sig int, value int) error {
	return sendSignal(p.pid, sig, value)
}

// StdinWrite writes buf to the child's stdin. Returns an error without
// writing if the child's pipes have already been torn down.
func (p *Process) StdinWrite(buf []byte) (int, error) {
	if !p.ioGuard.Begin() {
		return 0, errors.Errorf("proc: pid %d: stdin closed", p.pid)
	}
	defer p.ioGuard.End()
	if p.stdin == nil {
		return 0, errors.New("proc: process not started")
	}
	return p.stdin.Write(buf)
}

func (p *Process) closePipes() {
	p.ioGuard.Close()
	p.outPoll.Close()
	p.errPoll.Close()
	p.stdin.Close()
	p.stdout.Close()
	p.stderr.Close()
}
