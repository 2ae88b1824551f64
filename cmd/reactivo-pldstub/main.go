// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Command reactivo-pldstub is the receiving end of the pldstub
// protocol (package pldstub): it reads opcodes from stdin, applies
// each one (stat'ing an executable, setenv'ing a variable, validating
// a working directory, adjusting priority or credentials), writes a
// status response after each, and finally execs the accumulated
// command line on OpInvoke.
package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/reactivo/reactivo/pldstub"
)

// canRead polls fd 0 for readability within timeoutMs milliseconds.
func canRead(timeoutMs int) bool {
	fds := []unix.PollFd{{Fd: 0, Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeoutMs)
	return err == nil && n > 0
}

type state struct {
	executable string
	workingDir string
	args       []string
}

func main() {
	var st state

	for canRead(1000) { // one second of idle before the helper gives up
		op, err := pldstub.ReadOpcode(os.Stdin)
		if err != nil {
			os.Exit(1)
		}

		switch op {
		case pldstub.OpInvoke:
			err := handleInvoke(&st)
			// handleInvoke only returns on exec failure -- success
			// replaces this process image.
			var errno syscall.Errno
			if errors.As(err, &errno) {
				os.Exit(int(errno))
			}
			os.Exit(1)

		case pldstub.OpExecutable:
			handleExecutable(&st)

		case pldstub.OpArguments:
			handleArguments(&st)

		case pldstub.OpEnvironment:
			handleEnvironment()

		case pldstub.OpEnvironmentVar:
			handleEnvironmentVar()

		case pldstub.OpResource:
			handleResource()

		case pldstub.OpWorkingDir:
			handleWorkingDir(&st)

		case pldstub.OpPriority:
			handlePriority()

		case pldstub.OpUID:
			handleCredential(setuidSet)
		case pldstub.OpGID:
			handleCredential(setgidSet)
		case pldstub.OpEUID:
			handleCredential(seteuidSet)
		case pldstub.OpEGID:
			handleCredential(setegidSet)

		default:
			// EBADRQC: invalid request code. The errno value is spelled
			// out because not every libc exposes the constant.
			writeErrnoValue(56)
			fmt.Fprintf(os.Stderr, "reactivo-pldstub: unknown opcode %v\n", op)
			os.Exit(1)
		}
	}
}

func handleExecutable(st *state) {
	path, err := pldstub.ReadString(os.Stdin)
	if err != nil {
		os.Exit(1)
	}
	st.executable = path

	fi, statErr := os.Stat(path)
	switch {
	case statErr != nil:
		writeErrno(statErr)
	case fi.IsDir():
		writeErrnoValue(int32(unix.EACCES))
	case fi.Mode()&0111 == 0:
		writeErrnoValue(int32(unix.EACCES))
	default:
		_ = pldstub.WriteResponse(os.Stdout, 0)
	}
}

func handleArguments(st *state) {
	var args []string
	for {
		a, err := pldstub.ReadString(os.Stdin)
		if err != nil {
			os.Exit(1)
		}
		if a == "" {
			break
		}
		args = append(args, a)
	}
	st.args = args
	if len(args) == 0 {
		_ = pldstub.WriteResponse(os.Stdout, -1)
		return
	}
	_ = pldstub.WriteResponse(os.Stdout, 0)
}

func handleEnvironmentVar() {
	key, err := pldstub.ReadString(os.Stdin)
	if err != nil {
		os.Exit(1)
	}
	value, err := pldstub.ReadString(os.Stdin)
	if err != nil {
		os.Exit(1)
	}
	writeErrno(os.Setenv(key, value))
}

// handleEnvironment reads repeated key/value string pairs until an
// empty key terminates the list, replacing the inherited environment
// wholesale.
func handleEnvironment() {
	os.Clearenv()
	for {
		key, err := pldstub.ReadString(os.Stdin)
		if err != nil {
			os.Exit(1)
		}
		if key == "" {
			break
		}
		value, err := pldstub.ReadString(os.Stdin)
		if err != nil {
			os.Exit(1)
		}
		if err := os.Setenv(key, value); err != nil {
			writeErrno(err)
			return
		}
	}
	_ = pldstub.WriteResponse(os.Stdout, 0)
}

// setLimit absorbs the platform-dependent integer type of
// unix.Rlimit's fields (unsigned on Linux, signed on the BSDs).
func setLimit[T ~int64 | ~uint64](dst *T, v uint64) { *dst = T(v) }

// handleResource applies one setrlimit request: a resource id followed
// by soft and hard limit values.
func handleResource() {
	res, err := pldstub.ReadInt32(os.Stdin)
	if err != nil {
		os.Exit(1)
	}
	cur, err := pldstub.ReadUint64(os.Stdin)
	if err != nil {
		os.Exit(1)
	}
	hard, err := pldstub.ReadUint64(os.Stdin)
	if err != nil {
		os.Exit(1)
	}
	var rl unix.Rlimit
	setLimit(&rl.Cur, cur)
	setLimit(&rl.Max, hard)
	writeErrno(unix.Setrlimit(int(res), &rl))
}

func handleWorkingDir(st *state) {
	dir, err := pldstub.ReadString(os.Stdin)
	if err != nil {
		os.Exit(1)
	}
	st.workingDir = dir

	fi, statErr := os.Stat(dir)
	switch {
	case statErr != nil:
		writeErrno(statErr)
	case !fi.IsDir():
		writeErrnoValue(int32(unix.EACCES))
	case fi.Mode()&0111 == 0:
		writeErrnoValue(int32(unix.EACCES))
	default:
		_ = pldstub.WriteResponse(os.Stdout, 0)
	}
}

func handlePriority() {
	prio, err := pldstub.ReadInt32(os.Stdin)
	if err != nil {
		os.Exit(1)
	}
	writeErrno(unix.Setpriority(unix.PRIO_PROCESS, os.Getpid(), int(prio)))
}

type credentialSetter func(id int) error

var (
	setuidSet  credentialSetter = func(id int) error { return unix.Setuid(id) }
	setgidSet  credentialSetter = func(id int) error { return unix.Setgid(id) }
	seteuidSet credentialSetter = func(id int) error { return syscall.Seteuid(id) }
	setegidSet credentialSetter = func(id int) error { return syscall.Setegid(id) }
)

func handleCredential(set credentialSetter) {
	id, err := pldstub.ReadInt32(os.Stdin)
	if err != nil {
		os.Exit(1)
	}
	writeErrno(set(int(id)))
}

// handleInvoke execs the accumulated command line -- on success this
// process image is replaced and never returns; on
// failure it writes nothing back (there is no longer a protocol peer
// listening once the controller has sent invoke) and exits with the
// errno.
func handleInvoke(st *state) error {
	exe := st.executable
	args := st.args
	if exe == "" && len(args) > 0 {
		exe = args[0]
	}
	if len(args) == 0 {
		args = []string{exe}
	}
	if st.workingDir != "" {
		if err := os.Chdir(st.workingDir); err != nil {
			fmt.Fprintf(os.Stderr, "reactivo-pldstub: chdir %s: %v\n", st.workingDir, err)
			return err
		}
	}
	err := syscall.Exec(exe, args, os.Environ())
	fmt.Fprintf(os.Stderr, "reactivo-pldstub: exec %s: %v\n", exe, err)
	return err
}

func writeErrno(err error) {
	if err == nil {
		_ = pldstub.WriteResponse(os.Stdout, 0)
		return
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		_ = pldstub.WriteResponse(os.Stdout, int32(errno))
		return
	}
	_ = pldstub.WriteResponse(os.Stdout, -1)
}

func writeErrnoValue(v int32) {
	_ = pldstub.WriteResponse(os.Stdout, v)
}
