// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package pldstub

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// Conn is the minimal interface a driver needs against a helper
// process's stdio pipes: a ReadWriter plus a read deadline (the helper
// blocks up to one second waiting for the next opcode, then exits).
type Conn interface {
	io.Reader
	io.Writer
	SetReadDeadline(t time.Time) error
}

// HelperTimeout is the helper's per-opcode idle deadline: if the
// controller doesn't send another opcode within this window, the
// helper is entitled to exit.
const HelperTimeout = time.Second

// Command is the typed, language-level view of a launch request;
// Drive serializes it as a sequence of opcodes against a running
// helper: executable, then working directory, then environment
// variables, then arguments, then credentials/priority, then invoke.
type Command struct {
	Executable string
	Args       []string
	// Env entries are sent one variable at a time (environmentvar)
	// unless ReplaceEnv is set, in which case the whole map travels as
	// one environment block that replaces the child's inherited
	// environment.
	Env        map[string]string
	ReplaceEnv bool
	WorkingDir string

	HasUID, HasGID, HasEUID, HasEGID bool
	UID, GID, EUID, EGID             uint32

	HasPriority bool
	Priority    int32

	// Rlimits are applied in order via the resource opcode.
	Rlimits []Rlimit
}

// Rlimit is one resource-limit request: a resource id plus soft and
// hard values.
type Rlimit struct {
	Resource int32
	Cur, Max uint64
}

// Drive issues cmd's fields against conn in protocol order and reads
// back each opcode's response, returning the first non-zero status as
// an error (any status but zero is an errno from the helper). On full
// success it issues OpInvoke last; since invoke never
// returns a response on the wire (the helper either execs or exits
// nonzero), Drive returns nil once invoke has been written.
func Drive(conn Conn, cmd Command) error {
	if err := conn.SetReadDeadline(time.Now().Add(HelperTimeout)); err != nil {
		return errors.Wrap(err, "pldstub: set deadline")
	}

	if cmd.Executable != "" {
		if err := sendString(conn, OpExecutable, cmd.Executable); err != nil {
			return err
		}
	}
	if cmd.WorkingDir != "" {
		if err := sendString(conn, OpWorkingDir, cmd.WorkingDir); err != nil {
			return err
		}
	}
	if cmd.ReplaceEnv {
		if err := sendEnvironment(conn, cmd.Env); err != nil {
			return err
		}
	} else {
		for k, v := range cmd.Env {
			if err := sendEnvVar(conn, k, v); err != nil {
				return err
			}
		}
	}
	if len(cmd.Args) > 0 {
		if err := sendArguments(conn, cmd.Args); err != nil {
			return err
		}
	}
	if cmd.HasPriority {
		if err := sendInt(conn, OpPriority, cmd.Priority); err != nil {
			return err
		}
	}
	if cmd.HasUID {
		if err := sendInt(conn, OpUID, int32(cmd.UID)); err != nil {
			return err
		}
	}
	if cmd.HasGID {
		if err := sendInt(conn, OpGID, int32(cmd.GID)); err != nil {
			return err
		}
	}
	if cmd.HasEUID {
		if err := sendInt(conn, OpEUID, int32(cmd.EUID)); err != nil {
			return err
		}
	}
	if cmd.HasEGID {
		if err := sendInt(conn, OpEGID, int32(cmd.EGID)); err != nil {
			return err
		}
	}
	for _, rl := range cmd.Rlimits {
		if err := sendRlimit(conn, rl); err != nil {
			return err
		}
	}

	return WriteOpcode(conn, OpInvoke)
}

func sendString(conn Conn, op Opcode, s string) error {
	if err := WriteOpcode(conn, op); err != nil {
		return err
	}
	if err := WriteString(conn, s); err != nil {
		return err
	}
	return expectSuccess(conn, op)
}

func sendInt(conn Conn, op Opcode, v int32) error {
	if err := WriteOpcode(conn, op); err != nil {
		return err
	}
	if err := WriteInt32(conn, v); err != nil {
		return err
	}
	return expectSuccess(conn, op)
}

func sendEnvVar(conn Conn, key, value string) error {
	if err := WriteOpcode(conn, OpEnvironmentVar); err != nil {
		return err
	}
	if err := WriteString(conn, key); err != nil {
		return err
	}
	if err := WriteString(conn, value); err != nil {
		return err
	}
	return expectSuccess(conn, OpEnvironmentVar)
}

// sendEnvironment writes every key/value pair as successive string
// fields, terminated by an empty key, mirroring sendArguments' explicit
// terminator.
func sendEnvironment(conn Conn, env map[string]string) error {
	if err := WriteOpcode(conn, OpEnvironment); err != nil {
		return err
	}
	for k, v := range env {
		if err := WriteString(conn, k); err != nil {
			return err
		}
		if err := WriteString(conn, v); err != nil {
			return err
		}
	}
	if err := WriteString(conn, ""); err != nil {
		return err
	}
	return expectSuccess(conn, OpEnvironment)
}

// sendArguments writes argv[0]..argv[n-1] as successive string fields
// followed by a zero-length terminator -- the receiver keeps reading
// fields until one comes back empty, so the terminator is an explicit
// empty field rather than a read timeout, and Drive stays
// deterministic.
func sendArguments(conn Conn, args []string) error {
	if err := WriteOpcode(conn, OpArguments); err != nil {
		return err
	}
	for _, a := range args {
		if err := WriteString(conn, a); err != nil {
			return err
		}
	}
	if err := WriteString(conn, ""); err != nil {
		return err
	}
	return expectSuccess(conn, OpArguments)
}

func sendRlimit(conn Conn, rl Rlimit) error {
	if err := WriteOpcode(conn, OpResource); err != nil {
		return err
	}
	if err := WriteInt32(conn, rl.Resource); err != nil {
		return err
	}
	if err := WriteUint64(conn, rl.Cur); err != nil {
		return err
	}
	if err := WriteUint64(conn, rl.Max); err != nil {
		return err
	}
	return expectSuccess(conn, OpResource)
}

func expectSuccess(conn Conn, op Opcode) error {
	status, err := ReadResponse(conn)
	if err != nil {
		return errors.Wrapf(err, "pldstub: read response for %s", op)
	}
	if status != 0 {
		return errors.Errorf("pldstub: %s failed: errno %d", op, status)
	}
	return nil
}
