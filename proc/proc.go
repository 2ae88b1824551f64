// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package proc implements spawned child processes with stdio pipes, reaped via SIGCHLD, whose lifecycle transitions surface
// as signal.Signal emissions on the owning runtime's loop goroutine.
//
// This is distinct from event.Process, which watches system-wide
// process events this program did not itself spawn; proc only manages
// children it created via Spawn.
package proc

import "fmt"

// State is a child process's lifecycle state.
type State int

const (
	Initializing State = iota
	Running
	Waiting
	Stopped
	Zombie
	Finished
	Invalid
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Stopped:
		return "stopped"
	case Zombie:
		return "zombie"
	case Finished:
		return "finished"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
