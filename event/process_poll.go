// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package event

import (
	"time"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/sysinfo"
)

// processPollInterval is the generic process-table diff period. Unlike
// File's decay schedule, the process table is cheap enough to diff on
// a fixed cadence.
const processPollInterval = 2 * time.Second

// newProcessPollSource is the portable fallback sourcing for Process:
// a ticking Timer diffs sysinfo.Processes() against the last snapshot
// and emits Execed/Exited for pids that appeared or disappeared. It
// cannot distinguish fork from exec, or a normal exit from a signaled
// one, without a native event source, so Exited always carries exit
// code 0 on this path.
func newProcessPollSource(rt *reactivo.Runtime, p *Process) (func(), error) {
	last, err := snapshotPIDs()
	if err != nil {
		return nil, err
	}

	timer, err := NewTimer(rt, processPollInterval, true)
	if err != nil {
		return nil, err
	}

	timer.Expired.ConnectFree(func() {
		current, err := snapshotPIDs()
		if err != nil {
			return
		}
		diffPIDs(last, current, func(pid int) { p.Execed.Emit(pid) }, func(pid int) { p.Exited.Emit(pid, 0) })
		last = current
	})

	return func() { timer.Close() }, nil
}

// diffPIDs reports pids present in current but not last via onExec,
// and pids present in last but not current via onExit.
func diffPIDs(last, current map[int]struct{}, onExec, onExit func(pid int)) {
	for pid := range current {
		if _, ok := last[pid]; !ok {
			onExec(pid)
		}
	}
	for pid := range last {
		if _, ok := current[pid]; !ok {
			onExit(pid)
		}
	}
}

func snapshotPIDs() (map[int]struct{}, error) {
	procs, err := sysinfo.Processes()
	if err != nil {
		return nil, err
	}
	out := make(map[int]struct{}, len(procs))
	for _, proc := range procs {
		out[int(proc.PID)] = struct{}{}
	}
	return out, nil
}
