// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package sysinfo

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RawStat holds the exact kernel fields of /proc/<pid>/stat that
// gopsutil's cross-platform ProcessInfo does not expose directly --
// in particular the process state letter and start time in clock
// ticks, which proc.Process.State needs to classify a child as
// Running/Waiting/Stopped.
type RawStat struct {
	PID       int
	Comm      string
	State     byte
	PPID      int
	PGRP      int
	Session   int
	StartTime uint64 // clock ticks since boot
}

// ReadRawStat reads /proc/<pid>/stat directly, the column layout the
// Linux kernel documents in proc(5). The comm field is parenthesized
// and may itself contain spaces, so it is located by the last ')'
// rather than split on whitespace naively.
func ReadRawStat(pid int) (*RawStat, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return nil, errors.Wrapf(err, "sysinfo: read /proc/%d/stat", pid)
	}
	line := string(data)
	open := strings.IndexByte(line, '(')
	close := strings.LastIndexByte(line, ')')
	if open < 0 || close < 0 || close < open {
		return nil, errors.Errorf("sysinfo: malformed stat line for pid %d", pid)
	}
	comm := line[open+1 : close]
	fields := strings.Fields(line[close+2:])
	// fields[0] is state; PPID/PGRP/Session are fields[1:4]; starttime
	// is field index 19 (0-based) of the fields *following* comm, i.e.
	// kernel field 22 overall.
	if len(fields) < 20 {
		return nil, errors.Errorf("sysinfo: short stat line for pid %d", pid)
	}
	ppid, _ := strconv.Atoi(fields[1])
	pgrp, _ := strconv.Atoi(fields[2])
	session, _ := strconv.Atoi(fields[3])
	startTime, _ := strconv.ParseUint(fields[19], 10, 64)
	return &RawStat{
		PID:       pid,
		Comm:      comm,
		State:     fields[0][0],
		PPID:      ppid,
		PGRP:      pgrp,
		Session:   session,
		StartTime: startTime,
	}, nil
}
