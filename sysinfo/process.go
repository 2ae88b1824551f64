// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package sysinfo provides structured introspection of the local
// system: the process table, the mount table, loadable kernel modules,
// and block-device filesystem detection. The cross-platform process
// backend comes from gopsutil; the rest is parsed from the kernel's
// own text interfaces.
package sysinfo

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo is one row of the process table.
type ProcessInfo struct {
	PID        int32     `yaml:"pid"`
	PPID       int32     `yaml:"ppid"`
	Name       string    `yaml:"name"`
	Username   string    `yaml:"username"`
	Status     string    `yaml:"status"`
	CreateTime time.Time `yaml:"create_time"`
}

// Processes returns a snapshot of every process gopsutil can enumerate
// on the current platform. It is the cross-platform backend for
// event's process-table polling fallback and for a direct caller that
// only wants the table, not change notifications.
func Processes() ([]ProcessInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, errors.Wrap(err, "sysinfo: enumerate processes")
	}
	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		info, err := describe(p)
		if err != nil {
			// The process may have exited between enumeration and
			// inspection; that is not a hard error for a snapshot.
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// Process returns the current row for pid, or an error if the process
// no longer exists.
func Process(pid int32) (*ProcessInfo, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, errors.Wrapf(err, "sysinfo: process %d", pid)
	}
	info, err := describe(p)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func describe(p *process.Process) (ProcessInfo, error) {
	name, _ := p.Name()
	ppid, _ := p.Ppid()
	username, _ := p.Username()
	createMs, _ := p.CreateTime()
	statuses, err := p.Status()
	if err != nil {
		return ProcessInfo{}, err
	}
	status := ""
	if len(statuses) > 0 {
		status = statuses[0]
	}
	return ProcessInfo{
		PID:        p.Pid,
		PPID:       ppid,
		Name:       name,
		Username:   username,
		Status:     status,
		CreateTime: time.UnixMilli(createMs),
	}, nil
}
