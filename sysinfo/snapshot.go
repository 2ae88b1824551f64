// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package sysinfo

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Snapshot aggregates a point-in-time view of the host's process
// table, mount table, loaded modules and detected block devices, for
// diagnostic dumps and tests comparing introspection state across two
// points in time.
type Snapshot struct {
	Processes   []ProcessInfo `yaml:"processes"`
	Mounts      []MountEntry  `yaml:"mounts"`
	Modules     []ModuleInfo  `yaml:"modules,omitempty"`
	BlockDevice []BlockDevice `yaml:"block_devices,omitempty"`
}

// Capture builds a Snapshot from the live system state. Modules and
// BlockDevices are best-effort: ErrUnsupported on non-Linux platforms
// is swallowed rather than failing the whole snapshot.
func Capture() (*Snapshot, error) {
	procs, err := Processes()
	if err != nil {
		return nil, errors.Wrap(err, "sysinfo: capture processes")
	}
	mounts, err := Mounts()
	if err != nil {
		return nil, errors.Wrap(err, "sysinfo: capture mounts")
	}

	snap := &Snapshot{Processes: procs, Mounts: mounts}

	if mods, err := Modules(); err == nil {
		snap.Modules = mods
	} else if !errors.Is(err, ErrUnsupported) {
		return nil, errors.Wrap(err, "sysinfo: capture modules")
	}

	if devs, err := BlockDevices(); err == nil {
		snap.BlockDevice = devs
	} else if !errors.Is(err, ErrUnsupported) {
		return nil, errors.Wrap(err, "sysinfo: capture block devices")
	}

	return snap, nil
}

// Dump renders the snapshot as YAML, matching the config and metrics
// packages' text-dump conventions.
func (s *Snapshot) Dump() (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "sysinfo: marshal snapshot")
	}
	return string(out), nil
}
