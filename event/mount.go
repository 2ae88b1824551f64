// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package event

import (
	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/signal"
	"github.com/reactivo/reactivo/sysinfo"
)

// Mount watches the live mount table for changes. On Linux the
// underlying /proc/self/mounts fd is registered for readiness
// directly with the runtime's backend; elsewhere a 10-second Timer
// diffs sysinfo.Mounts() snapshots.
type Mount struct {
	*signal.Object

	// Mounted fires with (device, path) for each newly observed entry.
	Mounted *signal.Signal2[string, string]
	// Unmounted fires with (device, path) for each entry that vanished.
	Unmounted *signal.Signal2[string, string]

	last    []sysinfo.MountEntry
	closeFn func()
}

// NewMount constructs and arms a Mount watcher against rt's loop.
func NewMount(rt *reactivo.Runtime) (*Mount, error) {
	last, err := sysinfo.Mounts()
	if err != nil {
		return nil, err
	}
	m := &Mount{
		Object:    signal.NewObject(),
		Mounted:   signal.NewSignal2[string, string](rt.Queue()),
		Unmounted: signal.NewSignal2[string, string](rt.Queue()),
		last:      last,
	}
	closeFn, err := newMountSource(rt, m.tick)
	if err != nil {
		return nil, err
	}
	m.closeFn = closeFn
	return m, nil
}

// tick re-reads the mount table and emits exactly one Mounted or
// Unmounted signal per entry that appeared or disappeared since the
// last observed snapshot, satisfying the polling-fallback invariant
// of "transitions emit signals exactly once per observed change".
func (m *Mount) tick() {
	current, err := sysinfo.Mounts()
	if err != nil {
		return
	}
	if sysinfo.MountsEqual(m.last, current) {
		return
	}
	diffMounts(m.last, current,
		func(device, path string) { m.Mounted.Emit(device, path) },
		func(device, path string) { m.Unmounted.Emit(device, path) })
	m.last = current
}

// diffMounts reports entries present in current but not prev via
// onMount, and entries present in prev but not current via onUnmount,
// keyed by (device, path) pair.
func diffMounts(prev, current []sysinfo.MountEntry, onMount, onUnmount func(device, path string)) {
	prevSet := make(map[string]sysinfo.MountEntry, len(prev))
	for _, e := range prev {
		prevSet[e.Device+"\x00"+e.Path] = e
	}
	curSet := make(map[string]sysinfo.MountEntry, len(current))
	for _, e := range current {
		curSet[e.Device+"\x00"+e.Path] = e
	}

	for key, e := range curSet {
		if _, ok := prevSet[key]; !ok {
			onMount(e.Device, e.Path)
		}
	}
	for key, e := range prevSet {
		if _, ok := curSet[key]; !ok {
			onUnmount(e.Device, e.Path)
		}
	}
}

// Close tears down the native source.
func (m *Mount) Close() {
	if m.closeFn != nil {
		m.closeFn()
		m.closeFn = nil
	}
	m.Object.Close()
}
