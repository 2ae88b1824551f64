// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build !linux && !freebsd && !dragonfly && !darwin && !netbsd && !openbsd
// +build !linux,!freebsd,!dragonfly,!darwin,!netbsd,!openbsd

package event

import (
	"os"
	"time"

	"github.com/reactivo/reactivo"
)

// fileDecaySchedule is the stat() poll cadence for platforms with
// neither inotify nor kqueue: 1s while
// the watch is fresh, backing off to 10s, then settling at 100s for
// long-lived watches, so an idle watch doesn't stat forever at high
// frequency.
var fileDecaySchedule = []time.Duration{time.Second, 10 * time.Second, 100 * time.Second}

type fileStat struct {
	size    int64
	modTime time.Time
	exists  bool
}

func statFile(path string) fileStat {
	info, err := os.Stat(path)
	if err != nil {
		return fileStat{exists: false}
	}
	return fileStat{size: info.Size(), modTime: info.ModTime(), exists: true}
}

// newFileSource polls path with backoff, diffing the last-known stat()
// result on each tick and emitting exactly one signal per observed
// transition.
func newFileSource(rt *reactivo.Runtime, path string, onChange func(FileFlags)) (func(), error) {
	last := statFile(path)
	scheduleIdx := 0

	var timer *Timer
	closed := false

	var armNext func()
	tick := func() {
		if closed {
			return
		}
		current := statFile(path)
		switch {
		case !last.exists && current.exists:
			onChange(FileWriteEvent)
			scheduleIdx = 0
		case last.exists && !current.exists:
			onChange(FileDeleted)
			scheduleIdx = 0
		case last.exists && current.exists &&
			(current.size != last.size || !current.modTime.Equal(last.modTime)):
			onChange(FileWriteEvent)
			scheduleIdx = 0
		default:
			if scheduleIdx < len(fileDecaySchedule)-1 {
				scheduleIdx++
			}
		}
		last = current
		armNext()
	}

	armNext = func() {
		if closed {
			return
		}
		if timer != nil {
			timer.Close()
		}
		t, err := NewTimer(rt, fileDecaySchedule[scheduleIdx], false)
		if err != nil {
			return
		}
		t.Expired.ConnectFree(tick)
		timer = t
	}
	armNext()

	return func() {
		closed = true
		if timer != nil {
			timer.Close()
		}
	}, nil
}
