// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package event

import (
	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/signal"
)

// FileFlags is the portable subset of filesystem change reasons a
// File watcher can report, independent of the underlying inotify mask
// or stat-diff heuristic that produced it.
type FileFlags uint32

const (
	FileReadEvent FileFlags = 1 << iota
	FileWriteEvent
	FileAttributeMod
	FileMoved
	FileDeleted
)

// File watches a single path for content and lifecycle changes. Linux
// sources from inotify, the BSDs from kqueue EVFILT_VNODE; everywhere
// else a decaying stat() poll.
type File struct {
	*signal.Object

	// Activated fires with (path, flags) for each observed change.
	Activated *signal.Signal2[string, FileFlags]

	closeFn func()
}

// NewFile constructs and arms a File watcher on path against rt's
// loop.
func NewFile(rt *reactivo.Runtime, path string) (*File, error) {
	f := &File{
		Object:    signal.NewObject(),
		Activated: signal.NewSignal2[string, FileFlags](rt.Queue()),
	}
	closeFn, err := newFileSource(rt, path, func(flags FileFlags) {
		f.Activated.Emit(path, flags)
	})
	if err != nil {
		return nil, err
	}
	f.closeFn = closeFn
	return f, nil
}

// Close tears down the native source.
func (f *File) Close() {
	if f.closeFn != nil {
		f.closeFn()
		f.closeFn = nil
	}
	f.Object.Close()
}
