// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package event

import (
	"time"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/signal"
)

// Timer emits Expired once (one-shot) or repeatedly at a fixed
// interval. The native source is platform-specific: timerfd on Linux,
// kqueue EVFILT_TIMER on the BSDs, a self-pipe woken by
// time.AfterFunc/time.Ticker everywhere else -- see timer_linux.go /
// timer_bsd.go / timer_other.go.
type Timer struct {
	*signal.Object

	// Expired fires with no arguments each time the timer elapses.
	Expired *signal.Signal0

	closeFn func()
}

// NewTimer constructs and arms a Timer against rt's loop. If repeat is
// false the timer fires once; its underlying source stays registered
// until Close is called.
func NewTimer(rt *reactivo.Runtime, d time.Duration, repeat bool) (*Timer, error) {
	t := &Timer{
		Object:  signal.NewObject(),
		Expired: signal.NewSignal0(rt.Queue()),
	}
	closeFn, err := newTimerSource(rt, d, repeat, func() {
		t.Expired.Emit()
	})
	if err != nil {
		return nil, err
	}
	t.closeFn = closeFn
	return t, nil
}

// Close disarms the timer and releases its native source.
func (t *Timer) Close() {
	if t.closeFn != nil {
		t.closeFn()
		t.closeFn = nil
	}
	t.Object.Close()
}
