//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 THL A29 Limited, a Tencent company.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package metrics provides runtime monitoring counters for the core
// loop and its collaborators: poll-wait efficiency, signal-queue
// throughput, socket connection churn, and child-process reaping.
package metrics

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// All metrics definitions.
const (
	// Poller
	PollWait = iota
	PollNoWait
	PollEvents

	// Signal queue / application loop
	TaskAssigned
	SignalEmits
	SignalDrops

	// Socket layer (ipc)
	SocketConnsCreate
	SocketConnsClose
	SocketWriteCalls
	SocketWriteFails
	SocketWriteBytes
	SocketReadCalls
	SocketReadFails
	SocketReadBytes
	SocketFDsPassed

	// Child process layer (proc)
	ProcSpawned
	ProcFinished
	ProcKilled

	// PollWakeups counts every turn of the application loop for which
	// Poll reported at least one ready registration.
	PollWakeups

	Max
)

var (
	metrics [Max]atomic.Uint64
)

// Add metrics counter.
func Add(name int, delta uint64) {
	if name >= Max {
		return
	}
	metrics[name].Add(delta)
}

// Get one metric counter.
func Get(name int) uint64 {
	if name >= Max {
		return 0
	}
	return metrics[name].Load()
}

// GetAll get all metrics.
func GetAll() [Max]uint64 {
	var m [Max]uint64
	for i := range metrics {
		m[i] = metrics[i].Load()
	}
	return m
}

// ShowMetricsOfPeriod shows metric info of duration d from now on.
// It will block d duration, and then prints metrics info.
func ShowMetricsOfPeriod(d time.Duration) {
	old := GetAll()
	<-time.After(d)
	latest := GetAll()
	var m [Max]uint64
	for i := range metrics {
		m[i] = latest[i] - old[i]
	}
	showAll(m)
}

// ShowMetrics shows metric info in console.
func ShowMetrics() {
	m := GetAll()
	showAll(m)
}

func showAll(m [Max]uint64) {
	fmt.Println("######### reactivo metrics (", time.Now().Format("2006-01-02 15:04:05"), ") ###########")
	showPollMetrics(m)
	showSocketMetrics(m)
	showProcMetrics(m)
	fmt.Printf("%-59s: %d\n", "# number of task assigned (Submit)", m[TaskAssigned])
	fmt.Printf("\n")
}

func showPollMetrics(m [Max]uint64) {
	fmt.Printf("%-59s: %d\n", "# POLL - number of Wait returns", m[PollWait])
	fmt.Printf("%-59s: %d\n", "# POLL - number of Wait calls with msec=0", m[PollNoWait])
	fmt.Printf("%-59s: %d\n", "# POLL - number of total events", m[PollEvents])
	if m[PollWait] > 0 {
		fmt.Printf("%-59s: %.2f%%\n", "# POLL - non-blocking probe ratio", float32(m[PollNoWait])*100/float32(m[PollWait]))
		fmt.Printf("%-59s: %.2f\n", "# POLL - average events per Wait",
			float32(m[PollEvents])/float32(m[PollWait]))
	}
}

func showSocketMetrics(m [Max]uint64) {
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of connections created", m[SocketConnsCreate])
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of connections closed", m[SocketConnsClose])
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of Sendmsg calls", m[SocketWriteCalls])
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of failed Sendmsg calls", m[SocketWriteFails])
	fmt.Printf("%-59s: %d\n", "# SOCKET - bytes written", m[SocketWriteBytes])
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of Recvmsg calls", m[SocketReadCalls])
	fmt.Printf("%-59s: %d\n", "# SOCKET - number of failed Recvmsg calls", m[SocketReadFails])
	fmt.Printf("%-59s: %d\n", "# SOCKET - bytes read", m[SocketReadBytes])
	fmt.Printf("%-59s: %d\n", "# SOCKET - fds passed via SCM_RIGHTS", m[SocketFDsPassed])
}

func showProcMetrics(m [Max]uint64) {
	fmt.Printf("%-59s: %d\n", "# PROC - children spawned", m[ProcSpawned])
	fmt.Printf("%-59s: %d\n", "# PROC - children finished", m[ProcFinished])
	fmt.Printf("%-59s: %d\n", "# PROC - children killed by signal", m[ProcKilled])
}
