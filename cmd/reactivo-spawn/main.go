// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Command reactivo-spawn is the toolkit's process-supervision worked
// example: it spawns the command line given on argv, streams the child's stdout/
// stderr through the signal layer to this process's own stdio, and
// exits with the child's exit code (or 128+signal if it was killed),
// matching a typical shell supervisor's contract.
package main

import (
	"fmt"
	"os"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/log"
	"github.com/reactivo/reactivo/proc"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <command> [args...]\n", os.Args[0])
		os.Exit(2)
	}

	rt, err := reactivo.New()
	if err != nil {
		log.Fatalf("reactivo-spawn: %v", err)
	}
	defer rt.Close()

	p := proc.New(rt, os.Args[1], os.Args[2:])
	p.StdoutData.ConnectFree(func(data []byte) { os.Stdout.Write(data) })
	p.StderrData.ConnectFree(func(data []byte) { os.Stderr.Write(data) })
	p.Finished.ConnectFree(func(pid, exitCode int) {
		rt.Quit(exitCode)
	})
	p.Killed.ConnectFree(func(pid, sig int) {
		log.Warnf("reactivo-spawn: pid=%d killed by signal %d", pid, sig)
		rt.Quit(128 + sig)
	})
	if err := p.Start(); err != nil {
		log.Fatalf("reactivo-spawn: spawn %s: %v", os.Args[1], err)
	}

	os.Exit(rt.Exec())
}
