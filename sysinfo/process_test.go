// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package sysinfo_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactivo/reactivo/sysinfo"
)

func TestProcessReturnsSelf(t *testing.T) {
	info, err := sysinfo.Process(int32(os.Getpid()))
	require.NoError(t, err)
	assert.Equal(t, int32(os.Getpid()), info.PID)
	assert.NotEmpty(t, info.Name)
}

func TestProcessesIncludesSelf(t *testing.T) {
	procs, err := sysinfo.Processes()
	require.NoError(t, err)

	found := false
	for _, p := range procs {
		if p.PID == int32(os.Getpid()) {
			found = true
			break
		}
	}
	assert.True(t, found, "expected self pid in process table")
}

func TestProcessUnknownPIDErrors(t *testing.T) {
	_, err := sysinfo.Process(1 << 30)
	assert.Error(t, err)
}
