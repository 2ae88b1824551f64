// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package sysinfo

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRawStatSelf(t *testing.T) {
	st, err := ReadRawStat(os.Getpid())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), st.PID)
	assert.NotZero(t, st.State)
	assert.NotEmpty(t, st.Comm)
}

func TestReadRawStatUnknownPID(t *testing.T) {
	_, err := ReadRawStat(1 << 30)
	assert.Error(t, err)
}
