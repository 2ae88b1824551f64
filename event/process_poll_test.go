// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffPIDsReportsExecedAndExited(t *testing.T) {
	last := map[int]struct{}{1: {}, 2: {}, 3: {}}
	current := map[int]struct{}{2: {}, 3: {}, 4: {}}

	var execed, exited []int
	diffPIDs(last, current, func(pid int) { execed = append(execed, pid) }, func(pid int) { exited = append(exited, pid) })

	assert.ElementsMatch(t, []int{4}, execed)
	assert.ElementsMatch(t, []int{1}, exited)
}

func TestDiffPIDsNoChange(t *testing.T) {
	last := map[int]struct{}{1: {}, 2: {}}
	current := map[int]struct{}{1: {}, 2: {}}

	var execed, exited []int
	diffPIDs(last, current, func(pid int) { execed = append(execed, pid) }, func(pid int) { exited = append(exited, pid) })

	assert.Empty(t, execed)
	assert.Empty(t, exited)
}
