// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package event_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reactivo/reactivo"
	"github.com/reactivo/reactivo/event"
)

func TestNewMountConstructsAgainstLiveTable(t *testing.T) {
	rt, err := reactivo.New(reactivo.WithPollTimeout(20))
	require.NoError(t, err)
	defer rt.Close()

	m, err := event.NewMount(rt)
	require.NoError(t, err)
	defer m.Close()

	require.NotNil(t, m.Mounted)
	require.NotNil(t, m.Unmounted)
}
