// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
; top-level comment
name = "reactivo"
tags = a, b, "c, d"
nested/key = 1

[network]
host = localhost
port = 8080

[network]
host = 10.0.0.1
port = 9090

[limits/cpu]
max = 4
`

func TestParseBasic(t *testing.T) {
	tree, err := ParseString(sample)
	require.NoError(t, err)

	v, ok := tree.Value("name")
	require.True(t, ok)
	require.Equal(t, "reactivo", v)

	arr, ok := tree.Array("tags")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b", "c, d"}, arr)

	nested := tree.Section("nested")
	require.NotNil(t, nested)
	nv, ok := nested.Value("key")
	require.True(t, ok)
	require.Equal(t, "1", nv)

	multi := tree.MultiSection("network")
	require.Len(t, multi, 2)
	h0, _ := multi[0].Value("host")
	h1, _ := multi[1].Value("host")
	require.Equal(t, "localhost", h0)
	require.Equal(t, "10.0.0.1", h1)

	limits := tree.Section("limits")
	require.NotNil(t, limits)
	cpu := limits.Section("cpu")
	require.NotNil(t, cpu)
	m, _ := cpu.Value("max")
	require.Equal(t, "4", m)
}

// TestConfigRoundTrip checks that parse, serialize, re-parse yields a
// structurally equal tree.
func TestConfigRoundTrip(t *testing.T) {
	tree, err := ParseString(sample)
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, tree.Serialize(&buf))

	reparsed, err := ParseString(buf.String())
	require.NoError(t, err)

	require.True(t, tree.Equal(reparsed), "round trip:\n%s", buf.String())
}

func TestQuotedValueWithEscapes(t *testing.T) {
	tree, err := ParseString(`msg = "hello\nworld\t!"` + "\n")
	require.NoError(t, err)
	v, ok := tree.Value("msg")
	require.True(t, ok)
	require.Equal(t, "hello\nworld\t!", v)
}

func TestLineContinuation(t *testing.T) {
	tree, err := ParseString("name = long\\\nvalue\n")
	require.NoError(t, err)
	v, ok := tree.Value("name")
	require.True(t, ok)
	require.Equal(t, "longvalue", v)
}

func TestRejectsMalformedInput(t *testing.T) {
	_, err := ParseString("= noname\n")
	require.Error(t, err)

	_, err = ParseString("[unterminated\n")
	require.Error(t, err)
}
