// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package pldstub

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	bytes.Buffer
}

func (f *fakeConn) SetReadDeadline(t time.Time) error { return nil }

func TestOpcodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOpcode(&buf, OpWorkingDir))
	op, err := ReadOpcode(&buf)
	require.NoError(t, err)
	require.Equal(t, OpWorkingDir, op)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "/usr/bin/true"))
	s, err := ReadString(&buf)
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/true", s)
}

func TestInt32RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInt32(&buf, -7))
	v, err := ReadInt32(&buf)
	require.NoError(t, err)
	require.EqualValues(t, -7, v)
}

// TestDriveSequence checks that Drive emits the expected opcode
// sequence; TestDriveFailureSurfacesErrno covers a non-zero response.
func TestDriveSequence(t *testing.T) {
	conn := &fakeConn{}
	// Pre-seed one success response per field that expects one
	// (executable, workingdir, one env var); invoke reads nothing back.
	// Reads consume the seeded responses from the front of the buffer
	// while Drive's own request bytes append behind them.
	for i := 0; i < 3; i++ {
		require.NoError(t, WriteResponse(&conn.Buffer, 0))
	}

	cmd := Command{
		Executable: "/bin/true",
		WorkingDir: "/tmp",
		Env:        map[string]string{"FOO": "bar"},
	}
	err := Drive(conn, cmd)
	require.NoError(t, err)

	// Every seeded response has been consumed, so what is left in the
	// buffer is the request stream Drive wrote, in protocol order.
	for _, want := range []struct {
		op     Opcode
		fields []string
	}{
		{OpExecutable, []string{"/bin/true"}},
		{OpWorkingDir, []string{"/tmp"}},
		{OpEnvironmentVar, []string{"FOO", "bar"}},
	} {
		op, err := ReadOpcode(&conn.Buffer)
		require.NoError(t, err)
		require.Equal(t, want.op, op)
		for _, f := range want.fields {
			s, err := ReadString(&conn.Buffer)
			require.NoError(t, err)
			require.Equal(t, f, s)
		}
	}
	op, err := ReadOpcode(&conn.Buffer)
	require.NoError(t, err)
	require.Equal(t, OpInvoke, op)
}

func TestDriveFailureSurfacesErrno(t *testing.T) {
	conn := &fakeConn{}
	require.NoError(t, WriteResponse(&conn.Buffer, int32(13))) // EACCES
	err := Drive(conn, Command{Executable: "/no/such/file"})
	require.Error(t, err)
}
