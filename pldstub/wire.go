// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package pldstub implements the opcode-driven process-control helper
// protocol: a byte opcode followed by zero or more typed fields, each
// preceded by a four-byte {uint16 bytewidth, uint16 count} header. A caller that
// needs per-field validation before the final exec (stat'ing the
// executable, setenv'ing one variable at a time, checking the working
// directory) drives a helper process speaking this protocol instead of
// the direct os/exec path in proc.Spawn.
package pldstub

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Opcode identifies one instruction of the protocol.
type Opcode byte

const (
	OpInvoke         Opcode = 0
	OpExecutable     Opcode = 1
	OpArguments      Opcode = 2
	OpEnvironment    Opcode = 3
	OpEnvironmentVar Opcode = 4
	OpWorkingDir     Opcode = 5
	OpPriority       Opcode = 6
	OpUID            Opcode = 7
	OpGID            Opcode = 8
	OpEUID           Opcode = 9
	OpEGID           Opcode = 10
	OpResource       Opcode = 11
	OpInvalid        Opcode = 0xFF
)

func (op Opcode) String() string {
	switch op {
	case OpInvoke:
		return "invoke"
	case OpExecutable:
		return "executable"
	case OpArguments:
		return "arguments"
	case OpEnvironment:
		return "environment"
	case OpEnvironmentVar:
		return "environmentvar"
	case OpWorkingDir:
		return "workingdir"
	case OpPriority:
		return "priority"
	case OpUID:
		return "uid"
	case OpGID:
		return "gid"
	case OpEUID:
		return "euid"
	case OpEGID:
		return "egid"
	case OpResource:
		return "resource"
	default:
		return "invalid"
	}
}

// header is the four-byte {bytewidth, count} pair preceding every
// field on the wire, little-endian.
type header struct {
	Bytewidth uint16
	Count     uint16
}

const headerSize = 4

func writeHeader(w io.Writer, bytewidth, count uint16) error {
	var buf [headerSize]byte
	binary.LittleEndian.PutUint16(buf[0:2], bytewidth)
	binary.LittleEndian.PutUint16(buf[2:4], count)
	_, err := w.Write(buf[:])
	return err
}

func readHeader(r io.Reader) (header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return header{}, err
	}
	return header{
		Bytewidth: binary.LittleEndian.Uint16(buf[0:2]),
		Count:     binary.LittleEndian.Uint16(buf[2:4]),
	}, nil
}

// WriteOpcode writes a bare opcode byte. The opcode travels as a
// fixed-width scalar field, so its header is {bytewidth: 1, count: 1}.
func WriteOpcode(w io.Writer, op Opcode) error {
	if err := writeHeader(w, 1, 1); err != nil {
		return err
	}
	_, err := w.Write([]byte{byte(op)})
	return err
}

// ReadOpcode reads one opcode.
func ReadOpcode(r io.Reader) (Opcode, error) {
	h, err := readHeader(r)
	if err != nil {
		return OpInvalid, err
	}
	if h.Bytewidth != 1 || h.Count != 1 {
		return OpInvalid, errors.Errorf("pldstub: bad opcode header %+v", h)
	}
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return OpInvalid, err
	}
	return Opcode(b[0]), nil
}

// WriteString writes a NUL-free byte string: header.bytewidth == 1,
// header.count == len(s), followed by the raw bytes. No NUL terminator
// travels on the wire; the receiver knows the length from the header.
func WriteString(w io.Writer, s string) error {
	if err := writeHeader(w, 1, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadString reads a string field written by WriteString.
func ReadString(r io.Reader) (string, error) {
	h, err := readHeader(r)
	if err != nil {
		return "", err
	}
	if h.Bytewidth != 1 {
		return "", errors.Errorf("pldstub: bad string header %+v", h)
	}
	buf := make([]byte, h.Count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteInt32 writes a four-byte scalar field (uid_t, gid_t, priority
// and errno returns all travel as int32 for a stable wire width).
func WriteInt32(w io.Writer, v int32) error {
	if err := writeHeader(w, 4, 1); err != nil {
		return err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadInt32 reads a four-byte scalar field written by WriteInt32.
func ReadInt32(r io.Reader) (int32, error) {
	h, err := readHeader(r)
	if err != nil {
		return 0, err
	}
	if h.Bytewidth != 4 || h.Count != 1 {
		return 0, errors.Errorf("pldstub: bad int32 header %+v", h)
	}
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// WriteUint64 writes an eight-byte scalar field (resource-limit
// values).
func WriteUint64(w io.Writer, v uint64) error {
	if err := writeHeader(w, 8, 1); err != nil {
		return err
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadUint64 reads an eight-byte scalar field written by WriteUint64.
func ReadUint64(r io.Reader) (uint64, error) {
	h, err := readHeader(r)
	if err != nil {
		return 0, err
	}
	if h.Bytewidth != 8 || h.Count != 1 {
		return 0, errors.Errorf("pldstub: bad uint64 header %+v", h)
	}
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteResponse writes a status reply: a header plus the status int,
// used for every opcode except invoke (which either execs or never
// returns control to the caller).
func WriteResponse(w io.Writer, status int32) error {
	return WriteInt32(w, status)
}

// ReadResponse reads a response written by WriteResponse.
func ReadResponse(r io.Reader) (int32, error) {
	return ReadInt32(r)
}
