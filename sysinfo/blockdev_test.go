// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package sysinfo

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlockSize = 1024

// buildSuperblock returns a block-sized buffer with the magic number
// and feature flags planted at their documented offsets, ready to be
// appended after a leading zero block so DetectExt's offset math
// (reading at deviceBlockSize) lines up.
func buildSuperblock(blockCount uint32, compat, incompat, roCompat, misc uint32) []byte {
	sb := make([]byte, minSuperblockSize)
	binary.LittleEndian.PutUint32(sb[offBlockCount:], blockCount)
	binary.LittleEndian.PutUint16(sb[offMagicNumber:], extMagicNumber)
	binary.LittleEndian.PutUint32(sb[offCompatFlags:], compat)
	binary.LittleEndian.PutUint32(sb[offIncompatFlags:], incompat)
	binary.LittleEndian.PutUint32(sb[offROCompatFlags:], roCompat)
	binary.LittleEndian.PutUint32(sb[offMiscFlags:], misc)
	copy(sb[offUUID:offUUID+16], []byte{
		0xde, 0xad, 0xbe, 0xef, 0xca, 0xfe, 0xba, 0xbe,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	})
	copy(sb[offLabel:offLabel+16], []byte("rootfs"))

	img := make([]byte, testBlockSize)
	img = append(img, sb...)
	return img
}

func TestDetectExtClassifiesEachVariant(t *testing.T) {
	cases := []struct {
		name     string
		compat   uint32
		incompat uint32
		roCompat uint32
		misc     uint32
		want     string
	}{
		{"ext2", 0, 0, 0, 0, "ext2"},
		{"ext3", extCompatHasJournal, 0, 0, 0, "ext3"},
		{"ext4", 0, ext3IncompatFlags, 0, 0, "ext4"},
		{"ext4dev", 0, 0, 0, extMiscDevFilesystem, "ext4dev"},
		{"jbd", 0, extIncompatJournalDev, 0, 0, "jbd"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			img := buildSuperblock(1000, tc.compat, tc.incompat, tc.roCompat, tc.misc)
			dev, ok, err := DetectExt(bytes.NewReader(img), testBlockSize)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tc.want, dev.Filesystem)
			assert.Equal(t, uint32(1000), dev.BlockCount)
			assert.Equal(t, "rootfs", dev.Label)
			assert.Equal(t, "deadbeef-cafe-babe-0102-030405060708", dev.UUID)
		})
	}
}

func TestDetectExtNoMagicIsNotAnError(t *testing.T) {
	img := make([]byte, testBlockSize+minSuperblockSize)
	dev, ok, err := DetectExt(bytes.NewReader(img), testBlockSize)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, dev)
}

func TestDetectExtShortReadIsNotAnError(t *testing.T) {
	img := make([]byte, testBlockSize+10)
	dev, ok, err := DetectExt(bytes.NewReader(img), testBlockSize)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, dev)
}
