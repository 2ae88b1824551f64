// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package sysinfo

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// BlockDevice describes one block device's detected filesystem: one
// block read at block_size offset, little-endian magic 0xEF53 at 0x38,
// classified by the feature_compat/feature_incompat/feature_ro_compat/
// flags fields, UUID (16 bytes @ 0x68) and label (16 chars @ 0x78).
type BlockDevice struct {
	Path       string `yaml:"path"`
	Filesystem string `yaml:"filesystem"`
	BlockSize  uint32 `yaml:"block_size"`
	BlockCount uint32 `yaml:"block_count"`
	UUID       string `yaml:"uuid"`
	Label      string `yaml:"label"`
}

const (
	extMagicNumber uint16 = 0xEF53

	// s_feature_compat bits.
	extCompatHasJournal uint32 = 0x00000004

	// s_feature_incompat bits.
	extIncompatFiletype   uint32 = 0x00000002
	extIncompatRecover    uint32 = 0x00000004
	extIncompatJournalDev uint32 = 0x00000008
	extIncompatMetaBG     uint32 = 0x00000010

	// s_feature_ro_compat bits.
	extROSparseSuper uint32 = 0x00000001
	extROLargeFile   uint32 = 0x00000002
	extROBtreeDir    uint32 = 0x00000004

	// s_flags bits.
	extMiscDevFilesystem uint32 = 0x00000004

	ext2ROCompatFlags = extROSparseSuper | extROLargeFile | extROBtreeDir
	ext2IncompatFlags = extIncompatFiletype | extIncompatMetaBG
	ext3IncompatFlags = extIncompatFiletype | extIncompatMetaBG | extIncompatRecover
)

// Superblock field offsets within the ext2/3/4/jbd superblock.
const (
	offBlockCount     = 0x0004
	offLogBlockSize   = 0x0018
	offMagicNumber    = 0x0038
	offCompatFlags    = 0x005C
	offIncompatFlags  = 0x0060
	offROCompatFlags  = 0x0064
	offUUID           = 0x0068
	offLabel          = 0x0078
	offMiscFlags      = 0x0160
	minSuperblockSize = 0x0168
)

// DetectExt reads one block at the given block size offset from r and
// classifies it as jbd/ext2/ext3/ext4/ext4dev, returning false (no
// error) if the magic number does not match -- "not this filesystem"
// is not an error.
func DetectExt(r io.ReaderAt, deviceBlockSize int64) (*BlockDevice, bool, error) {
	buf := make([]byte, minSuperblockSize)
	n, err := r.ReadAt(buf, deviceBlockSize)
	if err != nil && err != io.EOF {
		return nil, false, errors.Wrap(err, "sysinfo: read superblock")
	}
	if n < minSuperblockSize {
		return nil, false, nil
	}

	if binary.LittleEndian.Uint16(buf[offMagicNumber:]) != extMagicNumber {
		return nil, false, nil
	}

	compat := binary.LittleEndian.Uint32(buf[offCompatFlags:])
	incompat := binary.LittleEndian.Uint32(buf[offIncompatFlags:])
	roCompat := binary.LittleEndian.Uint32(buf[offROCompatFlags:])
	misc := binary.LittleEndian.Uint32(buf[offMiscFlags:])

	var fstype string
	switch {
	case incompat&extIncompatJournalDev == extIncompatJournalDev:
		fstype = "jbd"
	case incompat&extIncompatJournalDev == 0 && misc&extMiscDevFilesystem == extMiscDevFilesystem:
		fstype = "ext4dev"
	case incompat&extIncompatJournalDev == 0 &&
		(roCompat&ext2ROCompatFlags == ext2ROCompatFlags || incompat&ext3IncompatFlags == ext3IncompatFlags) &&
		misc&extMiscDevFilesystem == 0:
		fstype = "ext4"
	case compat&extCompatHasJournal == extCompatHasJournal &&
		roCompat&ext2ROCompatFlags == 0 &&
		incompat&ext3IncompatFlags == 0:
		fstype = "ext3"
	case compat&extCompatHasJournal == 0 &&
		roCompat&ext2ROCompatFlags == 0 &&
		incompat&ext2IncompatFlags == 0:
		fstype = "ext2"
	default:
		return nil, false, nil
	}

	logBlockSize := binary.LittleEndian.Uint32(buf[offLogBlockSize:])
	dev := &BlockDevice{
		Filesystem: fstype,
		BlockSize:  uint32(deviceBlockSize) << logBlockSize,
		BlockCount: binary.LittleEndian.Uint32(buf[offBlockCount:]),
		UUID:       encodeUUID(buf[offUUID : offUUID+16]),
		Label:      strings.TrimRight(string(buf[offLabel:offLabel+16]), "\x00"),
	}
	return dev, true, nil
}

func encodeUUID(b []byte) string {
	const hex = "0123456789abcdef"
	var out [36]byte
	pos := 0
	groups := [5]int{4, 2, 2, 2, 6}
	idx := 0
	for g, n := range groups {
		for i := 0; i < n; i++ {
			out[pos] = hex[b[idx]>>4]
			out[pos+1] = hex[b[idx]&0xf]
			pos += 2
			idx++
		}
		if g != len(groups)-1 {
			out[pos] = '-'
			pos++
		}
	}
	return string(out[:])
}
