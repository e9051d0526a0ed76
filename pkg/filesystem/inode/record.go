package inode

import (
	"encoding/binary"

	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/allocator"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/cache"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DirectPointers is the number of data sectors that an inode
	// record references directly.
	DirectPointers = 12
	// PointersPerBlock is the number of sector numbers that fit in
	// a single indirection block.
	PointersPerBlock = block.BlockSize / pointerSizeBytes
	// MaximumBlocks is the largest number of data sectors that a
	// single inode is capable of referencing.
	MaximumBlocks = DirectPointers + PointersPerBlock + PointersPerBlock*PointersPerBlock
	// MaximumLength is the largest size of a file in bytes.
	MaximumLength = MaximumBlocks * block.BlockSize

	// Magic is stored in every inode record to detect attempts to
	// open sectors that do not contain an inode.
	Magic = 0x494e4f44

	pointerSizeBytes = 4
)

// Byte offsets of the fields of an inode record. All fields are stored
// as little endian 32-bit integers. The remainder of the record is
// unused and zero.
const (
	lengthOffset         = 0
	isDirectoryOffset    = 4
	sectorCountOffset    = 8
	directOffset         = 12
	indirectOffset       = directOffset + DirectPointers*pointerSizeBytes
	doubleIndirectOffset = indirectOffset + pointerSizeBytes
	magicOffset          = doubleIndirectOffset + pointerSizeBytes
)

// record provides access to the on-disk representation of a single
// inode, including the tree of sectors that it references. All
// accesses go through the buffer cache.
//
// record performs no locking. Callers need to ensure that there is at
// most one goroutine changing the size of the inode at a time.
type record struct {
	bufferCache     cache.BufferCache
	sectorAllocator allocator.SectorAllocator
	sector          block.Sector
}

func getUint32(bufferCache cache.BufferCache, sector block.Sector, offset int) (uint32, error) {
	var b [4]byte
	if err := bufferCache.Get(sector, offset, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func putUint32(bufferCache cache.BufferCache, sector block.Sector, offset int, value uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	return bufferCache.Put(sector, offset, b[:])
}

func (r *record) length() (int64, error) {
	length, err := getUint32(r.bufferCache, r.sector, lengthOffset)
	if err != nil {
		return 0, util.StatusWrapf(err, "Failed to read length of inode %d", r.sector)
	}
	return int64(int32(length)), nil
}

func (r *record) setLength(length int64) error {
	if err := putUint32(r.bufferCache, r.sector, lengthOffset, uint32(length)); err != nil {
		return util.StatusWrapf(err, "Failed to write length of inode %d", r.sector)
	}
	return nil
}

func (r *record) sectorCount() (uint32, error) {
	sectorCount, err := getUint32(r.bufferCache, r.sector, sectorCountOffset)
	if err != nil {
		return 0, util.StatusWrapf(err, "Failed to read sector count of inode %d", r.sector)
	}
	return sectorCount, nil
}

func (r *record) setSectorCount(sectorCount uint32) error {
	if err := putUint32(r.bufferCache, r.sector, sectorCountOffset, sectorCount); err != nil {
		return util.StatusWrapf(err, "Failed to write sector count of inode %d", r.sector)
	}
	return nil
}

func (r *record) isDirectory() (bool, error) {
	isDirectory, err := getUint32(r.bufferCache, r.sector, isDirectoryOffset)
	if err != nil {
		return false, util.StatusWrapf(err, "Failed to read type of inode %d", r.sector)
	}
	return isDirectory != 0, nil
}

// initialize overwrites the record with an empty inode.
func (r *record) initialize(isDirectory bool) error {
	var b block.Block
	if isDirectory {
		binary.LittleEndian.PutUint32(b[isDirectoryOffset:], 1)
	}
	binary.LittleEndian.PutUint32(b[magicOffset:], Magic)
	if err := r.bufferCache.Put(r.sector, 0, b[:]); err != nil {
		return util.StatusWrapf(err, "Failed to initialize inode %d", r.sector)
	}
	return nil
}

func (r *record) clear() error {
	return r.bufferCache.Put(r.sector, 0, block.ZeroBlock[:])
}

func (r *record) checkMagic() error {
	magic, err := getUint32(r.bufferCache, r.sector, magicOffset)
	if err != nil {
		return util.StatusWrapf(err, "Failed to read inode %d", r.sector)
	}
	if magic != Magic {
		return status.Errorf(codes.DataLoss, "Sector %d does not contain an inode, as it has magic number 0x%08x", r.sector, magic)
	}
	return nil
}

// translate returns the data sector that holds the byte at a given
// offset within the file.
func (r *record) translate(offset int64) (block.Sector, error) {
	length, err := r.length()
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset >= length {
		return 0, status.Errorf(codes.OutOfRange, "Offset %d lies beyond the end of inode %d, which is %d bytes in size", offset, r.sector, length)
	}

	n := uint32(offset / block.BlockSize)
	root := rootFor(n)
	sector, err := r.readPointer(r.sector, root.pointerOffset)
	if err != nil {
		return 0, err
	}
	relative := n - root.firstBlock
	for depth := root.depth; depth > 0; depth-- {
		childSpan := span(depth - 1)
		if sector, err = r.readPointer(sector, int(relative/childSpan)*pointerSizeBytes); err != nil {
			return 0, err
		}
		relative %= childSpan
	}
	return sector, nil
}

func (r *record) readPointer(sector block.Sector, offset int) (block.Sector, error) {
	pointer, err := getUint32(r.bufferCache, sector, offset)
	if err != nil {
		return 0, util.StatusWrapf(err, "Failed to read pointer at offset %d of sector %d", offset, sector)
	}
	return block.Sector(pointer), nil
}

func (r *record) writePointer(sector block.Sector, offset int, pointer block.Sector) error {
	if err := putUint32(r.bufferCache, sector, offset, uint32(pointer)); err != nil {
		return util.StatusWrapf(err, "Failed to write pointer at offset %d of sector %d", offset, sector)
	}
	return nil
}
