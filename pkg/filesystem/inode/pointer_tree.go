package inode

import (
	"fmt"

	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// treeRoot describes one of the pointers stored in an inode record.
// Each of them is the root of a tree of the given depth. Depth zero
// means that the pointer refers to a data sector directly. Every level
// of depth adds one level of indirection blocks.
type treeRoot struct {
	pointerOffset int
	firstBlock    uint32
	depth         int
}

var treeRoots = func() []treeRoot {
	roots := make([]treeRoot, 0, DirectPointers+2)
	for i := 0; i < DirectPointers; i++ {
		roots = append(roots, treeRoot{
			pointerOffset: directOffset + i*pointerSizeBytes,
			firstBlock:    uint32(i),
		})
	}
	return append(
		roots,
		treeRoot{
			pointerOffset: indirectOffset,
			firstBlock:    DirectPointers,
			depth:         1,
		},
		treeRoot{
			pointerOffset: doubleIndirectOffset,
			firstBlock:    DirectPointers + PointersPerBlock,
			depth:         2,
		})
}()

// span returns the number of data sectors underneath a node of a
// given depth.
func span(depth int) uint32 {
	s := uint32(1)
	for ; depth > 0; depth-- {
		s *= PointersPerBlock
	}
	return s
}

func rootFor(n uint32) treeRoot {
	switch {
	case n < DirectPointers:
		return treeRoots[n]
	case n < DirectPointers+PointersPerBlock:
		return treeRoots[DirectPointers]
	case n < MaximumBlocks:
		return treeRoots[DirectPointers+1]
	default:
		panic(fmt.Sprintf("Block %d lies beyond the maximum file size", n))
	}
}

// grow extends the file by a number of bytes. The slack at the end of
// the last data sector is used first, meaning that sectors are only
// allocated if the new length exceeds it. The sector count is updated
// before the length, so that the length never covers sectors that do
// not exist. Upon failure, the record is left unmodified.
func (r *record) grow(additional int64) (int64, error) {
	if additional < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Attempted to grow inode %d by %d bytes", r.sector, additional)
	}
	length, err := r.length()
	if err != nil {
		return 0, err
	}
	sectorCount, err := r.sectorCount()
	if err != nil {
		return 0, err
	}
	newLength := length + additional
	if newLength > MaximumLength {
		return 0, status.Errorf(codes.ResourceExhausted, "Growing inode %d to %d bytes would exceed the maximum file size of %d bytes", r.sector, newLength, MaximumLength)
	}

	newSectorCount := uint32((newLength + block.BlockSize - 1) / block.BlockSize)
	if newSectorCount > sectorCount {
		if err := r.allocateSectors(sectorCount, newSectorCount-sectorCount); err != nil {
			return 0, err
		}
		if err := r.setSectorCount(newSectorCount); err != nil {
			r.releaseSectors(sectorCount, newSectorCount)
			return 0, err
		}
	}
	if err := r.setLength(newLength); err != nil {
		if newSectorCount > sectorCount && r.setSectorCount(sectorCount) == nil {
			r.releaseSectors(sectorCount, newSectorCount)
		}
		return 0, err
	}
	return additional, nil
}

// allocateSectors allocates count data sectors, starting at the
// frontier. If any allocation fails, all sectors allocated by this call
// are released again, most recently allocated first.
func (r *record) allocateSectors(frontier, count uint32) error {
	for n := frontier; n < frontier+count; n++ {
		if err := r.allocateBlock(n); err != nil {
			// Rollback is best effort. If it fails, the
			// remaining sectors are leaked.
			r.releaseSectors(frontier, n)
			return err
		}
	}
	return nil
}

// allocateBlock allocates data sector n, together with any indirection
// blocks leading up to it that do not exist yet. As sectors are
// allocated in order, a node only needs to be created when the data
// sector is the first one underneath it.
func (r *record) allocateBlock(n uint32) error {
	root := rootFor(n)
	parent, pointerOffset := r.sector, root.pointerOffset
	relative := n - root.firstBlock

	var allocated []block.Sector
	for depth := root.depth; ; depth-- {
		var sector block.Sector
		if relative == 0 {
			var err error
			if sector, err = r.allocateZeroedSector(); err == nil {
				allocated = append(allocated, sector)
				err = r.writePointer(parent, pointerOffset, sector)
			}
			if err != nil {
				for i := len(allocated) - 1; i >= 0; i-- {
					r.sectorAllocator.Release(allocated[i], 1)
				}
				return err
			}
		} else {
			var err error
			if sector, err = r.readPointer(parent, pointerOffset); err != nil {
				return err
			}
		}
		if depth == 0 {
			return nil
		}

		childSpan := span(depth - 1)
		parent, pointerOffset = sector, int(relative/childSpan)*pointerSizeBytes
		relative %= childSpan
	}
}

// allocateZeroedSector allocates a single sector and overwrites its
// contents with zeroes. As the block is written in its entirety, the
// buffer cache does not need to read it from the device.
func (r *record) allocateZeroedSector() (block.Sector, error) {
	sector, err := r.sectorAllocator.Allocate(1)
	if err != nil {
		return 0, util.StatusWrapf(err, "Failed to allocate sector for inode %d", r.sector)
	}
	if err := r.bufferCache.Put(sector, 0, block.ZeroBlock[:]); err != nil {
		r.sectorAllocator.Release(sector, 1)
		return 0, util.StatusWrapf(err, "Failed to zero-fill sector %d", sector)
	}
	return sector, nil
}

// releaseSectors releases data sectors [begin, end), together with all
// indirection blocks that only reference data sectors within that
// range. Sectors are released in the reverse order in which
// allocateSectors() allocated them.
func (r *record) releaseSectors(begin, end uint32) error {
	for i := len(treeRoots) - 1; i >= 0; i-- {
		root := treeRoots[i]
		if root.firstBlock >= end || root.firstBlock+span(root.depth) <= begin {
			continue
		}
		sector, err := r.readPointer(r.sector, root.pointerOffset)
		if err != nil {
			return err
		}
		if err := r.releaseNode(sector, root.depth, root.firstBlock, begin, end); err != nil {
			return err
		}
	}
	return nil
}

// releaseNode releases the part of a tree of a given depth that
// overlaps with data sectors [begin, end). The node itself is released
// if no data sectors before the range are stored underneath it.
func (r *record) releaseNode(sector block.Sector, depth int, first, begin, end uint32) error {
	if depth > 0 {
		childSpan := span(depth - 1)
		low, high := max(begin, first), min(end, first+span(depth))
		for entry := (high - 1 - first) / childSpan; ; entry-- {
			childFirst := first + entry*childSpan
			child, err := r.readPointer(sector, int(entry)*pointerSizeBytes)
			if err != nil {
				return err
			}
			if err := r.releaseNode(child, depth-1, childFirst, begin, end); err != nil {
				return err
			}
			if childFirst <= low {
				break
			}
		}
	}
	if begin <= first {
		r.sectorAllocator.Release(sector, 1)
	}
	return nil
}
