package inode

import (
	"fmt"
	"sync"

	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/allocator"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/cache"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Table keeps track of all inodes that are currently open, ensuring
// that every inode has at most one in-memory handle. Inodes that are
// removed while open are only deleted when the last opener closes
// them.
//
// The table's lock may be acquired before an inode's lock, but never
// the other way around.
type Table struct {
	bufferCache     cache.BufferCache
	sectorAllocator allocator.SectorAllocator

	lock   sync.Mutex
	inodes map[block.Sector]*Inode
}

// NewTable creates an empty table of open inodes. Inode records and
// the sectors they reference are accessed through the buffer cache.
func NewTable(bufferCache cache.BufferCache, sectorAllocator allocator.SectorAllocator) *Table {
	return &Table{
		bufferCache:     bufferCache,
		sectorAllocator: sectorAllocator,
		inodes:          map[block.Sector]*Inode{},
	}
}

func (t *Table) newRecord(sector block.Sector) record {
	return record{
		bufferCache:     t.bufferCache,
		sectorAllocator: t.sectorAllocator,
		sector:          sector,
	}
}

// Create writes a new inode record into a sector, and allocates enough
// data sectors to hold a file of the initial length. The data sectors
// are zero-filled. If allocation fails, no sectors are leaked and the
// record is cleared.
func (t *Table) Create(sector block.Sector, initialLength int64, isDirectory bool) error {
	if initialLength < 0 {
		return status.Errorf(codes.InvalidArgument, "Negative initial length: %d", initialLength)
	}
	r := t.newRecord(sector)
	if err := r.initialize(isDirectory); err != nil {
		return err
	}
	if _, err := r.grow(initialLength); err != nil {
		r.clear()
		return util.StatusWrapf(err, "Failed to allocate %d bytes for inode %d", initialLength, sector)
	}
	return nil
}

// Open returns a handle of the inode stored in a sector. If the inode
// is already open, the existing handle is returned.
func (t *Table) Open(sector block.Sector) (*Inode, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if i, ok := t.inodes[sector]; ok {
		i.lock.Lock()
		i.openCount++
		i.lock.Unlock()
		return i, nil
	}

	i := &Inode{
		table:     t,
		record:    t.newRecord(sector),
		openCount: 1,
	}
	if err := i.record.checkMagic(); err != nil {
		return nil, err
	}
	t.inodes[sector] = i
	return i, nil
}

// Close releases a handle obtained through Open() or Reopen(). When
// the last opener of a removed inode closes it, all of its data and
// indirection sectors are released. The record is then cleared and its
// sector is released as well.
func (t *Table) Close(i *Inode) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	i.lock.Lock()
	if i.openCount == 0 {
		i.lock.Unlock()
		panic(fmt.Sprintf("Attempted to close inode %d, which is not open", i.record.sector))
	}
	i.openCount--
	if i.denyWriteCount > i.openCount {
		i.lock.Unlock()
		panic(fmt.Sprintf("Inode %d was closed without allowing writes", i.record.sector))
	}
	closed, removed := i.openCount == 0, i.removed
	i.lock.Unlock()
	if !closed {
		return nil
	}

	delete(t.inodes, i.record.sector)
	if removed {
		sectorCount, err := i.record.sectorCount()
		if err != nil {
			return err
		}
		if err := i.record.releaseSectors(0, sectorCount); err != nil {
			return util.StatusWrapf(err, "Failed to release sectors of inode %d", i.record.sector)
		}
		// Clear the magic number, so that the sector can no
		// longer be opened as an inode.
		if err := i.record.clear(); err != nil {
			return util.StatusWrapf(err, "Failed to clear inode %d", i.record.sector)
		}
		t.sectorAllocator.Release(i.record.sector, 1)
	}
	return nil
}

// OpenInodes returns the number of inodes that have at least one
// opener.
func (t *Table) OpenInodes() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.inodes)
}
