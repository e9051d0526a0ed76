package inode

import (
	"fmt"
	"io"
	"sync"

	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Inode is an in-memory handle of an inode that has been opened
// through a Table. There is at most one handle per inode, which is
// shared by all openers.
type Inode struct {
	table  *Table
	record record

	// Protects the fields below, and serializes changes to the
	// size of the inode.
	lock           sync.Mutex
	openCount      int
	denyWriteCount int
	removed        bool
}

// InodeNumber returns the number of the sector holding the inode
// record.
func (i *Inode) InodeNumber() block.Sector {
	return i.record.sector
}

// Length returns the size of the file in bytes.
func (i *Inode) Length() (int64, error) {
	return i.record.length()
}

// SectorCount returns the number of data sectors that have been
// allocated for the file, excluding indirection blocks.
func (i *Inode) SectorCount() (uint32, error) {
	return i.record.sectorCount()
}

// IsDirectory returns whether the inode was created as a directory.
func (i *Inode) IsDirectory() (bool, error) {
	return i.record.isDirectory()
}

// Translate returns the sector containing the byte at a given offset.
func (i *Inode) Translate(offset int64) (block.Sector, error) {
	return i.record.translate(offset)
}

// Grow the file by a number of bytes, returning the number of bytes
// by which it was grown. Upon failure the size of the file remains
// unaltered.
func (i *Inode) Grow(additional int64) (int64, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.record.grow(additional)
}

// ReadAt reads data from the file, with the same semantics as
// io.ReaderAt. Reads stop at the end of the file.
func (i *Inode) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative read offset: %d", off)
	}
	length, err := i.record.length()
	if err != nil {
		return 0, err
	}

	n := 0
	for n < len(p) {
		position := off + int64(n)
		if position >= length {
			return n, io.EOF
		}
		sector, err := i.record.translate(position)
		if err != nil {
			return n, err
		}
		sectorOffset := int(position % block.BlockSize)
		chunk := min(len(p)-n, block.BlockSize-sectorOffset)
		if remaining := length - position; int64(chunk) > remaining {
			chunk = int(remaining)
		}
		if err := i.table.bufferCache.Get(sector, sectorOffset, p[n:n+chunk]); err != nil {
			return n, util.StatusWrapf(err, "Failed to read sector %d of inode %d", sector, i.record.sector)
		}
		n += chunk
	}
	return n, nil
}

// WriteAt writes data into the file, growing it if the write extends
// beyond the end of the file. If no space can be allocated, the write
// is limited to the space that is already allocated, and a short count
// is returned together with the error.
func (i *Inode) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative write offset: %d", off)
	}

	i.lock.Lock()
	if i.denyWriteCount > 0 {
		i.lock.Unlock()
		return 0, status.Errorf(codes.PermissionDenied, "Writes to inode %d are denied", i.record.sector)
	}
	growErr := i.growForWrite(&p, off)
	i.lock.Unlock()

	n := 0
	for n < len(p) {
		position := off + int64(n)
		sector, err := i.record.translate(position)
		if err != nil {
			return n, err
		}
		sectorOffset := int(position % block.BlockSize)
		chunk := min(len(p)-n, block.BlockSize-sectorOffset)
		if err := i.table.bufferCache.Put(sector, sectorOffset, p[n:n+chunk]); err != nil {
			return n, util.StatusWrapf(err, "Failed to write sector %d of inode %d", sector, i.record.sector)
		}
		n += chunk
	}
	return n, growErr
}

// growForWrite extends the file to cover a write. If that fails, the
// write is truncated to what fits in the sectors that are already
// allocated, and the file is extended up to that point instead.
func (i *Inode) growForWrite(p *[]byte, off int64) error {
	length, err := i.record.length()
	if err != nil {
		*p = nil
		return err
	}
	end := off + int64(len(*p))
	if end <= length {
		return nil
	}
	_, growErr := i.record.grow(end - length)
	if growErr == nil {
		return nil
	}

	sectorCount, err := i.record.sectorCount()
	if err != nil {
		*p = nil
		return err
	}
	allocated := int64(sectorCount) * block.BlockSize
	if off >= allocated {
		*p = nil
		return growErr
	}
	*p = (*p)[:allocated-off]
	if allocated > length {
		if _, err := i.record.grow(allocated - length); err != nil {
			*p = nil
			return err
		}
	}
	return growErr
}

// DenyWrite prevents writes to the inode until AllowWrite() is called.
// It may be called at most once per opener.
func (i *Inode) DenyWrite() {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.denyWriteCount >= i.openCount {
		panic(fmt.Sprintf("Inode %d has more write denials than openers", i.record.sector))
	}
	i.denyWriteCount++
}

// AllowWrite undoes a previous call to DenyWrite().
func (i *Inode) AllowWrite() {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.denyWriteCount == 0 {
		panic(fmt.Sprintf("Inode %d has no write denials", i.record.sector))
	}
	i.denyWriteCount--
}

// Remove marks the inode for deletion. Its sectors are released when
// the last opener closes it.
func (i *Inode) Remove() {
	i.lock.Lock()
	i.removed = true
	i.lock.Unlock()
}

// IsRemoved returns whether Remove() has been called.
func (i *Inode) IsRemoved() bool {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.removed
}

// Reopen registers an additional opener of the inode, which must
// eventually call Table.Close().
func (i *Inode) Reopen() *Inode {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.openCount == 0 {
		panic(fmt.Sprintf("Attempted to reopen inode %d, which is no longer open", i.record.sector))
	}
	i.openCount++
	return i
}

// OpenCount returns the number of openers of the inode.
func (i *Inode) OpenCount() int {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.openCount
}
