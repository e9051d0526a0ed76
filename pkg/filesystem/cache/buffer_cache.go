package cache

import (
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
)

// BufferCache holds a fixed number of disk blocks in memory. Reads and
// writes of byte ranges within a sector are served from memory, and
// modified blocks are only written back to the underlying device upon
// eviction or when Flush() is called.
//
// Ranges passed to Get() and Put() must lie within a single block.
// Passing a range that crosses the end of a block is a programming
// error and causes a panic.
type BufferCache interface {
	Get(sector block.Sector, offset int, p []byte) error
	Put(sector block.Sector, offset int, p []byte) error
	Flush() error
	Stat() Statistics
}

// Statistics of a BufferCache, accumulated since the last call to
// Flush().
type Statistics struct {
	Hits        uint64
	ReadMisses  uint64
	WriteMisses uint64
}

// HitRatio returns the fraction of lookups that could be served without
// reading from the device. Write misses of full blocks are excluded, as
// they never cause the device to be read.
func (s Statistics) HitRatio() float64 {
	if total := s.Hits + s.ReadMisses; total > 0 {
		return float64(s.Hits) / float64(total)
	}
	return 0
}

func checkRange(offset int, p []byte) {
	if offset < 0 || offset+len(p) > block.BlockSize {
		panic("Byte range does not lie within a single block")
	}
}
