package allocator

import (
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
)

// SectorAllocator hands out sectors of a block device that are not in
// use. It is used by the inode layer to obtain sectors for file data
// and for indirection blocks.
//
// Implementations must be safe for concurrent use. Every call is
// atomic with respect to other calls, but callers must not assume
// anything about the order in which concurrent calls are served.
type SectorAllocator interface {
	// Allocate a contiguous range of exactly count sectors,
	// returning the first sector of the range. An error with code
	// RESOURCE_EXHAUSTED is returned if no such range exists.
	Allocate(count int) (block.Sector, error)
	// Release a contiguous range of sectors that was previously
	// returned by Allocate(). Releasing sectors that are not
	// allocated is a programming error and causes a panic.
	Release(first block.Sector, count int)
}
