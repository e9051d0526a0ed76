package allocator

import (
	"fmt"
	"sync"

	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type bitmapSectorAllocator struct {
	lock            sync.Mutex
	freeBitmap      []uint64 // One bits indicate sectors that are free.
	sectorCount     block.Sector
	reservedSectors block.Sector
	nextSector      block.Sector
}

const (
	allBits = ^uint64(0)
)

// NewBitmapSectorAllocator creates a SectorAllocator that stores
// information on which sectors are allocated in a bitmap. Sectors are
// allocated by sequentially scanning the bitmap, continuing where
// previous calls left off.
//
// The first reservedSectors sectors of the device are never handed
// out. These hold data structures at well-known locations, such as the
// free map and the root directory.
func NewBitmapSectorAllocator(sectorCount, reservedSectors block.Sector) SectorAllocator {
	if reservedSectors > sectorCount {
		reservedSectors = sectorCount
	}
	sa := &bitmapSectorAllocator{
		freeBitmap:      make([]uint64, (sectorCount+63)/64),
		sectorCount:     sectorCount,
		reservedSectors: reservedSectors,
		nextSector:      reservedSectors,
	}

	// Mark all sectors as being free, except for the ones that lie
	// beyond the end of the device in the final bitmap word.
	for i := range sa.freeBitmap {
		sa.freeBitmap[i] = allBits
	}
	if r := sectorCount % 64; r != 0 {
		sa.freeBitmap[len(sa.freeBitmap)-1] = ^(allBits << r)
	}
	for sector := block.Sector(0); sector < reservedSectors; sector++ {
		sa.freeBitmap[sector/64] &^= 1 << (sector % 64)
	}
	return sa
}

func (sa *bitmapSectorAllocator) isFree(sector block.Sector) bool {
	return sa.freeBitmap[sector/64]&(1<<(sector%64)) != 0
}

// findRun searches for count consecutive free sectors that lie within
// the range [begin, end).
func (sa *bitmapSectorAllocator) findRun(begin, end block.Sector, count int) (block.Sector, bool) {
	run := 0
	for sector := begin; sector < end; sector++ {
		if sector%64 == 0 && sa.freeBitmap[sector/64] == 0 {
			// Skip bitmap words that are fully allocated.
			run = 0
			sector += 63
			continue
		}
		if sa.isFree(sector) {
			run++
			if run == count {
				return sector + 1 - block.Sector(count), true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

func (sa *bitmapSectorAllocator) Allocate(count int) (block.Sector, error) {
	if count <= 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Attempted to allocate %d sectors", count)
	}

	sa.lock.Lock()
	defer sa.lock.Unlock()

	// Allocate sectors from the current location to the end. If
	// that fails, wrap around and allocate sectors from the
	// beginning, permitting runs that cross the current location.
	first, ok := sa.findRun(sa.nextSector, sa.sectorCount, count)
	if !ok {
		end := sa.nextSector + block.Sector(count) - 1
		if end > sa.sectorCount {
			end = sa.sectorCount
		}
		if first, ok = sa.findRun(0, end, count); !ok {
			return 0, status.Error(codes.ResourceExhausted, "No free sectors available")
		}
	}

	for sector := first; sector < first+block.Sector(count); sector++ {
		sa.freeBitmap[sector/64] &^= 1 << (sector % 64)
	}
	sa.nextSector = first + block.Sector(count)
	return first, nil
}

func (sa *bitmapSectorAllocator) Release(first block.Sector, count int) {
	sa.lock.Lock()
	defer sa.lock.Unlock()

	if uint64(first)+uint64(count) > uint64(sa.sectorCount) {
		panic(fmt.Sprintf("Attempted to release sectors [%d, %d), even though the device only has %d sectors", first, uint64(first)+uint64(count), sa.sectorCount))
	}
	if first < sa.reservedSectors {
		panic(fmt.Sprintf("Attempted to release sector %d, even though the first %d sectors are reserved", first, sa.reservedSectors))
	}
	for sector := first; sector < first+block.Sector(count); sector++ {
		if sa.isFree(sector) {
			panic(fmt.Sprintf("Attempted to release sector %d, even though it's not allocated", sector))
		}
		sa.freeBitmap[sector/64] |= 1 << (sector % 64)
	}
}
