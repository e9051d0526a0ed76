package cache

import (
	"fmt"
	"sync"

	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-storage/pkg/eviction"
	"github.com/buildbarn/bb-storage/pkg/util"
)

type slot struct {
	sector block.Sector
	valid  bool
	dirty  bool

	// Whether a caller has exclusive access to the slot. Callers
	// only access data while holding the slot busy, not while
	// holding the cache-wide lock.
	busy     bool
	released *sync.Cond

	data block.Block
}

type slotPoolBufferCache struct {
	device block.Device

	lock        sync.Mutex
	slots       []slot
	sectors     map[block.Sector]int
	evictionSet eviction.Set[int]
	statistics  Statistics
}

// NewSlotPoolBufferCache creates a BufferCache that is backed by a
// fixed pool of slots. The eviction set determines which slot is
// recycled upon a miss. It should be empty, as the indices of all
// slots are inserted into it.
//
// All bookkeeping is protected by a single mutex. Device I/O and copying
// of data is performed while only holding the slot busy, meaning that
// operations against different sectors may run concurrently.
func NewSlotPoolBufferCache(device block.Device, slotCount int, evictionSet eviction.Set[int]) BufferCache {
	if slotCount <= 0 {
		panic(fmt.Sprintf("Attempted to create a buffer cache with %d slots", slotCount))
	}
	bc := &slotPoolBufferCache{
		device:      device,
		slots:       make([]slot, slotCount),
		sectors:     make(map[block.Sector]int, slotCount),
		evictionSet: evictionSet,
	}
	for i := range bc.slots {
		bc.slots[i].released = sync.NewCond(&bc.lock)
		evictionSet.Insert(i)
	}
	return bc
}

// releaseSlot gives up exclusive access to a slot. The cache-wide lock
// must be held.
func (bc *slotPoolBufferCache) releaseSlot(s *slot) {
	s.busy = false
	s.released.Broadcast()
}

// acquireSlot returns a busy slot that is labeled with the provided
// sector. The boolean return value indicates whether the slot already
// contained the sector's data.
func (bc *slotPoolBufferCache) acquireSlot(sector block.Sector, isWrite bool) (*slot, bool, error) {
	bc.lock.Lock()
	defer bc.lock.Unlock()

	for {
		if index, ok := bc.sectors[sector]; ok {
			s := &bc.slots[index]
			if s.busy {
				s.released.Wait()
				continue
			}
			s.busy = true
			bc.evictionSet.Touch(index)
			bc.statistics.Hits++
			return s, true, nil
		}

		index := bc.evictionSet.Peek()
		s := &bc.slots[index]
		if s.busy {
			s.released.Wait()
			continue
		}
		if s.valid && s.dirty {
			// Write the victim back under its old label. The
			// slot remains discoverable through the lookup
			// index, so that concurrent users of that sector
			// wait for us to finish.
			oldSector := s.sector
			s.busy = true
			bc.lock.Unlock()
			err := bc.device.WriteSector(oldSector, &s.data)
			bc.lock.Lock()
			if err == nil {
				s.dirty = false
			}
			bc.releaseSlot(s)
			if err != nil {
				return nil, false, util.StatusWrapf(err, "Failed to write back sector %d", oldSector)
			}
			continue
		}

		if s.valid {
			delete(bc.sectors, s.sector)
		}
		s.sector = sector
		s.valid = true
		s.busy = true
		bc.sectors[sector] = index
		bc.evictionSet.Touch(index)
		if isWrite {
			bc.statistics.WriteMisses++
		} else {
			bc.statistics.ReadMisses++
		}
		return s, false, nil
	}
}

// fillSlot loads the contents of a freshly labeled slot from the
// device. Upon failure the slot is invalidated and released.
func (bc *slotPoolBufferCache) fillSlot(s *slot) error {
	if err := bc.device.ReadSector(s.sector, &s.data); err != nil {
		bc.lock.Lock()
		delete(bc.sectors, s.sector)
		s.valid = false
		s.dirty = false
		bc.releaseSlot(s)
		bc.lock.Unlock()
		return err
	}
	return nil
}

func (bc *slotPoolBufferCache) Get(sector block.Sector, offset int, p []byte) error {
	checkRange(offset, p)
	s, hit, err := bc.acquireSlot(sector, false)
	if err != nil {
		return err
	}
	if !hit {
		if err := bc.fillSlot(s); err != nil {
			return err
		}
	}
	copy(p, s.data[offset:])

	bc.lock.Lock()
	bc.releaseSlot(s)
	bc.lock.Unlock()
	return nil
}

func (bc *slotPoolBufferCache) Put(sector block.Sector, offset int, p []byte) error {
	checkRange(offset, p)
	s, hit, err := bc.acquireSlot(sector, true)
	if err != nil {
		return err
	}
	if !hit && (offset != 0 || len(p) != block.BlockSize) {
		// Partial writes need the remainder of the block.
		if err := bc.fillSlot(s); err != nil {
			return err
		}
	}
	copy(s.data[offset:], p)

	bc.lock.Lock()
	s.dirty = true
	bc.releaseSlot(s)
	bc.lock.Unlock()
	return nil
}

func (bc *slotPoolBufferCache) Flush() error {
	bc.lock.Lock()
	for i := range bc.slots {
		s := &bc.slots[i]
		for s.busy {
			s.released.Wait()
		}
		if !s.valid || !s.dirty {
			continue
		}

		sector := s.sector
		s.busy = true
		bc.lock.Unlock()
		err := bc.device.WriteSector(sector, &s.data)
		bc.lock.Lock()
		if err == nil {
			s.dirty = false
		}
		bc.releaseSlot(s)
		if err != nil {
			bc.lock.Unlock()
			return util.StatusWrapf(err, "Failed to write back sector %d", sector)
		}
	}
	bc.lock.Unlock()

	if err := bc.device.Sync(); err != nil {
		return util.StatusWrap(err, "Failed to synchronize device")
	}

	bc.lock.Lock()
	bc.statistics = Statistics{}
	bc.lock.Unlock()
	return nil
}

func (bc *slotPoolBufferCache) Stat() Statistics {
	bc.lock.Lock()
	defer bc.lock.Unlock()
	return bc.statistics
}
