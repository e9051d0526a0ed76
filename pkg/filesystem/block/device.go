package block

import (
	"sync/atomic"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Device is a synchronous block device that is read and written one
// sector at a time. Implementations keep track of the number of reads
// and writes that were performed, so that callers can measure the
// effectiveness of caching.
//
// Concurrent calls against distinct sectors are permitted. Callers are
// responsible for serializing access to the same sector. No calls may
// be made after Close().
type Device interface {
	ReadSector(sector Sector, block *Block) error
	WriteSector(sector Sector, block *Block) error
	Sync() error
	Close() error

	SectorCount() Sector
	ReadCount() uint64
	WriteCount() uint64
}

// operationCounters can be embedded into implementations of Device to
// provide the ReadCount() and WriteCount() methods.
type operationCounters struct {
	reads  atomic.Uint64
	writes atomic.Uint64
}

func (c *operationCounters) ReadCount() uint64 {
	return c.reads.Load()
}

func (c *operationCounters) WriteCount() uint64 {
	return c.writes.Load()
}

func checkSectorInRange(sector, sectorCount Sector) error {
	if sector >= sectorCount {
		return status.Errorf(codes.OutOfRange, "Sector %d lies beyond the end of the device, which has %d sectors", sector, sectorCount)
	}
	return nil
}
