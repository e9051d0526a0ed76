package allocator

import (
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type quotaEnforcingSectorAllocator struct {
	base             SectorAllocator
	sectorsRemaining quotaMetric
}

// NewQuotaEnforcingSectorAllocator creates a SectorAllocator that
// limits how many sectors may be allocated from an underlying
// SectorAllocator at any point in time. Once the quota is reached,
// allocations fail in the same way as when the underlying device is
// full, making it possible to exercise out-of-space handling without
// filling up a device.
func NewQuotaEnforcingSectorAllocator(base SectorAllocator, maximumSectors int64) SectorAllocator {
	sa := &quotaEnforcingSectorAllocator{
		base: base,
	}
	sa.sectorsRemaining.release(maximumSectors)
	return sa
}

func (sa *quotaEnforcingSectorAllocator) Allocate(count int) (block.Sector, error) {
	if !sa.sectorsRemaining.allocate(int64(count)) {
		return 0, status.Error(codes.ResourceExhausted, "Sector count quota reached")
	}
	first, err := sa.base.Allocate(count)
	if err != nil {
		sa.sectorsRemaining.release(int64(count))
		return 0, err
	}
	return first, nil
}

func (sa *quotaEnforcingSectorAllocator) Release(first block.Sector, count int) {
	sa.base.Release(first, count)
	sa.sectorsRemaining.release(int64(count))
}
