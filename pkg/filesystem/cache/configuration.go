package cache

import (
	configuration "github.com/buildbarn/bb-sectorfs/pkg/configuration/bb_sectorfs"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/eviction"
	"github.com/buildbarn/bb-storage/pkg/util"
)

// NewBufferCacheFromConfiguration creates a BufferCache for a device,
// using the slot count and cache replacement policy that are provided
// in the configuration. The resulting cache exposes Prometheus metrics.
func NewBufferCacheFromConfiguration(device block.Device, bufferCacheConfiguration *configuration.BufferCacheConfiguration) (BufferCache, error) {
	evictionSet, err := eviction.NewSetFromConfiguration[int](bufferCacheConfiguration.CacheReplacementPolicy)
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to create buffer cache eviction set")
	}
	return NewMetricsBufferCache(
		NewSlotPoolBufferCache(
			device,
			bufferCacheConfiguration.SlotCount,
			eviction.NewMetricsSet(evictionSet, "BufferCache")),
		clock.SystemClock,
		"BufferCache"), nil
}
