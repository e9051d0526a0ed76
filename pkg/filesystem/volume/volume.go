package volume

import (
	configuration "github.com/buildbarn/bb-sectorfs/pkg/configuration/bb_sectorfs"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/allocator"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/cache"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/inode"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// FreeMapSector is reserved for storing the sector allocation
	// bitmap.
	FreeMapSector block.Sector = 0
	// RootDirectorySector holds the inode of the root directory.
	RootDirectorySector block.Sector = 1
	// MinimumReservedSectors is the number of sectors at the start
	// of the device that are never handed out by the allocator.
	MinimumReservedSectors = 2
)

// Statistics of a volume, as reported by Volume.Statistics().
type Statistics struct {
	Cache        cache.Statistics
	DeviceReads  uint64
	DeviceWrites uint64
}

// Volume ties together a block device, a sector allocator, a buffer
// cache in front of the device and the table of open inodes.
type Volume struct {
	device          block.Device
	sectorAllocator allocator.SectorAllocator
	bufferCache     cache.BufferCache
	inodes          *inode.Table
}

// NewVolume creates a Volume from its components. The sector allocator
// must not hand out the free map and root directory sectors.
func NewVolume(device block.Device, sectorAllocator allocator.SectorAllocator, bufferCache cache.BufferCache) *Volume {
	return &Volume{
		device:          device,
		sectorAllocator: sectorAllocator,
		bufferCache:     bufferCache,
		inodes:          inode.NewTable(bufferCache, sectorAllocator),
	}
}

// Format writes an empty root directory inode to the volume.
func (v *Volume) Format(rootDirectoryLength int64) error {
	if err := v.inodes.Create(RootDirectorySector, rootDirectoryLength, true); err != nil {
		return util.StatusWrap(err, "Failed to create root directory")
	}
	return nil
}

// CreateFile allocates a sector for a new inode and initializes it. The
// sector is released again if the inode cannot be created. The sector
// number can be passed to Inodes().Open().
func (v *Volume) CreateFile(initialLength int64, isDirectory bool) (block.Sector, error) {
	sector, err := v.sectorAllocator.Allocate(1)
	if err != nil {
		return 0, util.StatusWrap(err, "Failed to allocate inode")
	}
	if err := v.inodes.Create(sector, initialLength, isDirectory); err != nil {
		v.sectorAllocator.Release(sector, 1)
		return 0, err
	}
	return sector, nil
}

// Remount flushes the volume and replaces its buffer cache by an empty
// one, as if the volume was closed and opened again. It may only be
// called while no inodes are open, and not concurrently with other
// operations against the volume.
func (v *Volume) Remount(bufferCacheConfiguration *configuration.BufferCacheConfiguration) error {
	if n := v.inodes.OpenInodes(); n > 0 {
		return status.Errorf(codes.FailedPrecondition, "Cannot remount volume while %d inodes are open", n)
	}
	bufferCache, err := cache.NewBufferCacheFromConfiguration(v.device, bufferCacheConfiguration)
	if err != nil {
		return err
	}
	if err := v.bufferCache.Flush(); err != nil {
		return util.StatusWrap(err, "Failed to flush buffer cache")
	}
	v.bufferCache = bufferCache
	v.inodes = inode.NewTable(bufferCache, v.sectorAllocator)
	return nil
}

// Inodes returns the table of open inodes.
func (v *Volume) Inodes() *inode.Table {
	return v.inodes
}

// Cache returns the buffer cache in front of the device.
func (v *Volume) Cache() cache.BufferCache {
	return v.bufferCache
}

// Flush writes all modified blocks back to the device.
func (v *Volume) Flush() error {
	return v.bufferCache.Flush()
}

// Close flushes the volume and closes the underlying device. Inodes
// that are still open are not closed, and may no longer be used.
func (v *Volume) Close() error {
	if err := v.bufferCache.Flush(); err != nil {
		return util.StatusWrap(err, "Failed to flush buffer cache")
	}
	if err := v.device.Close(); err != nil {
		return util.StatusWrap(err, "Failed to close device")
	}
	return nil
}

// Statistics returns the buffer cache statistics since the last flush,
// together with the total number of device reads and writes.
func (v *Volume) Statistics() Statistics {
	return Statistics{
		Cache:        v.bufferCache.Stat(),
		DeviceReads:  v.device.ReadCount(),
		DeviceWrites: v.device.WriteCount(),
	}
}
