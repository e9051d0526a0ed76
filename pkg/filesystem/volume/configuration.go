package volume

import (
	"math"

	configuration "github.com/buildbarn/bb-sectorfs/pkg/configuration/bb_sectorfs"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/allocator"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/cache"
	"github.com/buildbarn/bb-storage/pkg/blockdevice"
	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewVolumeFromConfiguration constructs a Volume based on parameters
// provided in a configuration file.
func NewVolumeFromConfiguration(volumeConfiguration *configuration.ApplicationConfiguration) (*Volume, error) {
	if volumeConfiguration.ReservedSectors < MinimumReservedSectors {
		return nil, status.Errorf(codes.InvalidArgument, "At least %d sectors need to be reserved, while only %d are", MinimumReservedSectors, volumeConfiguration.ReservedSectors)
	}

	var blockDevice blockdevice.BlockDevice
	var sectorCount block.Sector
	if volumeConfiguration.BlockDevice != nil {
		var err error
		var sectorSizeBytes int
		var deviceSectorCount int64
		blockDevice, sectorSizeBytes, deviceSectorCount, err = blockdevice.NewBlockDeviceFromConfiguration(volumeConfiguration.BlockDevice, true)
		if err != nil {
			return nil, util.StatusWrap(err, "Failed to create block device")
		}
		blockCount := int64(sectorSizeBytes) * deviceSectorCount / block.BlockSize
		if blockCount > math.MaxUint32 {
			return nil, status.Errorf(codes.InvalidArgument, "Block device has %d blocks, while only %d may be addressed", blockCount, uint32(math.MaxUint32))
		}
		sectorCount = block.Sector(blockCount)
	} else {
		sectorCount = block.Sector(volumeConfiguration.InMemorySectorCount)
		blockDevice = block.NewInMemoryBlockDevice(int(sectorCount) * block.BlockSize)
	}
	if sectorCount <= block.Sector(volumeConfiguration.ReservedSectors) {
		return nil, status.Errorf(codes.InvalidArgument, "Device has %d sectors, which is not more than the %d reserved sectors", sectorCount, volumeConfiguration.ReservedSectors)
	}

	device := block.NewMetricsDevice(
		block.NewBlockDeviceBackedDevice(blockDevice, sectorCount),
		clock.SystemClock,
		"Volume")

	sectorAllocator := allocator.NewBitmapSectorAllocator(sectorCount, block.Sector(volumeConfiguration.ReservedSectors))
	if volumeConfiguration.MaximumSectors > 0 {
		sectorAllocator = allocator.NewQuotaEnforcingSectorAllocator(sectorAllocator, volumeConfiguration.MaximumSectors)
	}
	sectorAllocator = allocator.NewMetricsSectorAllocator(sectorAllocator, "Volume")

	bufferCache, err := cache.NewBufferCacheFromConfiguration(device, &volumeConfiguration.BufferCache)
	if err != nil {
		return nil, err
	}
	return NewVolume(device, sectorAllocator, bufferCache), nil
}
