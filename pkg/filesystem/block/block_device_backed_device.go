package block

import (
	"io"

	"github.com/buildbarn/bb-storage/pkg/blockdevice"
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type blockDeviceBackedDevice struct {
	operationCounters

	blockDevice blockdevice.BlockDevice
	sectorCount Sector
}

// NewBlockDeviceBackedDevice creates a Device that stores sectors on a
// block device provided by bb-storage. Sector s is stored at byte
// offset s*BlockSize. The underlying block device may use a different
// sector size, as long as it is at least sectorCount*BlockSize bytes
// in size.
func NewBlockDeviceBackedDevice(blockDevice blockdevice.BlockDevice, sectorCount Sector) Device {
	return &blockDeviceBackedDevice{
		blockDevice: blockDevice,
		sectorCount: sectorCount,
	}
}

// toDeviceOffset converts a sector number to a byte offset on the
// underlying block device.
func toDeviceOffset(sector Sector) int64 {
	return int64(sector) * BlockSize
}

func (d *blockDeviceBackedDevice) ReadSector(sector Sector, block *Block) error {
	if err := checkSectorInRange(sector, d.sectorCount); err != nil {
		return err
	}
	n, err := d.blockDevice.ReadAt(block[:], toDeviceOffset(sector))
	if err != nil && err != io.EOF {
		return util.StatusWrapf(err, "Failed to read sector %d", sector)
	}
	if n != BlockSize {
		return status.Errorf(codes.Internal, "Read of sector %d returned %d bytes, while %d bytes were expected", sector, n, BlockSize)
	}
	d.reads.Add(1)
	return nil
}

func (d *blockDeviceBackedDevice) WriteSector(sector Sector, block *Block) error {
	if err := checkSectorInRange(sector, d.sectorCount); err != nil {
		return err
	}
	n, err := d.blockDevice.WriteAt(block[:], toDeviceOffset(sector))
	if err != nil {
		return util.StatusWrapf(err, "Failed to write sector %d", sector)
	}
	if n != BlockSize {
		return status.Errorf(codes.Internal, "Write of sector %d returned %d bytes, while %d bytes were expected", sector, n, BlockSize)
	}
	d.writes.Add(1)
	return nil
}

func (d *blockDeviceBackedDevice) Sync() error {
	return d.blockDevice.Sync()
}

func (d *blockDeviceBackedDevice) Close() error {
	return d.blockDevice.Close()
}

func (d *blockDeviceBackedDevice) SectorCount() Sector {
	return d.sectorCount
}
