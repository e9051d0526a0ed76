package block_test

import (
	"testing"

	"github.com/buildbarn/bb-sectorfs/internal/mock"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestBlockDeviceBackedDevice(t *testing.T) {
	device := block.NewBlockDeviceBackedDevice(block.NewInMemoryBlockDevice(16*block.BlockSize), 16)
	require.Equal(t, block.Sector(16), device.SectorCount())

	t.Run("ReadUnwritten", func(t *testing.T) {
		// Sectors that were never written should read as zero.
		var b block.Block
		b[7] = 0xff
		require.NoError(t, device.ReadSector(3, &b))
		require.Equal(t, block.ZeroBlock, b)
		require.Equal(t, uint64(1), device.ReadCount())
		require.Equal(t, uint64(0), device.WriteCount())
	})

	t.Run("WriteAndReadBack", func(t *testing.T) {
		var in block.Block
		for i := range in {
			in[i] = byte(i)
		}
		require.NoError(t, device.WriteSector(15, &in))

		var out block.Block
		require.NoError(t, device.ReadSector(15, &out))
		require.Equal(t, in, out)

		// Neighbouring sectors should not be affected.
		require.NoError(t, device.ReadSector(14, &out))
		require.Equal(t, block.ZeroBlock, out)

		require.Equal(t, uint64(3), device.ReadCount())
		require.Equal(t, uint64(1), device.WriteCount())
	})

	t.Run("OutOfRange", func(t *testing.T) {
		var b block.Block
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.OutOfRange, "Sector 16 lies beyond the end of the device, which has 16 sectors"),
			device.ReadSector(16, &b))
		testutil.RequireEqualStatus(
			t,
			status.Error(codes.OutOfRange, "Sector 4294967295 lies beyond the end of the device, which has 16 sectors"),
			device.WriteSector(^block.Sector(0), &b))

		// Failed operations should not be counted.
		require.Equal(t, uint64(3), device.ReadCount())
		require.Equal(t, uint64(1), device.WriteCount())
	})
}

func TestBlockDeviceBackedDeviceTooSmall(t *testing.T) {
	// A device that claims to have more sectors than the underlying
	// storage provides should fail writes, as opposed to silently
	// dropping data.
	device := block.NewBlockDeviceBackedDevice(block.NewInMemoryBlockDevice(block.BlockSize), 2)

	var b block.Block
	require.NoError(t, device.WriteSector(0, &b))
	testutil.RequireEqualStatus(
		t,
		status.Error(codes.OutOfRange, "Failed to write sector 1: Write of 512 bytes at offset 512 lies beyond the end of the device, which is 512 bytes in size"),
		device.WriteSector(1, &b))
	testutil.RequireEqualStatus(
		t,
		status.Error(codes.Internal, "Read of sector 1 returned 0 bytes, while 512 bytes were expected"),
		device.ReadSector(1, &b))
}

func TestBlockDeviceBackedDeviceSyncAndClose(t *testing.T) {
	ctrl := gomock.NewController(t)

	blockDevice := mock.NewMockBlockDevice(ctrl)
	device := block.NewBlockDeviceBackedDevice(blockDevice, 8)

	t.Run("SyncFailure", func(t *testing.T) {
		blockDevice.EXPECT().Sync().Return(status.Error(codes.Internal, "Disk on fire"))
		testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Disk on fire"), device.Sync())
	})

	t.Run("ReadFailure", func(t *testing.T) {
		blockDevice.EXPECT().ReadAt(gomock.Len(block.BlockSize), int64(3*block.BlockSize)).
			Return(0, status.Error(codes.Internal, "Disk on fire"))
		var b block.Block
		testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Failed to read sector 3: Disk on fire"), device.ReadSector(3, &b))
		require.Equal(t, uint64(0), device.ReadCount())
	})

	t.Run("Close", func(t *testing.T) {
		// Closing the device closes the underlying block device.
		blockDevice.EXPECT().Close()
		require.NoError(t, device.Close())
	})
}

func TestInMemoryBlockDeviceClose(t *testing.T) {
	device := block.NewBlockDeviceBackedDevice(block.NewInMemoryBlockDevice(2*block.BlockSize), 2)
	var b block.Block
	require.NoError(t, device.WriteSector(1, &b))
	require.NoError(t, device.Close())

	// The storage is discarded after closing.
	testutil.RequireEqualStatus(
		t,
		status.Error(codes.Internal, "Read of sector 1 returned 0 bytes, while 512 bytes were expected"),
		device.ReadSector(1, &b))
}
