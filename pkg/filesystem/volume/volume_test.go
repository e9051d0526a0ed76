package volume_test

import (
	"io"
	"math/rand"
	"testing"

	"github.com/buildbarn/bb-sectorfs/internal/mock"
	configuration "github.com/buildbarn/bb-sectorfs/pkg/configuration/bb_sectorfs"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/cache"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/inode"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/volume"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const fileSize = 102400

func newVolumeFromSnippet(t *testing.T, snippet string) *volume.Volume {
	volumeConfiguration, err := configuration.GetConfigurationFromSnippet("volume.jsonnet", snippet)
	require.NoError(t, err)
	v, err := volume.NewVolumeFromConfiguration(volumeConfiguration)
	require.NoError(t, err)
	return v
}

func readSequentially(t *testing.T, i *inode.Inode, random *rand.Rand) []byte {
	data := make([]byte, fileSize)
	for off := 0; off < fileSize; {
		chunk := min(random.Intn(fileSize/8)+128, fileSize-off)
		n, err := i.ReadAt(data[off:off+chunk], int64(off))
		require.NoError(t, err)
		require.Equal(t, chunk, n)
		off += chunk
	}
	return data
}

func TestVolumeFormat(t *testing.T) {
	v := newVolumeFromSnippet(t, `{ inMemorySectorCount: 1024 }`)
	require.NoError(t, v.Format(16*block.BlockSize))

	root, err := v.Inodes().Open(volume.RootDirectorySector)
	require.NoError(t, err)
	isDirectory, err := root.IsDirectory()
	require.NoError(t, err)
	require.True(t, isDirectory)
	length, err := root.Length()
	require.NoError(t, err)
	require.Equal(t, int64(16*block.BlockSize), length)
	require.NoError(t, v.Inodes().Close(root))

	// The free map sector is not an inode.
	_, err = v.Inodes().Open(volume.FreeMapSector)
	require.Equal(t, codes.DataLoss, status.Code(err))
	require.NoError(t, v.Close())
}

func TestVolumeCreateFile(t *testing.T) {
	v := newVolumeFromSnippet(t, `{ inMemorySectorCount: 1024, maximumSectors: 8 }`)

	// Failing to allocate the data sectors should cause the inode
	// sector to be released as well.
	_, err := v.CreateFile(10*block.BlockSize, false)
	require.Equal(t, codes.ResourceExhausted, status.Code(err))

	for j := 0; j < 8; j++ {
		sector, err := v.CreateFile(0, false)
		require.NoError(t, err)
		require.GreaterOrEqual(t, sector, block.Sector(volume.MinimumReservedSectors))
	}
	_, err = v.CreateFile(0, false)
	testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "Failed to allocate inode: Sector count quota reached"), err)
}

func TestVolumeClose(t *testing.T) {
	ctrl := gomock.NewController(t)

	device := mock.NewMockDevice(ctrl)
	sectorAllocator := mock.NewMockSectorAllocator(ctrl)
	bufferCache := mock.NewMockBufferCache(ctrl)
	v := volume.NewVolume(device, sectorAllocator, bufferCache)

	t.Run("FlushFailure", func(t *testing.T) {
		// The device must remain open if dirty blocks could not
		// be written back.
		bufferCache.EXPECT().Flush().Return(status.Error(codes.Internal, "Disk on fire"))
		testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Failed to flush buffer cache: Disk on fire"), v.Close())
	})

	t.Run("CloseFailure", func(t *testing.T) {
		gomock.InOrder(
			bufferCache.EXPECT().Flush(),
			device.EXPECT().Close().Return(status.Error(codes.Internal, "Bad file descriptor")))
		testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Failed to close device: Bad file descriptor"), v.Close())
	})

	t.Run("Success", func(t *testing.T) {
		gomock.InOrder(
			bufferCache.EXPECT().Flush(),
			device.EXPECT().Close())
		require.NoError(t, v.Close())
	})
}

func TestVolumeFromConfigurationInvalid(t *testing.T) {
	t.Run("TooFewReservedSectors", func(t *testing.T) {
		_, err := volume.NewVolumeFromConfiguration(&configuration.ApplicationConfiguration{
			InMemorySectorCount: 1024,
			ReservedSectors:     1,
		})
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "At least 2 sectors need to be reserved, while only 1 are"), err)
	})

	t.Run("TooSmall", func(t *testing.T) {
		volumeConfiguration, err := configuration.GetConfigurationFromSnippet("small.jsonnet", `{ inMemorySectorCount: 2 }`)
		require.NoError(t, err)
		_, err = volume.NewVolumeFromConfiguration(volumeConfiguration)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Device has 2 sectors, which is not more than the 2 reserved sectors"), err)
	})
}

func TestVolumeFullBlockWrite(t *testing.T) {
	v := newVolumeFromSnippet(t, `{ inMemorySectorCount: 4096, bufferCache: { slotCount: 64 } }`)

	sector, err := v.CreateFile(fileSize, false)
	require.NoError(t, err)
	i, err := v.Inodes().Open(sector)
	require.NoError(t, err)

	data := make([]byte, fileSize)
	rand.New(rand.NewSource(0)).Read(data)

	// Overwriting all blocks of the file should not cause data
	// blocks to be read. Only the inode and indirection blocks
	// may need to be loaded.
	before := v.Statistics()
	n, err := i.WriteAt(data, 0)
	require.NoError(t, err)
	require.Equal(t, fileSize, n)
	require.NoError(t, v.Flush())
	after := v.Statistics()
	require.LessOrEqual(t, after.DeviceReads-before.DeviceReads, uint64(4))
	require.GreaterOrEqual(t, after.DeviceWrites-before.DeviceWrites, uint64(fileSize/block.BlockSize))

	readBack := make([]byte, fileSize+1)
	n, err = i.ReadAt(readBack, 0)
	require.Equal(t, io.EOF, err)
	require.Equal(t, fileSize, n)
	require.Equal(t, data, readBack[:fileSize])
	require.NoError(t, v.Inodes().Close(i))
}

func TestVolumeHitRate(t *testing.T) {
	// The cache is large enough to hold the entire file, including
	// its inode and indirection blocks.
	volumeConfiguration, err := configuration.GetConfigurationFromSnippet("volume.jsonnet", `{ inMemorySectorCount: 4096, bufferCache: { slotCount: 256 } }`)
	require.NoError(t, err)
	v, err := volume.NewVolumeFromConfiguration(volumeConfiguration)
	require.NoError(t, err)

	// Write a file in randomly sized chunks.
	random := rand.New(rand.NewSource(0))
	data := make([]byte, fileSize)
	random.Read(data)

	sector, err := v.CreateFile(0, false)
	require.NoError(t, err)
	i, err := v.Inodes().Open(sector)
	require.NoError(t, err)
	for off := 0; off < fileSize; {
		chunk := min(random.Intn(fileSize/8)+1, fileSize-off)
		n, err := i.WriteAt(data[off:off+chunk], int64(off))
		require.NoError(t, err)
		require.Equal(t, chunk, n)
		off += chunk
	}

	// Remounting is not permitted while the file is open.
	testutil.RequireEqualStatus(t, status.Error(codes.FailedPrecondition, "Cannot remount volume while 1 inodes are open"), v.Remount(&volumeConfiguration.BufferCache))
	require.NoError(t, v.Inodes().Close(i))

	// Remounting writes the file to the device and starts off with
	// an empty cache, so that the first pass is cold.
	require.NoError(t, v.Remount(&volumeConfiguration.BufferCache))
	require.Equal(t, cache.Statistics{}, v.Statistics().Cache)
	i, err = v.Inodes().Open(sector)
	require.NoError(t, err)
	require.Equal(t, data, readSequentially(t, i, random))
	require.NoError(t, v.Inodes().Close(i))
	cold := v.Statistics().Cache
	require.Equal(t, uint64(0), cold.WriteMisses)
	require.Less(t, cold.HitRatio(), 1.0)

	// Reading the file again without flushing should be served
	// from the cache entirely.
	i, err = v.Inodes().Open(sector)
	require.NoError(t, err)
	deviceReads := v.Statistics().DeviceReads
	require.Equal(t, data, readSequentially(t, i, random))
	require.NoError(t, v.Inodes().Close(i))
	require.Equal(t, deviceReads, v.Statistics().DeviceReads)

	hot := v.Statistics().Cache
	require.Equal(t, cold.ReadMisses, hot.ReadMisses)
	hotPass := cache.Statistics{Hits: hot.Hits - cold.Hits}
	require.Equal(t, 1.0, hotPass.HitRatio())
	require.Greater(t, hot.HitRatio(), cold.HitRatio())
	require.NoError(t, v.Close())
}
