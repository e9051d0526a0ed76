package allocator_test

import (
	"testing"

	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/allocator"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestBitmapSectorAllocatorExample(t *testing.T) {
	sectorAllocator := allocator.NewBitmapSectorAllocator(1000, 2)

	// Allocate four regions of sectors. The first two sectors are
	// reserved, meaning allocation starts at sector 2.
	for i := 0; i < 4; i++ {
		firstSector, err := sectorAllocator.Allocate(200)
		require.NoError(t, err)
		require.Equal(t, block.Sector(200*i+2), firstSector)
	}

	// Only 198 sectors remain, so a fifth region of 200 sectors
	// cannot be allocated.
	_, err := sectorAllocator.Allocate(200)
	testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "No free sectors available"), err)

	firstSector, err := sectorAllocator.Allocate(198)
	require.NoError(t, err)
	require.Equal(t, block.Sector(802), firstSector)

	_, err = sectorAllocator.Allocate(1)
	testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "No free sectors available"), err)

	// Release all regions, bringing us back to the initial state.
	for i := 0; i < 4; i++ {
		sectorAllocator.Release(block.Sector(200*i+2), 200)
	}
	sectorAllocator.Release(802, 198)

	// Allocating all space should wrap around and return one large
	// region.
	firstSector, err = sectorAllocator.Allocate(998)
	require.NoError(t, err)
	require.Equal(t, block.Sector(2), firstSector)

	// Release some small holes here and there.
	sectorAllocator.Release(83, 12)
	sectorAllocator.Release(241, 91)
	sectorAllocator.Release(503, 2)
	sectorAllocator.Release(999, 1)
	sectorAllocator.Release(2, 1)

	// Attempt to allocate these holes again. They should be
	// returned in incrementing order.
	for _, a := range []struct {
		firstSector block.Sector
		sectorCount int
	}{{2, 1}, {83, 12}, {241, 91}, {503, 2}, {999, 1}} {
		firstSector, err := sectorAllocator.Allocate(a.sectorCount)
		require.NoError(t, err)
		require.Equal(t, a.firstSector, firstSector)
	}

	// With all of the holes filled up, successive allocations are
	// no longer possible.
	_, err = sectorAllocator.Allocate(1)
	testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "No free sectors available"), err)
}

func TestBitmapSectorAllocatorContiguity(t *testing.T) {
	sectorAllocator := allocator.NewBitmapSectorAllocator(128, 0)

	firstSector, err := sectorAllocator.Allocate(128)
	require.NoError(t, err)
	require.Equal(t, block.Sector(0), firstSector)

	// Free sectors exist, but none of them are adjacent. Requests
	// for multiple sectors must fail, while requests for a single
	// sector succeed.
	sectorAllocator.Release(10, 1)
	sectorAllocator.Release(12, 1)
	sectorAllocator.Release(64, 1)
	_, err = sectorAllocator.Allocate(2)
	testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "No free sectors available"), err)

	for _, expectedSector := range []block.Sector{10, 12, 64} {
		firstSector, err := sectorAllocator.Allocate(1)
		require.NoError(t, err)
		require.Equal(t, expectedSector, firstSector)
	}

	// Runs may cross bitmap word boundaries.
	sectorAllocator.Release(60, 8)
	firstSector, err = sectorAllocator.Allocate(8)
	require.NoError(t, err)
	require.Equal(t, block.Sector(60), firstSector)
}

func TestBitmapSectorAllocatorReservedSectors(t *testing.T) {
	sectorAllocator := allocator.NewBitmapSectorAllocator(4, 2)

	// An attempt to release a reserved sector must not cause it to
	// be handed out afterwards.
	require.Panics(t, func() { sectorAllocator.Release(1, 1) })

	var allocated []block.Sector
	for {
		sector, err := sectorAllocator.Allocate(1)
		if err != nil {
			testutil.RequireEqualStatus(t, status.Error(codes.ResourceExhausted, "No free sectors available"), err)
			break
		}
		allocated = append(allocated, sector)
	}
	require.Equal(t, []block.Sector{2, 3}, allocated)
}

func TestBitmapSectorAllocatorInvalidUse(t *testing.T) {
	sectorAllocator := allocator.NewBitmapSectorAllocator(100, 2)

	t.Run("NonPositiveCount", func(t *testing.T) {
		_, err := sectorAllocator.Allocate(0)
		testutil.RequireEqualStatus(t, status.Error(codes.InvalidArgument, "Attempted to allocate 0 sectors"), err)
	})

	t.Run("ReleaseReserved", func(t *testing.T) {
		require.PanicsWithValue(t, "Attempted to release sector 1, even though the first 2 sectors are reserved", func() {
			sectorAllocator.Release(1, 1)
		})
		require.PanicsWithValue(t, "Attempted to release sector 0, even though the first 2 sectors are reserved", func() {
			sectorAllocator.Release(0, 3)
		})
	})

	t.Run("DoubleRelease", func(t *testing.T) {
		firstSector, err := sectorAllocator.Allocate(1)
		require.NoError(t, err)
		require.Equal(t, block.Sector(2), firstSector)

		sectorAllocator.Release(2, 1)
		require.PanicsWithValue(t, "Attempted to release sector 2, even though it's not allocated", func() {
			sectorAllocator.Release(2, 1)
		})
	})

	t.Run("ReleaseBeyondEnd", func(t *testing.T) {
		require.PanicsWithValue(t, "Attempted to release sectors [99, 101), even though the device only has 100 sectors", func() {
			sectorAllocator.Release(99, 2)
		})
	})
}
