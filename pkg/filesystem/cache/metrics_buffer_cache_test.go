package cache_test

import (
	"sync/atomic"
	"testing"

	"github.com/buildbarn/bb-sectorfs/internal/mock"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/cache"
	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// getLookupsTotal returns the value of the lookup counter of a buffer
// cache for a given result.
func getLookupsTotal(t *testing.T, name, result string) float64 {
	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, metricFamily := range metricFamilies {
		if metricFamily.GetName() != "buildbarn_sectorfs_buffer_cache_lookups_total" {
			continue
		}
		for _, metric := range metricFamily.GetMetric() {
			labels := map[string]string{}
			for _, label := range metric.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}
			if labels["name"] == name && labels["result"] == result {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMetricsBufferCacheFlush(t *testing.T) {
	ctrl := gomock.NewController(t)

	baseBufferCache := mock.NewMockBufferCache(ctrl)
	bufferCache := cache.NewMetricsBufferCache(baseBufferCache, clock.SystemClock, "FlushTest")

	t.Run("Failure", func(t *testing.T) {
		// Statistics are retained by a failed flush, meaning they
		// must not be added to the counters yet.
		gomock.InOrder(
			baseBufferCache.EXPECT().Stat().Return(cache.Statistics{Hits: 3, ReadMisses: 1, WriteMisses: 2}),
			baseBufferCache.EXPECT().Flush().Return(status.Error(codes.Internal, "Disk on fire")))
		testutil.RequireEqualStatus(t, status.Error(codes.Internal, "Disk on fire"), bufferCache.Flush())
		require.Equal(t, 0.0, getLookupsTotal(t, "FlushTest", "Hit"))
	})

	t.Run("Success", func(t *testing.T) {
		gomock.InOrder(
			baseBufferCache.EXPECT().Stat().Return(cache.Statistics{Hits: 3, ReadMisses: 1, WriteMisses: 2}),
			baseBufferCache.EXPECT().Flush())
		require.NoError(t, bufferCache.Flush())
		require.Equal(t, 3.0, getLookupsTotal(t, "FlushTest", "Hit"))
		require.Equal(t, 1.0, getLookupsTotal(t, "FlushTest", "ReadMiss"))
		require.Equal(t, 2.0, getLookupsTotal(t, "FlushTest", "WriteMiss"))
	})
}

func TestMetricsBufferCacheFlushExcludesLookups(t *testing.T) {
	ctrl := gomock.NewController(t)

	baseBufferCache := mock.NewMockBufferCache(ctrl)
	bufferCache := cache.NewMetricsBufferCache(baseBufferCache, clock.SystemClock, "ExclusionTest")

	// Start a lookup that blocks inside the underlying cache.
	getStarted := make(chan struct{})
	releaseGet := make(chan struct{})
	var getCompleted atomic.Bool
	baseBufferCache.EXPECT().Get(block.Sector(7), 0, gomock.Len(4)).DoAndReturn(
		func(sector block.Sector, offset int, p []byte) error {
			close(getStarted)
			<-releaseGet
			getCompleted.Store(true)
			return nil
		})
	getErr := make(chan error, 1)
	go func() {
		var p [4]byte
		getErr <- bufferCache.Get(7, 0, p[:])
	}()
	<-getStarted

	// The statistics may only be read once the lookup has
	// completed, as it would otherwise be lost when the underlying
	// cache resets them.
	var statAfterGet atomic.Bool
	baseBufferCache.EXPECT().Stat().DoAndReturn(func() cache.Statistics {
		statAfterGet.Store(getCompleted.Load())
		return cache.Statistics{ReadMisses: 1}
	})
	baseBufferCache.EXPECT().Flush()
	flushErr := make(chan error, 1)
	go func() {
		flushErr <- bufferCache.Flush()
	}()
	close(releaseGet)

	require.NoError(t, <-getErr)
	require.NoError(t, <-flushErr)
	require.True(t, statAfterGet.Load())
	require.Equal(t, 1.0, getLookupsTotal(t, "ExclusionTest", "ReadMiss"))
}
