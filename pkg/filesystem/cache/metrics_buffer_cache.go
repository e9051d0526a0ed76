package cache

import (
	"sync"
	"time"

	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/status"
)

var (
	bufferCachePrometheusMetrics sync.Once

	bufferCacheOperationsDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "sectorfs",
			Name:      "buffer_cache_operations_duration_seconds",
			Help:      "Amount of time spent per operation on the buffer cache, in seconds.",
			Buckets:   util.DecimalExponentialBuckets(-8, 8, 2),
		},
		[]string{"name", "operation", "grpc_code"})
	bufferCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "sectorfs",
			Name:      "buffer_cache_lookups_total",
			Help:      "Number of buffer cache lookups, by result. Updated every time the cache is flushed.",
		},
		[]string{"name", "result"})
)

type metricsBufferCache struct {
	base  BufferCache
	clock clock.Clock

	// Held exclusively while flushing, so that no lookups occur
	// between reading and resetting the statistics.
	flushLock sync.RWMutex

	get   prometheus.ObserverVec
	put   prometheus.ObserverVec
	flush prometheus.ObserverVec

	hits        prometheus.Counter
	readMisses  prometheus.Counter
	writeMisses prometheus.Counter
}

// NewMetricsBufferCache creates a decorator for BufferCache that
// exposes Prometheus metrics on the latency of operations and the
// number of hits and misses.
//
// As the statistics of a buffer cache are reset upon flushing, the
// lookup counters are only advanced when Flush() is called. Calls to
// Get() and Put() block while a flush is in progress.
func NewMetricsBufferCache(base BufferCache, clock clock.Clock, name string) BufferCache {
	bufferCachePrometheusMetrics.Do(func() {
		prometheus.MustRegister(bufferCacheOperationsDurationSeconds)
		prometheus.MustRegister(bufferCacheLookups)
	})

	return &metricsBufferCache{
		base:  base,
		clock: clock,

		get:   bufferCacheOperationsDurationSeconds.MustCurryWith(map[string]string{"name": name, "operation": "Get"}),
		put:   bufferCacheOperationsDurationSeconds.MustCurryWith(map[string]string{"name": name, "operation": "Put"}),
		flush: bufferCacheOperationsDurationSeconds.MustCurryWith(map[string]string{"name": name, "operation": "Flush"}),

		hits:        bufferCacheLookups.WithLabelValues(name, "Hit"),
		readMisses:  bufferCacheLookups.WithLabelValues(name, "ReadMiss"),
		writeMisses: bufferCacheLookups.WithLabelValues(name, "WriteMiss"),
	}
}

func (bc *metricsBufferCache) observe(vec prometheus.ObserverVec, timeStart time.Time, err error) {
	vec.WithLabelValues(status.Code(err).String()).Observe(bc.clock.Now().Sub(timeStart).Seconds())
}

func (bc *metricsBufferCache) Get(sector block.Sector, offset int, p []byte) error {
	timeStart := bc.clock.Now()
	bc.flushLock.RLock()
	err := bc.base.Get(sector, offset, p)
	bc.flushLock.RUnlock()
	bc.observe(bc.get, timeStart, err)
	return err
}

func (bc *metricsBufferCache) Put(sector block.Sector, offset int, p []byte) error {
	timeStart := bc.clock.Now()
	bc.flushLock.RLock()
	err := bc.base.Put(sector, offset, p)
	bc.flushLock.RUnlock()
	bc.observe(bc.put, timeStart, err)
	return err
}

func (bc *metricsBufferCache) Flush() error {
	timeStart := bc.clock.Now()
	bc.flushLock.Lock()
	statistics := bc.base.Stat()
	err := bc.base.Flush()
	bc.flushLock.Unlock()
	bc.observe(bc.flush, timeStart, err)
	if err == nil {
		bc.hits.Add(float64(statistics.Hits))
		bc.readMisses.Add(float64(statistics.ReadMisses))
		bc.writeMisses.Add(float64(statistics.WriteMisses))
	}
	return err
}

func (bc *metricsBufferCache) Stat() Statistics {
	return bc.base.Stat()
}
