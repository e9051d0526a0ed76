package allocator

import (
	"sync"

	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/status"
)

var (
	sectorAllocatorPrometheusMetrics sync.Once

	sectorAllocatorAllocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "sectorfs",
			Name:      "sector_allocator_allocations_total",
			Help:      "Number of calls to allocate sectors, by gRPC status code of the result.",
		},
		[]string{"name", "grpc_code"})
	sectorAllocatorSectorsAllocated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "sectorfs",
			Name:      "sector_allocator_sectors_allocated_total",
			Help:      "Number of sectors that were allocated.",
		},
		[]string{"name"})
	sectorAllocatorSectorsReleased = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "sectorfs",
			Name:      "sector_allocator_sectors_released_total",
			Help:      "Number of sectors that were released.",
		},
		[]string{"name"})
)

type metricsSectorAllocator struct {
	base SectorAllocator

	allocations      *prometheus.CounterVec
	sectorsAllocated prometheus.Counter
	sectorsReleased  prometheus.Counter
}

// NewMetricsSectorAllocator creates a decorator for SectorAllocator
// that exposes Prometheus metrics on the number of sectors allocated
// and released, and on how often allocation fails.
func NewMetricsSectorAllocator(base SectorAllocator, name string) SectorAllocator {
	sectorAllocatorPrometheusMetrics.Do(func() {
		prometheus.MustRegister(sectorAllocatorAllocations)
		prometheus.MustRegister(sectorAllocatorSectorsAllocated)
		prometheus.MustRegister(sectorAllocatorSectorsReleased)
	})

	return &metricsSectorAllocator{
		base: base,

		allocations:      sectorAllocatorAllocations.MustCurryWith(map[string]string{"name": name}),
		sectorsAllocated: sectorAllocatorSectorsAllocated.WithLabelValues(name),
		sectorsReleased:  sectorAllocatorSectorsReleased.WithLabelValues(name),
	}
}

func (sa *metricsSectorAllocator) Allocate(count int) (block.Sector, error) {
	first, err := sa.base.Allocate(count)
	sa.allocations.WithLabelValues(status.Code(err).String()).Inc()
	if err == nil {
		sa.sectorsAllocated.Add(float64(count))
	}
	return first, err
}

func (sa *metricsSectorAllocator) Release(first block.Sector, count int) {
	sa.base.Release(first, count)
	sa.sectorsReleased.Add(float64(count))
}
