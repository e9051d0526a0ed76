package block

import (
	"sync"
	"time"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/status"
)

var (
	devicePrometheusMetrics sync.Once

	deviceOperationsDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "sectorfs",
			Name:      "device_operations_duration_seconds",
			Help:      "Amount of time spent per operation on block devices, in seconds.",
			Buckets:   util.DecimalExponentialBuckets(-6, 6, 2),
		},
		[]string{"name", "operation", "grpc_code"})
)

type metricsDevice struct {
	Device

	clock clock.Clock

	readSector  prometheus.ObserverVec
	writeSector prometheus.ObserverVec
	sync        prometheus.ObserverVec
}

// NewMetricsDevice creates a decorator for Device that exposes
// Prometheus metrics on the number and latency of sector reads and
// writes.
func NewMetricsDevice(base Device, clock clock.Clock, name string) Device {
	devicePrometheusMetrics.Do(func() {
		prometheus.MustRegister(deviceOperationsDurationSeconds)
	})

	return &metricsDevice{
		Device: base,
		clock:  clock,

		readSector:  deviceOperationsDurationSeconds.MustCurryWith(map[string]string{"name": name, "operation": "ReadSector"}),
		writeSector: deviceOperationsDurationSeconds.MustCurryWith(map[string]string{"name": name, "operation": "WriteSector"}),
		sync:        deviceOperationsDurationSeconds.MustCurryWith(map[string]string{"name": name, "operation": "Sync"}),
	}
}

func (d *metricsDevice) observe(vec prometheus.ObserverVec, timeStart time.Time, err error) {
	vec.WithLabelValues(status.Code(err).String()).Observe(d.clock.Now().Sub(timeStart).Seconds())
}

func (d *metricsDevice) ReadSector(sector Sector, block *Block) error {
	timeStart := d.clock.Now()
	err := d.Device.ReadSector(sector, block)
	d.observe(d.readSector, timeStart, err)
	return err
}

func (d *metricsDevice) WriteSector(sector Sector, block *Block) error {
	timeStart := d.clock.Now()
	err := d.Device.WriteSector(sector, block)
	d.observe(d.writeSector, timeStart, err)
	return err
}

func (d *metricsDevice) Sync() error {
	timeStart := d.clock.Now()
	err := d.Device.Sync()
	d.observe(d.sync, timeStart, err)
	return err
}
