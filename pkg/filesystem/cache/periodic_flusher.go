package cache

import (
	"context"
	"time"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/program"
	"github.com/buildbarn/bb-storage/pkg/util"
)

// PeriodicFlusher writes back the dirty blocks of a BufferCache at a
// fixed interval, limiting the amount of data lost when the process
// terminates without flushing.
type PeriodicFlusher struct {
	bufferCache BufferCache
	clock       clock.Clock
	interval    time.Duration
	errorLogger util.ErrorLogger
}

// NewPeriodicFlusher creates a PeriodicFlusher. Errors returned by
// Flush() are passed to the error logger, as there is no caller to
// return them to.
func NewPeriodicFlusher(bufferCache BufferCache, clock clock.Clock, interval time.Duration, errorLogger util.ErrorLogger) *PeriodicFlusher {
	return &PeriodicFlusher{
		bufferCache: bufferCache,
		clock:       clock,
		interval:    interval,
		errorLogger: errorLogger,
	}
}

// Run the flusher until the context is cancelled. Its signature
// permits it to be launched through program.Group.Go().
func (pf *PeriodicFlusher) Run(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
	for {
		timer, t := pf.clock.NewTimer(pf.interval)
		select {
		case <-t:
			if err := pf.bufferCache.Flush(); err != nil {
				pf.errorLogger.Log(util.StatusWrap(err, "Failed to flush buffer cache"))
			}
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}
