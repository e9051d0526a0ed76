package main

import (
	"context"
	"log"
	"math/rand"

	configuration "github.com/buildbarn/bb-sectorfs/pkg/configuration/bb_sectorfs"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/block"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/cache"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/inode"
	"github.com/buildbarn/bb-sectorfs/pkg/filesystem/volume"
	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/program"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// This tool creates a volume from a configuration file and measures
// how effective the buffer cache is. It writes a file in randomly sized
// chunks, remounts the volume and reads the file back twice, reporting
// the hit ratio of both passes. It then overwrites the file in its
// entirety, reporting the number of device reads and writes this
// caused.

func main() {
	fileSize := pflag.Int("file-size", 10240, "Size of the file to create, in bytes")
	readers := pflag.Int("readers", 4, "Number of goroutines that concurrently read the file during the hot pass")
	seed := pflag.Int64("seed", 0, "Seed of the random number generator used to pick chunk sizes")
	pflag.Parse()

	program.RunMain(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		if pflag.NArg() != 1 {
			return status.Error(codes.InvalidArgument, "Usage: bb_sectorfs_bench [flags] bb_sectorfs.jsonnet")
		}
		if *fileSize <= 0 || *readers <= 0 {
			return status.Error(codes.InvalidArgument, "File size and number of readers must be positive")
		}
		volumeConfiguration, err := configuration.GetConfiguration(pflag.Arg(0))
		if err != nil {
			return util.StatusWrapf(err, "Failed to read configuration from %s", pflag.Arg(0))
		}
		// The hot pass can only be served from memory if the
		// file, its inode and its indirection blocks all fit.
		if requiredSlots := (*fileSize+block.BlockSize-1)/block.BlockSize + 4; volumeConfiguration.BufferCache.SlotCount < requiredSlots {
			return status.Errorf(codes.InvalidArgument, "Buffer cache has %d slots, while a file of %d bytes requires at least %d", volumeConfiguration.BufferCache.SlotCount, *fileSize, requiredSlots)
		}
		v, err := volume.NewVolumeFromConfiguration(volumeConfiguration)
		if err != nil {
			return util.StatusWrap(err, "Failed to create volume")
		}

		if err := v.Format(16 * block.BlockSize); err != nil {
			return util.StatusWrap(err, "Failed to format volume")
		}
		b := benchmark{
			volume:                   v,
			bufferCacheConfiguration: &volumeConfiguration.BufferCache,
			fileSize:                 *fileSize,
			random:                   rand.New(rand.NewSource(*seed)),
		}
		if err := b.measureHitRate(*readers); err != nil {
			return util.StatusWrap(err, "Failed to measure hit rate")
		}

		// Flushing resets the statistics of the buffer cache, so
		// only start writing back in the background once the hit
		// ratios have been measured. The volume is closed after
		// the flusher has stopped.
		flusher := cache.NewPeriodicFlusher(
			v.Cache(),
			clock.SystemClock,
			volumeConfiguration.FlushInterval,
			util.DefaultErrorLogger)
		dependenciesGroup.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
			dependenciesGroup.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
				<-ctx.Done()
				return v.Close()
			})
			return flusher.Run(ctx, siblingsGroup, dependenciesGroup)
		})
		if err := b.measureFullBlockWrites(); err != nil {
			return util.StatusWrap(err, "Failed to measure full block writes")
		}
		return nil
	})
}

type benchmark struct {
	volume                   *volume.Volume
	bufferCacheConfiguration *configuration.BufferCacheConfiguration
	fileSize                 int
	random                   *rand.Rand
}

func (b *benchmark) openNewFile(initialLength int64) (*inode.Inode, error) {
	sector, err := b.volume.CreateFile(initialLength, false)
	if err != nil {
		return nil, err
	}
	return b.volume.Inodes().Open(sector)
}

// readSequentially reads a file from start to finish, using chunks of
// random size.
func (b *benchmark) readSequentially(i *inode.Inode, random *rand.Rand) error {
	p := make([]byte, b.fileSize/8+128)
	for off := 0; off < b.fileSize; {
		chunk := min(random.Intn(b.fileSize/8+1)+128, b.fileSize-off)
		if _, err := i.ReadAt(p[:chunk], int64(off)); err != nil {
			return util.StatusWrapf(err, "Failed to read %d bytes at offset %d", chunk, off)
		}
		off += chunk
	}
	return nil
}

func (b *benchmark) measureHitRate(readers int) error {
	i, err := b.openNewFile(0)
	if err != nil {
		return err
	}
	data := make([]byte, b.fileSize)
	b.random.Read(data)
	for off := 0; off < b.fileSize; {
		chunk := min(b.random.Intn(b.fileSize/8+1)+1, b.fileSize-off)
		if _, err := i.WriteAt(data[off:off+chunk], int64(off)); err != nil {
			return util.StatusWrapf(err, "Failed to write %d bytes at offset %d", chunk, off)
		}
		off += chunk
	}
	sector := i.InodeNumber()
	if err := b.volume.Inodes().Close(i); err != nil {
		return err
	}
	if err := b.volume.Remount(b.bufferCacheConfiguration); err != nil {
		return util.StatusWrap(err, "Failed to remount volume")
	}

	if i, err = b.volume.Inodes().Open(sector); err != nil {
		return err
	}
	if err := b.readSequentially(i, b.random); err != nil {
		return err
	}
	if err := b.volume.Inodes().Close(i); err != nil {
		return err
	}
	cold := b.volume.Statistics()
	log.Printf("Cold pass: %d hits, %d read misses, hit ratio %.3f", cold.Cache.Hits, cold.Cache.ReadMisses, cold.Cache.HitRatio())

	// Let multiple readers scan the file concurrently, each
	// through its own handle.
	if i, err = b.volume.Inodes().Open(sector); err != nil {
		return err
	}
	group := errgroup.Group{}
	for reader := 0; reader < readers; reader++ {
		handle := i
		if reader > 0 {
			handle = i.Reopen()
		}
		random := rand.New(rand.NewSource(b.random.Int63()))
		group.Go(func() error {
			readErr := b.readSequentially(handle, random)
			closeErr := b.volume.Inodes().Close(handle)
			if readErr != nil {
				return readErr
			}
			return closeErr
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	hot := b.volume.Statistics()
	hotPass := cache.Statistics{
		Hits:       hot.Cache.Hits - cold.Cache.Hits,
		ReadMisses: hot.Cache.ReadMisses - cold.Cache.ReadMisses,
	}
	log.Printf("Hot pass: %d hits, %d read misses, hit ratio %.3f", hotPass.Hits, hotPass.ReadMisses, hotPass.HitRatio())

	// Delete the file, so that its sectors can be reused.
	if i, err = b.volume.Inodes().Open(sector); err != nil {
		return err
	}
	i.Remove()
	return b.volume.Inodes().Close(i)
}

func (b *benchmark) measureFullBlockWrites() error {
	i, err := b.openNewFile(int64(b.fileSize))
	if err != nil {
		return err
	}
	data := make([]byte, b.fileSize)
	b.random.Read(data)

	before := b.volume.Statistics()
	if _, err := i.WriteAt(data, 0); err != nil {
		return util.StatusWrap(err, "Failed to overwrite file")
	}
	if err := b.volume.Flush(); err != nil {
		return err
	}
	after := b.volume.Statistics()
	log.Printf(
		"Overwriting %d bytes caused %d device reads and %d device writes",
		b.fileSize,
		after.DeviceReads-before.DeviceReads,
		after.DeviceWrites-before.DeviceWrites)
	return b.volume.Inodes().Close(i)
}
