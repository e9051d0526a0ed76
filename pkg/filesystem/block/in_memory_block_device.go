package block

import (
	"io"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/blockdevice"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type inMemoryBlockDevice struct {
	lock sync.RWMutex
	data []byte
}

// NewInMemoryBlockDevice creates a block device that is backed by a
// byte slice. It can be used in combination with
// NewBlockDeviceBackedDevice() to run the file system without any
// persistent storage, which is useful for testing.
func NewInMemoryBlockDevice(sizeBytes int) blockdevice.BlockDevice {
	return &inMemoryBlockDevice{
		data: make([]byte, sizeBytes),
	}
}

func (bd *inMemoryBlockDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative read offset: %d", off)
	}

	bd.lock.RLock()
	defer bd.lock.RUnlock()

	if off >= int64(len(bd.data)) {
		return 0, io.EOF
	}
	n := copy(p, bd.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (bd *inMemoryBlockDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "Negative write offset: %d", off)
	}

	bd.lock.Lock()
	defer bd.lock.Unlock()

	if off+int64(len(p)) > int64(len(bd.data)) {
		return 0, status.Errorf(codes.OutOfRange, "Write of %d bytes at offset %d lies beyond the end of the device, which is %d bytes in size", len(p), off, len(bd.data))
	}
	return copy(bd.data[off:], p), nil
}

func (bd *inMemoryBlockDevice) Sync() error {
	return nil
}

func (bd *inMemoryBlockDevice) Close() error {
	bd.lock.Lock()
	bd.data = nil
	bd.lock.Unlock()
	return nil
}
