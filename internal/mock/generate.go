// Package mock contains gomock mocks of the interfaces used throughout
// this repository. The mocks are generated by mockgen.
package mock

//go:generate mockgen -package mock -destination filesystem_block.go github.com/buildbarn/bb-sectorfs/pkg/filesystem/block Device
//go:generate mockgen -package mock -destination filesystem_allocator.go github.com/buildbarn/bb-sectorfs/pkg/filesystem/allocator SectorAllocator
//go:generate mockgen -package mock -destination filesystem_cache.go github.com/buildbarn/bb-sectorfs/pkg/filesystem/cache BufferCache
//go:generate mockgen -package mock -destination storage_blockdevice.go github.com/buildbarn/bb-storage/pkg/blockdevice BlockDevice
//go:generate mockgen -package mock -destination storage_util.go github.com/buildbarn/bb-storage/pkg/util ErrorLogger
