package configuration

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	blockdevice_pb "github.com/buildbarn/bb-storage/pkg/proto/configuration/blockdevice"
	eviction_pb "github.com/buildbarn/bb-storage/pkg/proto/configuration/eviction"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/google/go-jsonnet"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

// BufferCacheConfiguration holds the options of the block buffer cache.
type BufferCacheConfiguration struct {
	// Number of blocks that the cache is capable of holding.
	SlotCount int
	// Policy used to pick the slot that is evicted on a miss.
	CacheReplacementPolicy eviction_pb.CacheReplacementPolicy
}

// ApplicationConfiguration is the fully resolved configuration of a
// volume. Exactly one of BlockDevice and InMemorySectorCount is set.
type ApplicationConfiguration struct {
	BlockDevice         *blockdevice_pb.Configuration
	InMemorySectorCount uint32
	ReservedSectors     uint32
	MaximumSectors      int64
	BufferCache         BufferCacheConfiguration
	FlushInterval       time.Duration
}

type bufferCacheMessage struct {
	SlotCount              int    `json:"slotCount"`
	CacheReplacementPolicy string `json:"cacheReplacementPolicy"`
}

type applicationMessage struct {
	BlockDevice         json.RawMessage     `json:"blockDevice"`
	InMemorySectorCount uint32              `json:"inMemorySectorCount"`
	ReservedSectors     uint32              `json:"reservedSectors"`
	MaximumSectors      int64               `json:"maximumSectors"`
	BufferCache         *bufferCacheMessage `json:"bufferCache"`
	FlushInterval       string              `json:"flushInterval"`
}

// GetConfiguration reads the configuration from a Jsonnet file and
// fills in default values. Environment variables are exposed to the
// Jsonnet file as external variables.
func GetConfiguration(path string) (*ApplicationConfiguration, error) {
	evaluated, err := newVM().EvaluateFile(path)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Failed to evaluate configuration file %#v: %s", path, err)
	}
	configuration, err := parseConfiguration([]byte(evaluated))
	if err != nil {
		return nil, util.StatusWrapf(err, "Failed to retrieve configuration from %#v", path)
	}
	return configuration, nil
}

// GetConfigurationFromSnippet is identical to GetConfiguration, except
// that the Jsonnet source is provided directly.
func GetConfigurationFromSnippet(filename, snippet string) (*ApplicationConfiguration, error) {
	evaluated, err := newVM().EvaluateAnonymousSnippet(filename, snippet)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Failed to evaluate configuration snippet: %s", err)
	}
	configuration, err := parseConfiguration([]byte(evaluated))
	if err != nil {
		return nil, util.StatusWrap(err, "Failed to retrieve configuration")
	}
	return configuration, nil
}

func newVM() *jsonnet.VM {
	vm := jsonnet.MakeVM()
	for _, env := range os.Environ() {
		if key, value, ok := strings.Cut(env, "="); ok {
			vm.ExtVar(key, value)
		}
	}
	return vm
}

func parseConfiguration(evaluated []byte) (*ApplicationConfiguration, error) {
	var message applicationMessage
	if err := json.Unmarshal(evaluated, &message); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Failed to decode configuration: %s", err)
	}

	var configuration ApplicationConfiguration
	if len(message.BlockDevice) > 0 && string(message.BlockDevice) != "null" {
		if message.InMemorySectorCount != 0 {
			return nil, status.Error(codes.InvalidArgument, "Only one of blockDevice and inMemorySectorCount may be set")
		}
		var blockDevice blockdevice_pb.Configuration
		if err := protojson.Unmarshal(message.BlockDevice, &blockDevice); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "Failed to decode block device configuration: %s", err)
		}
		configuration.BlockDevice = &blockDevice
	} else if message.InMemorySectorCount == 0 {
		return nil, status.Error(codes.InvalidArgument, "Either blockDevice or inMemorySectorCount must be set")
	}
	configuration.InMemorySectorCount = message.InMemorySectorCount
	configuration.ReservedSectors = message.ReservedSectors
	if message.MaximumSectors < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Maximum sector count %d is negative", message.MaximumSectors)
	}
	configuration.MaximumSectors = message.MaximumSectors

	if bufferCache := message.BufferCache; bufferCache != nil {
		if bufferCache.SlotCount < 0 {
			return nil, status.Errorf(codes.InvalidArgument, "Buffer cache slot count %d is negative", bufferCache.SlotCount)
		}
		configuration.BufferCache.SlotCount = bufferCache.SlotCount
		if name := bufferCache.CacheReplacementPolicy; name != "" {
			policy, ok := eviction_pb.CacheReplacementPolicy_value[name]
			if !ok {
				return nil, status.Errorf(codes.InvalidArgument, "Unknown cache replacement policy %#v", name)
			}
			configuration.BufferCache.CacheReplacementPolicy = eviction_pb.CacheReplacementPolicy(policy)
		} else {
			configuration.BufferCache.CacheReplacementPolicy = eviction_pb.CacheReplacementPolicy_LEAST_RECENTLY_USED
		}
	} else {
		configuration.BufferCache.CacheReplacementPolicy = eviction_pb.CacheReplacementPolicy_LEAST_RECENTLY_USED
	}

	if message.FlushInterval != "" {
		flushInterval, err := time.ParseDuration(message.FlushInterval)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "Invalid flush interval %#v: %s", message.FlushInterval, err)
		}
		if flushInterval < 0 {
			return nil, status.Errorf(codes.InvalidArgument, "Flush interval %s is negative", flushInterval)
		}
		configuration.FlushInterval = flushInterval
	}

	setDefaultValues(&configuration)
	return &configuration, nil
}

func setDefaultValues(configuration *ApplicationConfiguration) {
	if configuration.ReservedSectors == 0 {
		configuration.ReservedSectors = 2
	}
	if configuration.BufferCache.SlotCount == 0 {
		configuration.BufferCache.SlotCount = 64
	}
	if configuration.FlushInterval == 0 {
		configuration.FlushInterval = 30 * time.Second
	}
}
