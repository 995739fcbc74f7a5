package common

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/eeKV/lib/emeeprom"
	"github.com/ValentinKolb/eeKV/lib/flash"
	"github.com/lni/dragonboat/v4/config"
)

// --------------------------------------------------------------------------
// helper functions for to interface with Dragonboat (for the server util)
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the ServerConfig to Dragonboat Config
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTTFactor,
		HeartbeatRTT:       heartbeatRTTFactor,
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
		MaxInMemLogSize:    0,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         filepath.Join(c.DataDir, "raft"),
		NodeHostDir:    filepath.Join(c.DataDir, "raft"),
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerShardType string

const (
	// ShardTypeLocalIStore serves an object store on a device owned by this node
	ShardTypeLocalIStore ServerShardType = "lstore"
	// ShardTypeRemoteIStore serves an object store replicated with raft
	ShardTypeRemoteIStore ServerShardType = "dstore"
	// ShardTypeEEPROM serves the raw emulated EEPROM of a device owned by this node
	ShardTypeEEPROM ServerShardType = "eeprom"
)

// ParseShardType validates a shard type given on the command line
func ParseShardType(s string) (ServerShardType, error) {
	switch t := ServerShardType(strings.ToLower(strings.TrimSpace(s))); t {
	case ShardTypeLocalIStore, ShardTypeRemoteIStore, ShardTypeEEPROM:
		return t, nil
	default:
		return "", fmt.Errorf("invalid shard type %q, must be one of %s, %s, %s",
			s, ShardTypeLocalIStore, ShardTypeRemoteIStore, ShardTypeEEPROM)
	}
}

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type selects the backend of the shard
	Type ServerShardType
}

// ServerTransportConfig holds the listener settings of the server transport
type ServerTransportConfig struct {
	Endpoint        string
	WorkersPerConn  int
	BufferSize      int
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	WriteBufferSize int
	ReadBufferSize  int
}

// DeviceConfig describes the flash device and the emulated EEPROM placed on it.
// Every local shard (lstore and eeprom) gets its own device with these parameters.
type DeviceConfig struct {
	EepromSize         uint32 // logical bytes of the emulated EEPROM
	RowSize            uint32 // flash row size
	WearLevelingFactor uint32
	Redundant          bool
	SimpleMode         bool
	BlockingWrite      bool
	InMemory           bool // keep the flash in memory instead of an image file in the data dir
	MaxWriteMillis     int  // bound of one polled row operation
}

// Emulation returns the engine configuration of the device. The engine starts at
// the first row of the flash window.
func (d DeviceConfig) Emulation() emeeprom.Config {
	return emeeprom.Config{
		EepromSize:         d.EepromSize,
		SimpleMode:         d.SimpleMode,
		WearLevelingFactor: d.WearLevelingFactor,
		RedundantCopy:      d.Redundant,
		BlockingWrite:      d.BlockingWrite,
		StartAddr:          flash.DefaultBase,
		MaxWriteDuration:   millis(d.MaxWriteMillis),
	}
}

func millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// Geometry returns the flash window the device needs to hold the emulated EEPROM
func (d DeviceConfig) Geometry() (flash.Geometry, error) {
	size := emeeprom.PhysicalSize(d.Emulation(), d.RowSize)
	if size == 0 {
		return flash.Geometry{}, fmt.Errorf("device with eeprom size %d and row size %d occupies no flash", d.EepromSize, d.RowSize)
	}
	if size > uint64(math.MaxUint32-flash.DefaultBase) {
		return flash.Geometry{}, fmt.Errorf("device needs %d bytes of flash, more than the address space allows", size)
	}
	return flash.Geometry{Base: flash.DefaultBase, Size: uint32(size), RowSize: d.RowSize}, nil
}

// ImagePath returns the location of the flash image of a shard
func (c *ServerConfig) ImagePath(shardId uint64) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("shard-%d.img", shardId))
}

// ServerConfig holds all configuration parameters for the RAFT cluster.
type ServerConfig struct {
	// shards served by this node
	Shards []ServerShard

	// Dragenboat parameters
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string
	ReplicaID          uint64
	ClusterMembers     map[uint64]string

	// remote store parameters
	TimeoutSecond int64

	// Transport settings
	Transport ServerTransportConfig

	// Flash device settings
	Device DeviceConfig

	// Logging configuration
	LogLevel string
}

// HasRemoteShard checks if the configuration contains any remote shards
func (c *ServerConfig) HasRemoteShard() bool {
	for _, shard := range c.Shards {
		if shard.Type == ShardTypeRemoteIStore {
			return true
		}
	}
	return false
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.WorkersPerConn))
	addField("Buffer Size", strconv.Itoa(c.Transport.BufferSize))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Shards
	addSection("Shards")
	for _, shard := range c.Shards {
		addField(strconv.FormatUint(shard.ShardID, 10), string(shard.Type))
	}

	// Device
	addSection("Device")
	addField("EEPROM Size", fmt.Sprintf("%d bytes", c.Device.EepromSize))
	addField("Row Size", fmt.Sprintf("%d bytes", c.Device.RowSize))
	if c.Device.SimpleMode {
		addField("Mode", "simple")
	} else {
		addField("Mode", "extended")
	}
	addField("Wear Leveling Factor", strconv.FormatUint(uint64(c.Device.WearLevelingFactor), 10))
	addField("Redundant Copy", strconv.FormatBool(c.Device.Redundant))
	addField("Blocking Write", strconv.FormatBool(c.Device.BlockingWrite))
	if c.Device.InMemory {
		addField("Storage", "memory")
	} else {
		addField("Storage", c.DataDir)
	}
	if geo, err := c.Device.Geometry(); err == nil {
		addField("Flash", geo.String())
	}

	if c.HasRemoteShard() {
		// Node Identity
		addSection("Node Identity")
		addField("RAFT Address", c.ClusterMembers[c.ReplicaID])
		addField("Node ID", strconv.FormatUint(c.ReplicaID, 10))

		// RAFT parameters
		addSection("RAFT Parameters")
		addField("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.RTTMillisecond))
		addField("Election RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*electionRTTFactor))
		addField("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*heartbeatRTTFactor))
		addField("Check Quorum", fmt.Sprintf("%t", true))
		addField("Snapshot Entries", fmt.Sprintf("%d", c.SnapshotEntries))
		addField("Compaction Overhead", fmt.Sprintf("%d", c.CompactionOverhead))

		// Cluster configuration
		addSection("Cluster")
		sb.WriteString("  Initial Members:\n")

		// Sort keys for consistent output
		var keys []uint64
		for k := range c.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("    Node %d: %s\n", k, c.ClusterMembers[k]))
		}
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the connection settings of the client transport
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	TCPNoDelay             bool
	TCPKeepAliveSec        int
	WriteBufferSize        int
	ReadBufferSize         int
}

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
