// Package server implements the eeKV RPC server. A server owns a set of shards, each
// addressed by its id and bound to one backend through an adapter:
//
//   - ShardTypeLocalIStore ("lstore"): an object store on a flash device owned by
//     this node. The device is an image file in the data dir, or memory when
//     DeviceConfig.InMemory is set.
//
//   - ShardTypeRemoteIStore ("dstore"): an object store replicated with Raft. Every
//     replica keeps its objects on an in-memory device and recovers them from the
//     Raft log and snapshots. The RAFT settings of the config (RTTMillisecond,
//     SnapshotEntries, CompactionOverhead, DataDir, ReplicaID, ClusterMembers)
//     must be set when this type is used.
//
//   - ShardTypeEEPROM ("eeprom"): the raw emulated EEPROM of a device owned by this
//     node, for byte level reads and writes and row diagnostics. Requests are
//     serialized with a lockmgr lock since the engine is not safe for concurrent use.
//
// All local shards share the device parameters of ServerConfig.Device but each gets
// its own flash.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 1, Type: common.ShardTypeLocalIStore},
//	    {ShardID: 2, Type: common.ShardTypeEEPROM},
//	  },
//	  DataDir:       "/var/lib/eekv",
//	  TimeoutSecond: 5,
//	  Transport:     common.ServerTransportConfig{Endpoint: "/tmp/eekv.sock"},
//	  Device: common.DeviceConfig{
//	    EepromSize: 4096, RowSize: 512, WearLevelingFactor: 2, Redundant: true, BlockingWrite: true,
//	  },
//	  LogLevel: "info",
//	}
//
//	s := server.NewRPCServer(config, unix.NewUnixServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Requests are handled concurrently. Serve must be called only once, Close may be
//	called from any goroutine and makes Serve return after the devices are released.
package server
