// Package client implements RPC clients for eeKV servers.
// It provides a store.IStore for object shards and a byte level client for eeprom shards,
// both forwarding every call to a remote shard through the transport and serializer layers.
//
// Key Components:
//
//   - NewRPCStore: creates a client implementing store.IStore. Errors returned by the
//     server keep their return code, so errors.Is(err, db.ErrNoSuchObject) works on
//     the client side as well.
//
//   - NewRPCEEPROM: creates a client for the raw emulated EEPROM of an eeprom shard,
//     including the row diagnostics of the engine.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:8080"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	s, _ := client.NewRPCStore(1, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	_ = s.Store(0x10, []byte("calibration"))
//	value, found, _ := s.Get(0x10)
//
//	ee, _ := client.NewRPCEEPROM(2, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	_ = ee.Write(128, []byte{1, 2, 3})
//	data, err := ee.Read(128, 3)
//
// Only the binary serializer distinguishes an empty value from a missing one. The store
// client reports empty objects as a non nil empty slice for every serializer.
//
// Thread Safety:
//
//	All clients can be used concurrently from multiple goroutines. Each client owns
//	its transport, Close releases it.
package client
