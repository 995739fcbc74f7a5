// Package rpc provides the remote procedure call layer of eeKV. It connects
// clients to the object stores and emulated EEPROMs a server owns.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: RPC clients for object shards (store.IStore) and eeprom shards.
//
//   - server: The RPC server and the adapters binding shards to their backends.
package rpc
