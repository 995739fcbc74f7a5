// Package common provides the data structures shared by the RPC server, the RPC
// client and the CLI.
//
// Key Components:
//
//   - Message: the single request/response type of the RPC protocol. Object store
//     operations use Key and Value, raw EEPROM operations use Addr, Size and Value.
//     Failures travel as a store.RetCode in Code plus a message in Err, and
//     Message.Error rebuilds a *store.Error from them on the client.
//
//   - MessageType: enumeration of all operations, grouped into object store
//     operations (MsgTObj...) and raw emulated EEPROM operations (MsgTEEP...).
//
//   - ServerConfig: shards, transport, flash device and RAFT settings of a node.
//     DeviceConfig derives the engine configuration and the flash window every
//     local shard allocates.
//
//   - ClientConfig: timeout and transport settings of a client.
//
//   - Logger: a dragonboat logger.Factory with a uniform line format, installed by
//     InitLoggers for the RAFT internals and all eeKV packages.
package common
