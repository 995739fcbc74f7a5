// Package internal provides the communication protocol structures and serialization
// logic for the dstore package. It defines the format of the entries in the RAFT log.
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// The package consists of two main components:
//
//   - Command System: write operations (Store, Delete, Format, Erase) that modify the
//     device. Commands are serialized and proposed to the RAFT cluster, then executed
//     by the state machine of every replica.
//
//   - Query System: read operations (Get, Find, List, GetDBInfo). Queries are executed
//     locally on the state machine and therefore do not require serialization.
//
// Command Format:
//
//	- 1 byte: Command type
//	- 1 byte: Key (ignored by Format and Erase)
//	- N bytes: Value (only present for Store)
//
// Keys of the object store are single bytes and values are small, so a command is
// rarely longer than a few dozen bytes.
package internal
