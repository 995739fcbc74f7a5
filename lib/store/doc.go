// Package store provides the object store API served over RPC. It is an abstraction
// layer over a db.ObjectDB that adds unified error reporting with return codes that
// survive serialization.
//
// Key Components:
//
//   - IStore Interface: the object operations (Store, Get, Find, Delete, List) and
//     the device operations (Format, Erase, GetDBInfo) shared by all implementations.
//
//   - Error System: every failure is reported as *Error carrying a RetCode. FromError
//     maps the sentinel errors of package db and the status errors of package emeeprom
//     to codes, and (*Error).Unwrap maps them back. A client that rebuilds an *Error
//     from a code received on the wire can therefore still test it with errors.Is.
//
//   - DBFactory and Device: the factory creates the uninitialized database, Device holds
//     the parameters the store initializes it with.
//
// Implementations:
//
//	- Local Store (lstore): a single node store operating directly on one db.ObjectDB.
//	  Available in the "github.com/ValentinKolb/eeKV/lib/store/lstore" package.
//
//	- Distributed Store (dstore): replicates every mutation through the Dragonboat RAFT
//	  library, so each replica applies the same operations to its own device.
//	  Available in the "github.com/ValentinKolb/eeKV/lib/store/dstore" package.
package store
