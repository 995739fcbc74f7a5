// Package lstore implements a local, single-node object store based on the
// store.IStore interface. It is a thin wrapper around one db.ObjectDB that
// converts its errors into *store.Error values.
//
// Whether the data survives a restart depends on the row store below the
// database: an in-memory flash is lost, a file backed flash image is reopened
// and recovered by the emulated EEPROM on the next start.
//
// Feature detection: before executing an operation, the store checks if the
// database supports it. Unsupported operations return RetCUnsupportedOperation.
//
// Missing objects are not an error for Get and Find, which report them with
// loaded == false. Delete of a missing object returns RetCNoSuchObject.
//
// Usage Example:
//
//	factory := func() db.ObjectDB {
//		return eekv.NewEEKVDB(eekv.MemoryFactory(1024, 128), nil)
//	}
//	s, err := lstore.NewLocalStore(factory, store.Device{WearLevelingFactor: 2})
//
//	err = s.Store(0x10, bondingKey)
//	value, found, err := s.Get(0x10)
//
// For replicated devices see the dstore package, which provides a RAFT-based
// implementation of the same interface.
package lstore
