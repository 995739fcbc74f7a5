// Package db defines the interface of the object databases that live on emulated EEPROM.
//
// An object database stores small records (bonding keys, credential blobs, device
// settings) under single byte keys. The records are kept back to back in a flat log
// directly on a byte addressable store:
//
//	[signature:4][key:1][length:4][payload] ... [key:1][length:4][payload][0xFF]
//
// The key value 0xFF (SentinelKey) is reserved and marks the end of the log.
//
// Key Components:
//
//   - ObjectDB Interface: the contract all implementations satisfy. It covers the
//     lifecycle of the store (Initialize, Format, Erase), the object operations
//     (Find, Store, Read, Get, Delete, List) and persistence (Save, Load).
//
//   - Feature Flags: implementations advertise supported operations through
//     SupportsFeature, so clients can discover them at runtime.
//
//   - Errors: sentinel errors (ErrNoSuchObject, ErrNoSpace, ...) shared by all
//     implementations, to be checked with errors.Is. ErrPartialRead is a warning,
//     the data returned alongside it is valid.
//
// Lifecycle:
//
//	Uninitialized --Initialize--> Formatted (an unformatted store is formatted automatically)
//	Formatted     --Erase------>  Unformatted
//	Unformatted   --Format or Initialize--> Formatted
//
// Object operations on an uninitialized store fail with ErrNotInitialized, on an
// unformatted store with ErrStoreUnformatted.
package db
