// Package eekv implements db.ObjectDB as an append and compact log on a byte
// addressable store, normally an emulated EEPROM from package emeeprom.
//
// Layout of the store:
//
//	+-----------+-----+--------+---------+-----+--------+---------+------+
//	| signature | key | length | payload | key | length | payload | 0xFF |
//	|  4 bytes  |  1  |   4    |  length |  1  |   4    |  length |      |
//	+-----------+-----+--------+---------+-----+--------+---------+------+
//
// Lengths are little endian. The sentinel key 0xFF follows the last entry whenever
// there is room for it; a log filling the store exactly ends at the store boundary.
//
// Operations:
//
//   - Find walks the log from the first entry until the key or the sentinel is found.
//   - Store rewrites the payload in place if the size is unchanged. A size change
//     deletes the entry and appends it again (one retry only). New objects are appended
//     at the sentinel together with a fresh sentinel.
//   - Delete moves every entry behind the deleted one to the left by the size of the
//     deleted entry and writes the sentinel behind the last moved entry.
//
// Space for a store is verified before the first byte is written, so a store failing
// with db.ErrNoSpace leaves the log untouched.
//
// Concurrency: all public methods are serialized by a reentrant lock from package
// lockmgr. Nested operations (Store deleting an outdated entry) re-enter the lock
// with the owner token of the public call.
//
// A RedundantCopyUsed report of the byte store is logged and counted but otherwise
// treated as success, since the data read is correct.
package eekv
