// Package emeeprom emulates a byte addressable EEPROM on top of a row store.
//
// Flash can only be changed row by row, so the engine turns every logical write into
// the programming of fresh rows, organized as a circular log. In extended mode every
// row carries a header and two data areas:
//
//	 0        4        8        12       16                  rowSize/2              rowSize
//	+--------+--------+--------+--------+-------------------+----------------------+
//	| crc8   | seq    | addr   | len    | payload           | historic data        |
//	+--------+--------+--------+--------+-------------------+----------------------+
//
// The payload holds the bytes written by the write that produced the row. The historic
// area holds the full contents of one logical row of bytesPerRow = rowSize/2 bytes:
// physical row P always carries logical row P mod numberOfRows. When a row is written
// the engine carries the historic data forward from the row previously holding that
// logical row and folds in every recent payload that overlaps it, so the newest
// numberOfRows rows always describe the whole logical address space.
//
// With a wear leveling factor F the log spans F*numberOfRows rows, spreading program
// cycles over F blocks. With a redundant copy every row is mirrored into a second area
// right behind the main one, and a row failing its checksum is read from the mirror.
//
// The current row is the valid row with the highest sequence number. The engine caches
// it but validates the cache before each operation and falls back to a full recovery
// scan when the cached row does not check out.
//
// Simple mode maps logical addresses 1:1 onto flash and does read-modify-write of
// whole rows, without headers, checksums, wear leveling or redundancy.
//
// Results are reported through *Error values carrying a Status. RedundantCopyUsed and
// BadChecksum are reported after the buffer has been filled: with RedundantCopyUsed
// the data is correct, with BadChecksum the unrecoverable parts read as zero.
//
// An Engine does no locking. Callers sharing an Engine between goroutines must
// serialize access.
package emeeprom
