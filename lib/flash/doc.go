// Package flash defines the row-granular storage contract that the emulated EEPROM
// engine is built on, together with two implementations of it.
//
// A row store models NOR flash: bytes can be read at any address, but they can only
// be changed one whole row at a time. Programming a row replaces its full contents,
// erasing a row resets every byte to ErasedByte.
//
// Key Components:
//
//   - IRowStore: the blocking contract (Read, WriteRow, EraseRow). Every mutating call
//     returns once the physical operation has finished.
//
//   - IAsyncRowStore: the polled contract. StartWrite and StartErase only launch the
//     operation; completion is observed with Poll. WaitComplete turns this into a
//     bounded wait with a deadline taken from a context and reports a Completion
//     (Done or TimedOut).
//
//   - MemFlash: an in-memory row store implementing both contracts. It supports fault
//     injection (failing programs or erases, flipped bits, busy or hanging controllers)
//     and keeps per-row wear counters.
//
//   - FileFlash: a persistent blocking row store backed by an image file on an afero.Fs,
//     used by the server to keep device contents across restarts.
//
// Addresses passed to the stores are absolute: a store covers the window
// [Geometry.Base, Geometry.Base+Geometry.Size) and rejects anything outside of it.
package flash
