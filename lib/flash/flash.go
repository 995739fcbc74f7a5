package flash

import (
	"errors"
	"fmt"
)

// ErasedByte is the value every byte of a row holds after an erase.
const ErasedByte byte = 0x00

// --------------------------------------------------------------------------
// Geometry
// --------------------------------------------------------------------------

// Geometry describes the window of flash a row store exposes.
type Geometry struct {
	Base    uint32 // first addressable byte
	Size    uint32 // number of addressable bytes
	RowSize uint32 // program and erase granule
}

// End returns the first address behind the window.
func (g Geometry) End() uint64 {
	return uint64(g.Base) + uint64(g.Size)
}

// Contains reports whether [addr, addr+n) lies inside the window.
func (g Geometry) Contains(addr uint32, n uint32) bool {
	return addr >= g.Base && uint64(addr)+uint64(n) <= g.End()
}

// RowAligned reports whether addr is the first byte of a row.
func (g Geometry) RowAligned(addr uint32) bool {
	return g.RowSize != 0 && (addr-g.Base)%g.RowSize == 0
}

// Rows returns the number of whole rows in the window.
func (g Geometry) Rows() uint32 {
	if g.RowSize == 0 {
		return 0
	}
	return g.Size / g.RowSize
}

func (g Geometry) String() string {
	return fmt.Sprintf("base=0x%08x size=%d row=%d", g.Base, g.Size, g.RowSize)
}

// --------------------------------------------------------------------------
// Interfaces
// --------------------------------------------------------------------------

// IRowStore is a blocking row store. WriteRow and EraseRow return after the
// physical operation completed.
type IRowStore interface {
	// Geometry returns the addressable window of the store.
	Geometry() Geometry
	// Read copies len(buf) bytes starting at addr into buf.
	Read(addr uint32, buf []byte) error
	// WriteRow programs exactly one row. addr must be row aligned and len(data) must equal the row size.
	WriteRow(addr uint32, data []byte) error
	// EraseRow resets one row to ErasedByte.
	EraseRow(addr uint32) error
}

// OpState is the state of a polled operation as reported by Poll.
type OpState uint8

const (
	OpIdle   OpState = iota // no operation was started
	OpBusy                  // the operation is still running
	OpDone                  // the operation finished successfully
	OpFailed                // the operation finished with an error
)

func (s OpState) String() string {
	switch s {
	case OpIdle:
		return "idle"
	case OpBusy:
		return "busy"
	case OpDone:
		return "done"
	case OpFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IAsyncRowStore is a row store whose program and erase operations are started
// and then polled for completion. Only one operation can be in flight at a time.
type IAsyncRowStore interface {
	IRowStore
	// StartWrite launches the programming of one row. It returns ErrBusy if another operation is in flight.
	StartWrite(addr uint32, data []byte) error
	// StartErase launches the erase of one row. It returns ErrBusy if another operation is in flight.
	StartErase(addr uint32) error
	// Poll reports the state of the operation in flight. Once OpDone or OpFailed was
	// reported the store is idle again.
	Poll() OpState
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrBusy is returned when an operation is started while another one is in flight.
	ErrBusy = errors.New("flash: operation in progress")
	// ErrProgramFailed is returned when the controller reports a failed program or erase.
	ErrProgramFailed = errors.New("flash: program or erase failed")
)

// RangeError is returned for accesses outside of the store window.
type RangeError struct {
	Addr   uint32
	Length uint32
	Geo    Geometry
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("flash: access [0x%08x, +%d) outside of window (%s)", e.Addr, e.Length, e.Geo)
}

// RowError is returned when a row operation is misaligned or carries the wrong amount of data.
type RowError struct {
	Addr    uint32
	Length  int
	RowSize uint32
}

func (e *RowError) Error() string {
	return fmt.Sprintf("flash: invalid row access at 0x%08x with %d bytes (row size %d)", e.Addr, e.Length, e.RowSize)
}

// checkRead validates a read access against the geometry.
func checkRead(g Geometry, addr uint32, n int) error {
	if !g.Contains(addr, uint32(n)) || uint64(n) > uint64(g.Size) {
		return &RangeError{Addr: addr, Length: uint32(n), Geo: g}
	}
	return nil
}

// checkRow validates a row operation against the geometry. n < 0 skips the length check (erase).
func checkRow(g Geometry, addr uint32, n int) error {
	if !g.Contains(addr, g.RowSize) {
		return &RangeError{Addr: addr, Length: g.RowSize, Geo: g}
	}
	if !g.RowAligned(addr) || (n >= 0 && uint32(n) != g.RowSize) {
		return &RowError{Addr: addr, Length: n, RowSize: g.RowSize}
	}
	return nil
}
