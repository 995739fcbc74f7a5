package flash

import (
	"fmt"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("flash")

// DefaultBase is the window base MemFlash uses unless WithBase is given.
const DefaultBase uint32 = 0x14000000

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Option configures a MemFlash.
type Option func(*MemFlash)

// WithBase moves the window of the store to base.
func WithBase(base uint32) Option {
	return func(m *MemFlash) {
		m.geo.Base = base
	}
}

// WithBusyPolls makes every polled operation report OpBusy n times before it completes.
func WithBusyPolls(n int) Option {
	return func(m *MemFlash) {
		m.busyPolls = n
	}
}

// --------------------------------------------------------------------------
// MemFlash
// --------------------------------------------------------------------------

// pendingOp is an operation started through the polled interface.
type pendingOp struct {
	addr  uint32
	data  []byte // nil for an erase
	polls int
}

// MemFlash is an in-memory row store. It implements IRowStore and IAsyncRowStore
// and can inject faults. It is safe for concurrent use.
type MemFlash struct {
	mu   sync.Mutex
	geo  Geometry
	data []byte

	programs *xsync.MapOf[uint32, uint64] // row index -> number of programs
	erases   *xsync.MapOf[uint32, uint64] // row index -> number of erases

	pending    *pendingOp
	busyPolls  int
	hang       bool
	skipWrites int
	failWrites int
	failErases int
}

// NewMemFlash creates an erased in-memory store of size bytes with the given row size.
// size is rounded down to whole rows.
func NewMemFlash(size, rowSize uint32, opts ...Option) *MemFlash {
	if rowSize == 0 {
		panic("flash: row size must not be zero")
	}
	size -= size % rowSize

	m := &MemFlash{
		geo:      Geometry{Base: DefaultBase, Size: size, RowSize: rowSize},
		data:     make([]byte, size),
		programs: xsync.NewMapOf[uint32, uint64](),
		erases:   xsync.NewMapOf[uint32, uint64](),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemFlash) Geometry() Geometry {
	return m.geo
}

func (m *MemFlash) Read(addr uint32, buf []byte) error {
	if err := checkRead(m.geo, addr, len(buf)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	off := addr - m.geo.Base
	copy(buf, m.data[off:off+uint32(len(buf))])
	return nil
}

func (m *MemFlash) WriteRow(addr uint32, data []byte) error {
	if err := checkRow(m.geo, addr, len(data)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		return ErrBusy
	}
	return m.program(addr, data)
}

func (m *MemFlash) EraseRow(addr uint32) error {
	if err := checkRow(m.geo, addr, -1); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		return ErrBusy
	}
	return m.erase(addr)
}

func (m *MemFlash) StartWrite(addr uint32, data []byte) error {
	if err := checkRow(m.geo, addr, len(data)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		return ErrBusy
	}
	m.pending = &pendingOp{addr: addr, data: append([]byte(nil), data...)}
	return nil
}

func (m *MemFlash) StartErase(addr uint32) error {
	if err := checkRow(m.geo, addr, -1); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		return ErrBusy
	}
	m.pending = &pendingOp{addr: addr}
	return nil
}

func (m *MemFlash) Poll() OpState {
	m.mu.Lock()
	defer m.mu.Unlock()

	op := m.pending
	if op == nil {
		return OpIdle
	}
	if m.hang || op.polls < m.busyPolls {
		op.polls++
		return OpBusy
	}

	m.pending = nil
	var err error
	if op.data != nil {
		err = m.program(op.addr, op.data)
	} else {
		err = m.erase(op.addr)
	}
	if err != nil {
		return OpFailed
	}
	return OpDone
}

// program replaces the row at addr. Caller holds m.mu.
func (m *MemFlash) program(addr uint32, data []byte) error {
	idx := (addr - m.geo.Base) / m.geo.RowSize
	if m.skipWrites > 0 {
		m.skipWrites--
	} else if m.failWrites > 0 {
		m.failWrites--
		rowFailuresTotal.Inc()
		log.Debugf("injected program failure at row %d", idx)
		return ErrProgramFailed
	}
	off := addr - m.geo.Base
	copy(m.data[off:off+m.geo.RowSize], data)
	m.programs.Compute(idx, func(v uint64, _ bool) (uint64, bool) { return v + 1, false })
	rowProgramsTotal.Inc()
	return nil
}

// erase resets the row at addr. Caller holds m.mu.
func (m *MemFlash) erase(addr uint32) error {
	idx := (addr - m.geo.Base) / m.geo.RowSize
	if m.failErases > 0 {
		m.failErases--
		rowFailuresTotal.Inc()
		log.Debugf("injected erase failure at row %d", idx)
		return ErrProgramFailed
	}
	off := addr - m.geo.Base
	row := m.data[off : off+m.geo.RowSize]
	for i := range row {
		row[i] = ErasedByte
	}
	m.erases.Compute(idx, func(v uint64, _ bool) (uint64, bool) { return v + 1, false })
	rowErasesTotal.Inc()
	return nil
}

// --------------------------------------------------------------------------
// Fault injection and inspection
// --------------------------------------------------------------------------

// FailWrites makes the next n program operations fail.
func (m *MemFlash) FailWrites(n int) {
	m.FailWritesAfter(0, n)
}

// FailWritesAfter lets skip program operations pass and fails the n following ones.
func (m *MemFlash) FailWritesAfter(skip, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipWrites = skip
	m.failWrites = n
}

// FailErases makes the next n erase operations fail.
func (m *MemFlash) FailErases(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErases = n
}

// SetBusyPolls changes how often a polled operation reports OpBusy before completing.
func (m *MemFlash) SetBusyPolls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busyPolls = n
}

// SetHang makes polled operations never complete while on is true.
func (m *MemFlash) SetHang(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hang = on
}

// Abort drops the operation in flight without applying it.
func (m *MemFlash) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
}

// FlipBit inverts one bit of the byte at addr, bypassing the row granularity.
func (m *MemFlash) FlipBit(addr uint32, bit uint8) error {
	if err := checkRead(m.geo, addr, 1); err != nil {
		return err
	}
	if bit > 7 {
		return fmt.Errorf("flash: bit %d out of range", bit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[addr-m.geo.Base] ^= 1 << bit
	return nil
}

// Programs returns how often the row containing addr was programmed.
func (m *MemFlash) Programs(addr uint32) uint64 {
	v, _ := m.programs.Load((addr - m.geo.Base) / m.geo.RowSize)
	return v
}

// Erases returns how often the row containing addr was erased.
func (m *MemFlash) Erases(addr uint32) uint64 {
	v, _ := m.erases.Load((addr - m.geo.Base) / m.geo.RowSize)
	return v
}

// Image returns a copy of the whole window.
func (m *MemFlash) Image() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}
