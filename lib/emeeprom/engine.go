package emeeprom

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/eeKV/lib/flash"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("emeeprom")

// Engine is an emulated EEPROM on a row store. See the package documentation.
type Engine struct {
	cfg   Config
	store flash.IRowStore
	async flash.IAsyncRowStore // nil in blocking mode

	rowSize uint32
	rows    uint32 // logical rows (numberOfRows)
	bir     uint32 // logical bytes per row
	chunk   uint32 // payload bytes per written row
	total   uint32 // physical rows of the main area

	last      uint32 // cached last written row
	lastKnown bool
	inFlight  bool // a polled operation timed out and may still complete
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// New validates cfg against the store and computes the derived geometry.
// It does not touch the flash.
func New(cfg Config, store flash.IRowStore) (*Engine, error) {
	if store == nil {
		return nil, newError(StatusBadParam, "row store is nil")
	}
	cfg = cfg.withDefaults()
	geo := store.Geometry()

	switch {
	case cfg.EepromSize == 0:
		return nil, newError(StatusBadData, "eeprom size is zero")
	case cfg.StartAddr == 0:
		return nil, newError(StatusBadData, "start address is zero")
	case cfg.WearLevelingFactor < 1 || cfg.WearLevelingFactor > MaxWearLevelingFactor:
		return nil, newError(StatusBadData, "wear leveling factor %d not in 1..%d", cfg.WearLevelingFactor, MaxWearLevelingFactor)
	case geo.RowSize == 0 || geo.RowSize%4 != 0 || (!cfg.SimpleMode && geo.RowSize < MinRowSize):
		return nil, newError(StatusBadData, "unsupported row size %d", geo.RowSize)
	case cfg.StartAddr < geo.Base || !geo.RowAligned(cfg.StartAddr):
		return nil, newError(StatusBadData, "start address 0x%08x is not a row of the flash window (%s)", cfg.StartAddr, geo)
	}
	if end := uint64(cfg.StartAddr) + PhysicalSize(cfg, geo.RowSize); end > geo.End() {
		return nil, newError(StatusBadData, "eeprom [0x%08x, 0x%08x) exceeds the flash window (%s)", cfg.StartAddr, end, geo)
	}

	e := &Engine{
		cfg:     cfg,
		store:   store,
		rowSize: geo.RowSize,
	}
	if !cfg.BlockingWrite {
		async, ok := store.(flash.IAsyncRowStore)
		if !ok {
			return nil, newError(StatusBadData, "polled writes need a store with polled operations")
		}
		e.async = async
	}

	if cfg.SimpleMode {
		e.bir = e.rowSize
	} else {
		e.bir = e.rowSize / 2
		e.chunk = e.bir - headerSize
	}
	e.rows = ceilDiv(cfg.EepromSize, e.bir)
	e.total = e.rows * cfg.WearLevelingFactor

	log.Debugf("engine created: %s rows=%d bytesPerRow=%d physicalRows=%d", cfg, e.rows, e.bir, e.total)
	return e, nil
}

// --------------------------------------------------------------------------
// Public operations
// --------------------------------------------------------------------------

// Size returns the size of the logical address space.
func (e *Engine) Size() uint32 {
	return e.cfg.EepromSize
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Read fills buf with the logical bytes starting at addr.
func (e *Engine) Read(addr uint32, buf []byte) error {
	if err := e.checkRange(addr, len(buf)); err != nil {
		return err
	}
	if e.cfg.SimpleMode {
		if err := e.store.Read(e.cfg.StartAddr+addr, buf); err != nil {
			return newError(StatusBadParam, "read: %v", err)
		}
		return nil
	}
	return e.readExtended(addr, buf)
}

// Write stores data at the logical address addr.
// In extended mode data is written in chunks of one row each. A failing row aborts
// the write; chunks programmed before the failure stay committed.
func (e *Engine) Write(addr uint32, data []byte) error {
	if err := e.checkRange(addr, len(data)); err != nil {
		return err
	}
	if e.cfg.SimpleMode {
		return e.writeSimple(addr, data)
	}
	return e.writeExtended(addr, data)
}

// Erase clears the whole logical address space.
// In extended mode the sequence number survives, so NumWrites keeps counting.
func (e *Engine) Erase() error {
	if e.cfg.SimpleMode {
		var out outcome
		for i := uint32(0); i < e.rows; i++ {
			if err := e.eraseRow(i, false); err != nil {
				out.note(StatusWriteFail, "erase row %d: %v", i, err)
			}
		}
		return out.err()
	}
	return e.eraseExtended()
}

// NumWrites returns the number of rows written since the flash was blank.
// It is always 0 in simple mode.
func (e *Engine) NumWrites() uint32 {
	if e.cfg.SimpleMode {
		return 0
	}
	seq, _ := e.current()
	return seq
}

// ResetCache forgets the cached last written row, as a reset would.
// The next operation recovers it with a full scan.
func (e *Engine) ResetCache() {
	e.lastKnown = false
}

func (e *Engine) checkRange(addr uint32, n int) error {
	if n == 0 {
		return newError(StatusBadParam, "empty access")
	}
	if uint64(addr)+uint64(n) > uint64(e.cfg.EepromSize) {
		return newError(StatusBadParam, "range [%d, +%d) exceeds eeprom size %d", addr, n, e.cfg.EepromSize)
	}
	return nil
}

// --------------------------------------------------------------------------
// Simple mode
// --------------------------------------------------------------------------

func (e *Engine) writeSimple(addr uint32, data []byte) error {
	buf := make([]byte, e.rowSize)
	for len(data) > 0 {
		idx := addr / e.rowSize
		off := addr % e.rowSize
		n := min(e.rowSize-off, uint32(len(data)))

		rowAddr := e.rowAddr(idx, false)
		if err := e.store.Read(rowAddr, buf); err != nil {
			return newError(StatusWriteFail, "read row %d: %v", idx, err)
		}
		copy(buf[off:off+n], data[:n])
		if err := e.programRow(idx, false, buf); err != nil {
			writeFailuresTotal.Inc()
			return newError(StatusWriteFail, "row %d: %v", idx, err)
		}

		addr += n
		data = data[n:]
	}
	return nil
}

// --------------------------------------------------------------------------
// Extended mode
// --------------------------------------------------------------------------

func (e *Engine) readExtended(addr uint32, buf []byte) error {
	clear(buf)

	var out outcome
	_, st := e.current()
	out.note(st, "last written row")
	rows := e.newRowCache(&out)

	// historic data of every logical row covered by the request
	end := uint64(addr) + uint64(len(buf))
	for cur := uint64(addr); cur < end; {
		logical := uint32(cur / uint64(e.bir))
		inRow := uint32(cur % uint64(e.bir))
		n := min(uint64(e.bir-inRow), end-cur)

		r, _ := rows.need(e.holder(logical))
		copy(buf[cur-uint64(addr):cur-uint64(addr)+n], r.historic()[inRow:uint64(inRow)+n])
		cur += n
	}

	// payloads of the recent rows are newer than any historic data. Lost rows
	// are skipped, their span is unknown.
	for k := e.rows; k >= 1; k-- {
		idx := e.prev(e.last, k-1)
		if r, state := rows.get(idx); state == RowValid && overlay(buf, uint64(addr), r) {
			rows.need(idx)
		}
	}
	return out.err()
}

func (e *Engine) writeExtended(addr uint32, data []byte) error {
	var out outcome
	seq, st := e.current()
	out.note(st, "last written row")
	p := e.last
	rows := e.newRowCache(&out)

	for len(data) > 0 {
		n := min(e.chunk, uint32(len(data)))
		p = e.next(p)
		seq++

		r := make(row, e.rowSize)
		r.setSeq(seq)
		r.setAddr(addr)
		r.setLength(n)
		copy(r.payload(), data[:n])

		// carry forward the logical row this physical row takes over
		h, _ := rows.need(e.prev(p, e.rows))
		copy(r.historic(), h.historic())

		// fold in the payloads written since the historic source, then our own
		base := uint64(p%e.rows) * uint64(e.bir)
		for k := min(e.rows, seq) - 1; k >= 1; k-- {
			if w, state := rows.get(e.prev(p, k)); state == RowValid && overlay(r.historic(), base, w) {
				rows.need(e.prev(p, k))
			}
		}
		overlay(r.historic(), base, r)
		r.seal()

		if err := e.commit(p, r); err != nil {
			writeFailuresTotal.Inc()
			log.Errorf("write of row %d (seq %d) failed: %v", p, seq, err)
			out.note(StatusWriteFail, "row %d: %v", p, err)
			return out.err()
		}
		e.last, e.lastKnown = p, true
		rows.put(p, r)

		addr += n
		data = data[n:]
	}
	return out.err()
}

func (e *Engine) eraseExtended() error {
	seq, _ := e.current()
	p := e.next(e.last)

	r := make(row, e.rowSize)
	r.setSeq(seq + 1)
	r.seal()

	var out outcome
	if err := e.programRow(p, false, r); err != nil {
		out.note(StatusWriteFail, "row %d: %v", p, err)
	}
	if e.cfg.RedundantCopy {
		if err := e.programRow(p, true, r); err != nil {
			out.note(StatusWriteFail, "mirror of row %d: %v", p, err)
		}
	}
	if out.status != StatusSuccess {
		writeFailuresTotal.Inc()
		return out.err()
	}
	e.last, e.lastKnown = p, true

	for k := uint32(1); k < e.total; k++ {
		i := (p + k) % e.total
		if err := e.eraseRow(i, false); err != nil {
			out.note(StatusWriteFail, "erase row %d: %v", i, err)
		}
		if e.cfg.RedundantCopy {
			if err := e.eraseRow(i, true); err != nil {
				out.note(StatusWriteFail, "erase mirror of row %d: %v", i, err)
			}
		}
	}
	return out.err()
}

// commit programs r as row i and its mirror.
func (e *Engine) commit(i uint32, r row) error {
	if err := e.programRow(i, false, r); err != nil {
		return err
	}
	if e.cfg.RedundantCopy {
		if err := e.programRow(i, true, r); err != nil {
			return fmt.Errorf("mirror: %w", err)
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Row access
// --------------------------------------------------------------------------

// rowAddr returns the flash address of row i of the main area or of the mirror.
func (e *Engine) rowAddr(i uint32, mirror bool) uint32 {
	if i >= e.total {
		panic(fmt.Sprintf("emeeprom: row %d out of range (%d rows)", i, e.total))
	}
	if mirror {
		i += e.total
	}
	return e.cfg.StartAddr + i*e.rowSize
}

// rowAt reads row i. Read errors yield a corrupted row.
func (e *Engine) rowAt(i uint32, mirror bool) row {
	r := make(row, e.rowSize)
	if err := e.store.Read(e.rowAddr(i, mirror), r); err != nil {
		log.Errorf("read of row %d (mirror=%v) failed: %v", i, mirror, err)
		r[offChecksum] = 0xFF
		r[offChecksum+1] = 0xFF
	}
	return r
}

// next returns the row following i in the circular log.
func (e *Engine) next(i uint32) uint32 {
	return (i + 1) % e.total
}

// prev returns the row k positions before i in the circular log.
func (e *Engine) prev(i, k uint32) uint32 {
	return (i + e.total - k%e.total) % e.total
}

// holder returns the row among the newest e.rows rows that carries the historic
// data of logical row l.
func (e *Engine) holder(l uint32) uint32 {
	return e.prev(e.last, (e.last%e.rows+e.rows-l)%e.rows)
}

// load resolves row i to usable contents: the main row if valid, else the mirror
// if valid, else an empty row. The returned state tells whether the contents are
// real (RowValid), empty because the row was never written, or lost.
func (e *Engine) load(i uint32) (row, Status, RowState) {
	r := e.rowAt(i, false)
	state := r.state()
	if state == RowValid {
		return r, StatusSuccess, RowValid
	}
	if e.cfg.RedundantCopy {
		m := e.rowAt(i, true)
		if m.state() == RowValid {
			redundantCopyUsedTotal.Inc()
			log.Warningf("row %d is %s, using redundant copy", i, state)
			return m, StatusRedundantCopyUsed, RowValid
		}
		state = m.state()
	}
	if state == RowNeverWritten {
		return make(row, e.rowSize), StatusSuccess, RowNeverWritten
	}
	checksumFailuresTotal.Inc()
	log.Warningf("row %d failed checksum", i)
	return make(row, e.rowSize), StatusBadChecksum, RowCorrupted
}

// rowCache loads every row at most once per operation. Only the status of rows
// whose data the operation uses ends up in the operation's outcome.
type rowCache struct {
	e    *Engine
	out  *outcome
	rows map[uint32]cachedRow
}

type cachedRow struct {
	r      row
	state  RowState
	status Status
}

func (e *Engine) newRowCache(out *outcome) *rowCache {
	return &rowCache{e: e, out: out, rows: make(map[uint32]cachedRow)}
}

// get loads row i without reporting its status.
func (c *rowCache) get(i uint32) (row, RowState) {
	cr, ok := c.rows[i]
	if !ok {
		r, st, state := c.e.load(i)
		cr = cachedRow{r: r, state: state, status: st}
		c.rows[i] = cr
	}
	return cr.r, cr.state
}

// need loads row i and reports its status.
func (c *rowCache) need(i uint32) (row, RowState) {
	r, state := c.get(i)
	c.out.note(c.rows[i].status, "row %d", i)
	return r, state
}

// put records a row the operation has just programmed.
func (c *rowCache) put(i uint32, r row) {
	c.rows[i] = cachedRow{r: r, state: RowValid}
}

// programRow programs one row, blocking or polled depending on the configuration.
func (e *Engine) programRow(i uint32, mirror bool, r []byte) error {
	addr := e.rowAddr(i, mirror)
	rowWritesTotal.Inc()
	if e.async == nil {
		return e.store.WriteRow(addr, r)
	}
	if err := e.settle(); err != nil {
		return err
	}
	if err := e.async.StartWrite(addr, r); err != nil {
		return err
	}
	return e.wait()
}

// eraseRow erases one row, blocking or polled depending on the configuration.
func (e *Engine) eraseRow(i uint32, mirror bool) error {
	addr := e.rowAddr(i, mirror)
	if e.async == nil {
		return e.store.EraseRow(addr)
	}
	if err := e.settle(); err != nil {
		return err
	}
	if err := e.async.StartErase(addr); err != nil {
		return err
	}
	return e.wait()
}

// wait blocks until the polled operation in flight completes or MaxWriteDuration passed.
// A timed out operation stays in flight on the store.
func (e *Engine) wait() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.MaxWriteDuration)
	defer cancel()
	c, err := flash.WaitComplete(ctx, e.async, e.cfg.PollInterval)
	e.inFlight = c == flash.TimedOut
	if e.inFlight {
		return fmt.Errorf("no completion within %s: %w", e.cfg.MaxWriteDuration, err)
	}
	return err
}

// settle gives an operation that timed out earlier another MaxWriteDuration to
// complete before the next one starts. Its outcome was already reported.
func (e *Engine) settle() error {
	if !e.inFlight {
		return nil
	}
	log.Warningf("waiting for a row operation that timed out earlier")
	if err := e.wait(); e.inFlight {
		return err
	}
	return nil
}
