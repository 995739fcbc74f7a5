package eekv

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/ValentinKolb/eeKV/lib/db"
	dbtesting "github.com/ValentinKolb/eeKV/lib/db/testing"
	"github.com/ValentinKolb/eeKV/lib/emeeprom"
	"github.com/ValentinKolb/eeKV/lib/flash"
	"github.com/ValentinKolb/eeKV/lib/lockmgr"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	dbtesting.RunObjectDBTests(t, "EEKV", func() db.ObjectDB {
		return NewEEKVDB(MemoryFactory(512, 128), nil)
	})
	dbtesting.RunObjectDBTests(t, "EEKV(bytes)", func() db.ObjectDB {
		return NewEEKVDB(bytesFactory(newByteStore(256)), nil)
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunObjectDBBenchmarks(b, "EEKV", func() db.ObjectDB {
		return NewEEKVDB(MemoryFactory(512, 128), nil)
	})
}

// --------------------------------------------------------------------------
// Byte store stub
// --------------------------------------------------------------------------

// byteStore is a plain byte slice with injectable read errors.
type byteStore struct {
	data    []byte
	readErr error // returned together with the data of every read
	writes  []uint32
}

func newByteStore(n int) *byteStore {
	return &byteStore{data: make([]byte, n)}
}

func bytesFactory(bs *byteStore) ByteStoreFactory {
	return func(bool, uint32) (IByteStore, error) { return bs, nil }
}

func (s *byteStore) Size() uint32 { return uint32(len(s.data)) }

func (s *byteStore) Read(addr uint32, buf []byte) error {
	copy(buf, s.data[addr:])
	return s.readErr
}

func (s *byteStore) Write(addr uint32, data []byte) error {
	s.writes = append(s.writes, addr)
	copy(s.data[addr:], data)
	return nil
}

func (s *byteStore) Erase() error {
	clear(s.data)
	return nil
}

func newFormatted(t *testing.T, bs *byteStore) *DB {
	t.Helper()
	d := NewEEKVDB(bytesFactory(bs), nil)
	require.NoError(t, d.Initialize(false, 1))
	return d
}

// --------------------------------------------------------------------------
// Layout
// --------------------------------------------------------------------------

func TestFormatLayout(t *testing.T) {
	bs := newByteStore(64)
	newFormatted(t, bs)

	require.Equal(t, []byte("eeKV"), bs.data[:4])
	require.Equal(t, byte(db.SentinelKey), bs.data[4])
}

func TestStoreLayout(t *testing.T) {
	bs := newByteStore(64)
	d := newFormatted(t, bs)

	require.NoError(t, d.Store(3, []byte{0xAA, 0xBB}))

	require.Equal(t, byte(3), bs.data[4])
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(bs.data[5:9]))
	require.Equal(t, []byte{0xAA, 0xBB}, bs.data[9:11])
	require.Equal(t, byte(db.SentinelKey), bs.data[11])

	// the new sentinel is written before the entry replaces the old one
	bs.writes = nil
	require.NoError(t, d.Store(4, []byte{1}))
	require.Equal(t, []uint32{11 + 6, 11}, bs.writes)
}

func TestResizeMovesObject(t *testing.T) {
	bs := newByteStore(128)
	d := newFormatted(t, bs)

	require.NoError(t, d.Store(3, make([]byte, 10)))
	require.NoError(t, d.Store(7, []byte("tail")))

	off, size, err := d.Find(7)
	require.NoError(t, err)
	require.Equal(t, uint32(4+15), off)
	require.Equal(t, uint32(4), size)

	require.NoError(t, d.Store(3, make([]byte, 20)))

	off, _, err = d.Find(7)
	require.NoError(t, err)
	require.Equal(t, uint32(4), off)
	off, size, err = d.Find(3)
	require.NoError(t, err)
	require.Equal(t, uint32(4+9), off)
	require.Equal(t, uint32(20), size)

	require.NoError(t, d.Delete(7))
	off, _, err = d.Find(3)
	require.NoError(t, err)
	require.Equal(t, uint32(4), off)
	require.Equal(t, byte(db.SentinelKey), bs.data[4+25])
}

func TestStoreFillsExactly(t *testing.T) {
	bs := newByteStore(32)
	d := newFormatted(t, bs)

	// 4 signature + 5 header + 23 payload ends at the store boundary
	require.NoError(t, d.Store(1, make([]byte, 23)))
	objects, err := d.List()
	require.NoError(t, err)
	require.Len(t, objects, 1)

	require.ErrorIs(t, d.Store(2, nil), db.ErrNoSpace)

	// deleting the only entry leaves room for the sentinel again
	require.NoError(t, d.Delete(1))
	require.Equal(t, byte(db.SentinelKey), bs.data[4])
}

func TestSizeMismatchWithoutRetry(t *testing.T) {
	d := newFormatted(t, newByteStore(64))
	require.NoError(t, d.Store(1, []byte("abc")))

	err := d.storeObject(lockmgr.NewOwnerID(), 1, []byte("abcd"), false)
	require.ErrorIs(t, err, db.ErrSizeMismatch)

	value, err := d.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), value)
}

func TestCorruptedLength(t *testing.T) {
	bs := newByteStore(64)
	d := newFormatted(t, bs)
	require.NoError(t, d.Store(1, []byte("abc")))

	binary.LittleEndian.PutUint32(bs.data[5:9], 1000)

	_, _, err := d.Find(2)
	require.ErrorIs(t, err, db.ErrCorrupted)
	_, err = d.List()
	require.ErrorIs(t, err, db.ErrCorrupted)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func TestInitializeCreatesStoreOnce(t *testing.T) {
	calls := 0
	bs := newByteStore(64)
	d := NewEEKVDB(func(redundant bool, wlf uint32) (IByteStore, error) {
		calls++
		require.True(t, redundant)
		require.Equal(t, uint32(3), wlf)
		return bs, nil
	}, nil)

	require.NoError(t, d.Initialize(true, 3))
	require.NoError(t, d.Initialize(true, 3))
	require.Equal(t, 1, calls)
}

func TestInitializeKeepsExistingLog(t *testing.T) {
	bs := newByteStore(64)
	d := newFormatted(t, bs)
	require.NoError(t, d.Store(9, []byte("persist")))
	require.NoError(t, d.Close())

	reopened := newFormatted(t, bs)
	value, err := reopened.Get(9)
	require.NoError(t, err)
	require.Equal(t, []byte("persist"), value)
}

func TestInitializeFactoryErrors(t *testing.T) {
	d := NewEEKVDB(func(bool, uint32) (IByteStore, error) {
		return nil, emeeprom.ErrBadData
	}, nil)
	require.ErrorIs(t, d.Initialize(false, 1), emeeprom.ErrBadData)
	require.ErrorIs(t, d.Format(), db.ErrNotInitialized)

	tiny := NewEEKVDB(bytesFactory(newByteStore(4)), nil)
	require.ErrorIs(t, tiny.Initialize(false, 1), db.ErrBadParam)
}

func TestBadChecksumLeavesStoreUnformatted(t *testing.T) {
	bs := newByteStore(64)
	bs.readErr = emeeprom.ErrBadChecksum
	d := NewEEKVDB(bytesFactory(bs), nil)

	require.ErrorIs(t, d.Initialize(false, 1), emeeprom.ErrBadChecksum)
	require.ErrorIs(t, d.Store(1, []byte("x")), db.ErrStoreUnformatted)
	require.Empty(t, bs.writes)

	// an explicit format recovers
	require.NoError(t, d.Format())
	bs.readErr = nil
	require.NoError(t, d.Store(1, []byte("x")))
}

func TestRedundantCopyIsTolerated(t *testing.T) {
	bs := newByteStore(64)
	d := newFormatted(t, bs)
	require.NoError(t, d.Store(2, []byte("mirror")))

	bs.readErr = emeeprom.ErrRedundantCopyUsed
	before := redundantReads.Get()

	value, err := d.Get(2)
	require.NoError(t, err)
	require.Equal(t, []byte("mirror"), value)
	require.Greater(t, redundantReads.Get(), before)
}

func TestLockTimeout(t *testing.T) {
	d := NewEEKVDB(bytesFactory(newByteStore(64)), &DBOptions{LockTimeout: 10 * time.Millisecond})
	require.NoError(t, d.Initialize(false, 1))

	owner := lockmgr.NewOwnerID()
	release, err := d.acquire(owner)
	require.NoError(t, err)
	defer release()

	done := make(chan error, 1)
	go func() { done <- d.Store(1, []byte("x")) }()
	require.ErrorIs(t, <-done, context.DeadlineExceeded)
}

// --------------------------------------------------------------------------
// Emulated EEPROM
// --------------------------------------------------------------------------

func TestOnEmulatedEEPROM(t *testing.T) {
	mem := flash.NewMemFlash(8*1024, 128)
	cfg := emeeprom.Config{EepromSize: 256, StartAddr: flash.DefaultBase, BlockingWrite: true}
	d := NewEEKVDB(EngineFactory(mem, cfg), nil)

	require.NoError(t, d.Initialize(true, 2))
	require.NoError(t, d.Store(1, []byte("survives")))

	info := d.GetInfo()
	meta, ok := info.Metadata.(*infoMeta)
	require.True(t, ok)
	require.Equal(t, "formatted", meta.State)
	require.NotZero(t, meta.NumWrites)
	require.Equal(t, 256, info.SizeBytes)
	require.Equal(t, 4+5+8, info.UsedBytes)

	// a new engine on the same flash recovers the log
	reopened := NewEEKVDB(EngineFactory(mem, cfg), nil)
	require.NoError(t, reopened.Initialize(true, 2))
	value, err := reopened.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("survives"), value)
}

func TestInitializeOnBlankFlash(t *testing.T) {
	for _, wlf := range []uint32{1, 2} {
		mem := flash.NewMemFlash(8*1024, 128)
		cfg := emeeprom.Config{EepromSize: 256, StartAddr: flash.DefaultBase, BlockingWrite: true}
		d := NewEEKVDB(EngineFactory(mem, cfg), nil)

		require.NoError(t, d.Initialize(false, wlf), "wlf %d", wlf)
		require.NoError(t, d.Store(3, []byte("blank")))
		value, err := d.Get(3)
		require.NoError(t, err)
		require.Equal(t, []byte("blank"), value)

		objects, err := d.List()
		require.NoError(t, err)
		require.Len(t, objects, 1)
	}
}

func TestEngineFactoryRejectsBadConfig(t *testing.T) {
	mem := flash.NewMemFlash(1024, 128)
	cfg := emeeprom.Config{EepromSize: 256, StartAddr: flash.DefaultBase, BlockingWrite: true}
	d := NewEEKVDB(EngineFactory(mem, cfg), nil)

	// 256 bytes with wear leveling 10 do not fit into 1KB of flash
	require.ErrorIs(t, d.Initialize(false, 10), emeeprom.ErrBadData)
}
