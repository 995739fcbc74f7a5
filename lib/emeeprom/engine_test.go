package emeeprom

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/ValentinKolb/eeKV/lib/flash"
	"github.com/stretchr/testify/require"
)

const testRowSize = 128

// newTestEngine creates an engine with cfg on a fresh in-memory flash. StartAddr
// defaults to the flash base.
func newTestEngine(t *testing.T, cfg Config, opts ...flash.Option) (*Engine, *flash.MemFlash) {
	t.Helper()
	size := PhysicalSize(cfg, testRowSize)
	mem := flash.NewMemFlash(uint32(size)+4*testRowSize, testRowSize, opts...)
	if cfg.StartAddr == 0 {
		cfg.StartAddr = mem.Geometry().Base
	}
	e, err := New(cfg, mem)
	require.NoError(t, err)
	return e, mem
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)*7
	}
	return b
}

func TestCRC8(t *testing.T) {
	require.Equal(t, uint8(0xF7), crc8([]byte("123456789")))
	require.Equal(t, uint8(crcSeed), crc8(nil))
}

func TestNewValidation(t *testing.T) {
	mem := flash.NewMemFlash(64*testRowSize, testRowSize)
	base := mem.Geometry().Base
	valid := Config{EepromSize: 256, WearLevelingFactor: 2, RedundantCopy: true, BlockingWrite: true, StartAddr: base}

	_, err := New(valid, nil)
	require.ErrorIs(t, err, ErrBadParam)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero size", func(c *Config) { c.EepromSize = 0 }},
		{"zero start", func(c *Config) { c.StartAddr = 0 }},
		{"factor zero", func(c *Config) { c.WearLevelingFactor = 0 }},
		{"factor too large", func(c *Config) { c.WearLevelingFactor = MaxWearLevelingFactor + 1 }},
		{"start before window", func(c *Config) { c.StartAddr = base - testRowSize }},
		{"start misaligned", func(c *Config) { c.StartAddr = base + 4 }},
		{"exceeds window", func(c *Config) { c.EepromSize = 64 * testRowSize }},
		{"polled on blocking store", func(c *Config) { c.BlockingWrite = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			var store flash.IRowStore = mem
			if tt.name == "polled on blocking store" {
				store = blockingOnly{mem}
			}
			_, err := New(cfg, store)
			require.ErrorIs(t, err, ErrBadData)
		})
	}

	e, err := New(valid, mem)
	require.NoError(t, err)
	info := e.Info()
	require.Equal(t, uint32(4), info.NumberOfRows)
	require.Equal(t, uint32(64), info.BytesPerRow)
	require.Equal(t, uint32(48), info.ChunkSize)
	require.Equal(t, uint32(8), info.PhysicalRows)
	require.Equal(t, uint64(4*testRowSize*2*2), info.PhysicalBytes)
}

// blockingOnly hides the polled methods of a store.
type blockingOnly struct{ flash.IRowStore }

func TestSimpleModeForcesPlainLayout(t *testing.T) {
	e, _ := newTestEngine(t, Config{EepromSize: 300, SimpleMode: true, WearLevelingFactor: 5, RedundantCopy: true, BlockingWrite: true})
	require.Equal(t, uint32(1), e.Config().WearLevelingFactor)
	require.False(t, e.Config().RedundantCopy)
	require.Equal(t, uint64(3*testRowSize), PhysicalSize(e.Config(), testRowSize))

	data := pattern(200, 3)
	require.NoError(t, e.Write(50, data))
	buf := make([]byte, 200)
	require.NoError(t, e.Read(50, buf))
	require.Equal(t, data, buf)
	require.Zero(t, e.NumWrites())
	require.Nil(t, e.Rows())

	require.NoError(t, e.Erase())
	require.NoError(t, e.Read(50, buf))
	require.Equal(t, make([]byte, 200), buf)
}

func TestRangeChecks(t *testing.T) {
	e, _ := newTestEngine(t, Config{EepromSize: 256, WearLevelingFactor: 1, BlockingWrite: true})

	require.ErrorIs(t, e.Read(0, nil), ErrBadParam)
	require.ErrorIs(t, e.Read(250, make([]byte, 7)), ErrBadParam)
	require.ErrorIs(t, e.Write(256, []byte{1}), ErrBadParam)
	require.ErrorIs(t, e.Write(0xFFFFFFFF, []byte{1}), ErrBadParam)
	require.NoError(t, e.Write(255, []byte{1}))
}

var roundTripConfigs = []struct {
	name string
	cfg  Config
	opts []flash.Option
	ops  int
}{
	{"simple", Config{EepromSize: 500, SimpleMode: true, BlockingWrite: true}, nil, 200},
	{"extended", Config{EepromSize: 256, WearLevelingFactor: 1, BlockingWrite: true}, nil, 300},
	{"extended odd size", Config{EepromSize: 1000, WearLevelingFactor: 1, BlockingWrite: true}, nil, 200},
	{"wear leveling", Config{EepromSize: 256, WearLevelingFactor: 3, BlockingWrite: true}, nil, 300},
	{"wear leveling redundant", Config{EepromSize: 300, WearLevelingFactor: 4, RedundantCopy: true, BlockingWrite: true}, nil, 300},
	{"polled", Config{EepromSize: 256, WearLevelingFactor: 2, RedundantCopy: true, PollInterval: 100 * time.Microsecond}, []flash.Option{flash.WithBusyPolls(2)}, 60},
}

// TestRoundTrip checks random writes against a shadow copy of the address space.
func TestRoundTrip(t *testing.T) {
	for _, tc := range roundTripConfigs {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newTestEngine(t, tc.cfg, tc.opts...)
			size := int(e.Size())
			shadow := make([]byte, size)
			rnd := rand.New(rand.NewSource(42))

			for i := 0; i < tc.ops; i++ {
				n := 1 + rnd.Intn(120)
				if n > size {
					n = size
				}
				addr := rnd.Intn(size - n + 1)
				data := make([]byte, n)
				rnd.Read(data)

				require.NoError(t, e.Write(uint32(addr), data), "op %d", i)
				copy(shadow[addr:], data)

				if rnd.Intn(10) == 0 {
					e.ResetCache()
				}

				buf := make([]byte, size)
				require.NoError(t, e.Read(0, buf), "op %d", i)
				require.True(t, bytes.Equal(shadow, buf), "op %d: image mismatch after write [%d, +%d)", i, addr, n)
			}

			// partial reads
			for i := 0; i < 20; i++ {
				n := 1 + rnd.Intn(size)
				addr := rnd.Intn(size - n + 1)
				buf := make([]byte, n)
				require.NoError(t, e.Read(uint32(addr), buf))
				require.Equal(t, shadow[addr:addr+n], buf)
			}
		})
	}
}

func TestIdempotentOverwrite(t *testing.T) {
	e, _ := newTestEngine(t, Config{EepromSize: 256, WearLevelingFactor: 2, BlockingWrite: true})

	require.NoError(t, e.Write(0, pattern(256, 1)))
	data := pattern(30, 99)
	require.NoError(t, e.Write(60, data))
	before := make([]byte, 256)
	require.NoError(t, e.Read(0, before))

	require.NoError(t, e.Write(60, data))
	after := make([]byte, 256)
	require.NoError(t, e.Read(0, after))
	require.Equal(t, before, after)
	require.Equal(t, pattern(256, 1)[:60], after[:60])
	require.Equal(t, pattern(256, 1)[90:], after[90:])
}

func TestWearLevelingRotation(t *testing.T) {
	const factor = 3
	e, mem := newTestEngine(t, Config{EepromSize: 256, WearLevelingFactor: factor, BlockingWrite: true})
	rows := e.Info().NumberOfRows

	others := pattern(256, 17)
	require.NoError(t, e.Write(0, others))
	programsBefore := make([]uint64, e.total)
	for i := uint32(0); i < e.total; i++ {
		programsBefore[i] = mem.Programs(e.rowAddr(i, false))
	}

	value := []byte{0xC0, 0xFF, 0xEE}
	for i := 0; i < factor+1; i++ {
		value[0] = byte(i)
		require.NoError(t, e.Write(100, value))

		buf := make([]byte, 256)
		require.NoError(t, e.Read(0, buf))
		want := append([]byte(nil), others...)
		copy(want[100:], value)
		require.Equal(t, want, buf, "write %d", i)
	}

	blocks := map[uint32]bool{}
	for i := uint32(0); i < e.total; i++ {
		if mem.Programs(e.rowAddr(i, false)) > programsBefore[i] {
			blocks[i/rows] = true
		}
	}
	require.GreaterOrEqual(t, len(blocks), 2)
}

func TestRecoveryAfterReset(t *testing.T) {
	cfg := Config{EepromSize: 256, WearLevelingFactor: 2, RedundantCopy: true, BlockingWrite: true}
	e, mem := newTestEngine(t, cfg)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 37; i++ {
		data := make([]byte, 1+rnd.Intn(60))
		rnd.Read(data)
		require.NoError(t, e.Write(uint32(rnd.Intn(256-len(data))), data))
	}
	writes := e.NumWrites()
	image := make([]byte, 256)
	require.NoError(t, e.Read(0, image))

	e.ResetCache()
	require.Equal(t, writes, e.NumWrites())
	buf := make([]byte, 256)
	require.NoError(t, e.Read(0, buf))
	require.Equal(t, image, buf)

	// a new engine on the same flash behaves like a device after power cycle
	cfg.StartAddr = mem.Geometry().Base
	fresh, err := New(cfg, mem)
	require.NoError(t, err)
	require.Equal(t, writes, fresh.NumWrites())
	require.NoError(t, fresh.Read(0, buf))
	require.Equal(t, image, buf)
}

func TestEraseKeepsCounting(t *testing.T) {
	e, _ := newTestEngine(t, Config{EepromSize: 256, WearLevelingFactor: 2, RedundantCopy: true, BlockingWrite: true})

	require.NoError(t, e.Write(0, pattern(256, 5)))
	before := e.NumWrites()
	require.NotZero(t, before)

	require.NoError(t, e.Erase())
	require.Equal(t, before+1, e.NumWrites())

	buf := make([]byte, 256)
	require.NoError(t, e.Read(0, buf))
	require.Equal(t, make([]byte, 256), buf)

	e.ResetCache()
	require.Equal(t, before+1, e.NumWrites())

	require.NoError(t, e.Write(10, []byte{1, 2, 3}))
	require.Equal(t, before+2, e.NumWrites())
	require.NoError(t, e.Read(0, buf))
	want := make([]byte, 256)
	copy(want[10:], []byte{1, 2, 3})
	require.Equal(t, want, buf)
}

func TestBlankFlashReadsZero(t *testing.T) {
	e, _ := newTestEngine(t, Config{EepromSize: 256, WearLevelingFactor: 2, BlockingWrite: true})

	buf := pattern(256, 1)
	require.NoError(t, e.Read(0, buf))
	require.Equal(t, make([]byte, 256), buf)
	require.Zero(t, e.NumWrites())
	for _, r := range e.Rows() {
		require.Equal(t, RowNeverWritten, r.State)
	}
}

func TestBlankFlashLifecycle(t *testing.T) {
	for _, redundant := range []bool{false, true} {
		t.Run(fmt.Sprintf("redundant=%v", redundant), func(t *testing.T) {
			e, _ := newTestEngine(t, Config{EepromSize: 256, WearLevelingFactor: 1, RedundantCopy: redundant, BlockingWrite: true})

			buf := make([]byte, 4)
			require.NoError(t, e.Read(0, buf))
			require.NoError(t, e.Write(0, []byte{1, 2, 3, 4}))
			require.NoError(t, e.Read(0, buf))
			require.Equal(t, []byte{1, 2, 3, 4}, buf)
			require.Equal(t, uint32(1), e.NumWrites())
		})
	}
}

func TestFailedFirstWriteIsNotCorruption(t *testing.T) {
	e, mem := newTestEngine(t, Config{EepromSize: 256, WearLevelingFactor: 2, BlockingWrite: true})

	mem.FailWrites(1)
	require.ErrorIs(t, e.Write(0, []byte{7}), ErrWriteFail)

	require.NoError(t, e.Write(0, []byte{8}))
	buf := make([]byte, 1)
	require.NoError(t, e.Read(0, buf))
	require.Equal(t, []byte{8}, buf)
	require.Equal(t, uint32(1), e.NumWrites())
}

func TestLostRowOutsideRangeIsIgnored(t *testing.T) {
	e, mem := newTestEngine(t, Config{EepromSize: 256, WearLevelingFactor: 2, BlockingWrite: true})

	// rows 1, 2 and 3 carry the three writes
	require.NoError(t, e.Write(0, []byte{0xAA}))
	require.NoError(t, e.Write(200, []byte{0xBB}))
	require.NoError(t, e.Write(130, []byte{0xCC}))
	require.NoError(t, mem.FlipBit(e.rowAddr(2, false)+headerSize+1, 3))

	buf := make([]byte, 1)
	require.NoError(t, e.Read(0, buf))
	require.Equal(t, []byte{0xAA}, buf)

	require.NoError(t, e.Write(10, []byte{1}))
	require.NoError(t, e.Read(10, buf))
	require.Equal(t, []byte{1}, buf)

	// row 3 folded the lost write into its historic data
	require.NoError(t, e.Read(200, buf))
	require.Equal(t, []byte{0xBB}, buf)
}

func TestPartialWriteKeepsCommittedChunks(t *testing.T) {
	e, mem := newTestEngine(t, Config{EepromSize: 256, WearLevelingFactor: 1, BlockingWrite: true})
	chunk := int(e.Info().ChunkSize)

	data := pattern(2*chunk, 40)
	mem.FailWritesAfter(1, 1)
	err := e.Write(0, data)
	require.ErrorIs(t, err, ErrWriteFail)
	require.Equal(t, uint32(1), e.NumWrites())

	buf := make([]byte, 2*chunk)
	require.NoError(t, e.Read(0, buf))
	require.Equal(t, data[:chunk], buf[:chunk])
	require.Equal(t, make([]byte, chunk), buf[chunk:])
}

func TestPolledWriteTimeout(t *testing.T) {
	e, mem := newTestEngine(t, Config{EepromSize: 256, WearLevelingFactor: 1, MaxWriteDuration: 5 * time.Millisecond})

	mem.SetHang(true)
	err := e.Write(0, []byte{1})
	require.ErrorIs(t, err, ErrWriteFail)
	require.Equal(t, StatusWriteFail, StatusOf(err))

	// the row operation is still in flight
	require.ErrorIs(t, e.Write(0, []byte{2}), ErrWriteFail)

	// once the flash finishes it, the next write goes through
	mem.SetHang(false)
	require.NoError(t, e.Write(0, []byte{3}))
	buf := make([]byte, 1)
	require.NoError(t, e.Read(0, buf))
	require.Equal(t, []byte{3}, buf)
	require.Equal(t, uint32(1), e.NumWrites())
}

func TestStatusAggregation(t *testing.T) {
	tests := []struct {
		a, b, want Status
	}{
		{StatusSuccess, StatusRedundantCopyUsed, StatusRedundantCopyUsed},
		{StatusRedundantCopyUsed, StatusBadChecksum, StatusBadChecksum},
		{StatusBadChecksum, StatusRedundantCopyUsed, StatusBadChecksum},
		{StatusBadChecksum, StatusWriteFail, StatusWriteFail},
		{StatusSuccess, StatusSuccess, StatusSuccess},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.a.Worse(tt.b), "%s vs %s", tt.a, tt.b)
	}
	require.Equal(t, StatusSuccess, StatusOf(nil))
}
