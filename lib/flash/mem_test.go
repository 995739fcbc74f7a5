package flash

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func row(size uint32, fill byte) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestMemFlashBlocking(t *testing.T) {
	m := NewMemFlash(4*128, 128)
	g := m.Geometry()
	require.Equal(t, DefaultBase, g.Base)
	require.Equal(t, uint32(4), g.Rows())

	buf := make([]byte, 128)
	require.NoError(t, m.Read(g.Base+128, buf))
	require.Equal(t, row(128, ErasedByte), buf)

	require.NoError(t, m.WriteRow(g.Base+128, row(128, 0xAB)))
	require.NoError(t, m.Read(g.Base+128, buf))
	require.Equal(t, row(128, 0xAB), buf)
	require.Equal(t, uint64(1), m.Programs(g.Base+128))

	require.NoError(t, m.EraseRow(g.Base+128))
	require.NoError(t, m.Read(g.Base+128, buf))
	require.Equal(t, row(128, ErasedByte), buf)
	require.Equal(t, uint64(1), m.Erases(g.Base+128))
}

func TestMemFlashRejectsBadAccess(t *testing.T) {
	m := NewMemFlash(2*64, 64, WithBase(0x1000))
	g := m.Geometry()

	tests := []struct {
		name string
		err  error
		kind interface{}
	}{
		{"read before window", m.Read(0x0FFF, make([]byte, 2)), &RangeError{}},
		{"read past window", m.Read(g.Base+100, make([]byte, 64)), &RangeError{}},
		{"misaligned write", m.WriteRow(g.Base+1, make([]byte, 64)), &RowError{}},
		{"short write", m.WriteRow(g.Base, make([]byte, 32)), &RowError{}},
		{"erase past window", m.EraseRow(g.Base+128), &RangeError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			require.IsType(t, tt.kind, tt.err)
		})
	}
}

func TestMemFlashFaults(t *testing.T) {
	m := NewMemFlash(2*64, 64)
	base := m.Geometry().Base

	m.FailWrites(1)
	require.ErrorIs(t, m.WriteRow(base, row(64, 1)), ErrProgramFailed)
	require.NoError(t, m.WriteRow(base, row(64, 1)))

	m.FailErases(1)
	require.ErrorIs(t, m.EraseRow(base), ErrProgramFailed)

	require.NoError(t, m.FlipBit(base+3, 7))
	buf := make([]byte, 4)
	require.NoError(t, m.Read(base, buf))
	require.Equal(t, []byte{1, 1, 1, 0x81}, buf)
}

func TestWaitComplete(t *testing.T) {
	m := NewMemFlash(2*64, 64, WithBusyPolls(3))
	base := m.Geometry().Base

	require.NoError(t, m.StartWrite(base, row(64, 7)))
	require.ErrorIs(t, m.StartErase(base), ErrBusy)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := WaitComplete(ctx, m, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, Done, c)
	require.Equal(t, OpIdle, m.Poll())

	buf := make([]byte, 64)
	require.NoError(t, m.Read(base, buf))
	require.Equal(t, row(64, 7), buf)

	t.Run("failure", func(t *testing.T) {
		m.FailErases(1)
		require.NoError(t, m.StartErase(base))
		c, err := WaitComplete(context.Background(), m, time.Millisecond)
		require.Equal(t, Done, c)
		require.ErrorIs(t, err, ErrProgramFailed)
	})

	t.Run("timeout", func(t *testing.T) {
		m.SetHang(true)
		defer m.SetHang(false)
		require.NoError(t, m.StartErase(base))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		c, err := WaitComplete(ctx, m, time.Millisecond)
		require.Equal(t, TimedOut, c)
		require.True(t, errors.Is(err, context.DeadlineExceeded))
		m.Abort()
	})
}
