package flash

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestFileFlashPersists(t *testing.T) {
	fs := afero.NewMemMapFs()
	geo := Geometry{Base: 0x2000, Size: 4 * 64, RowSize: 64}

	f, err := OpenFileFlash(fs, "/dev0.img", geo)
	require.NoError(t, err)
	require.NoError(t, f.WriteRow(0x2000+64, row(64, 0x5A)))
	require.NoError(t, f.Close())

	info, err := fs.Stat("/dev0.img")
	require.NoError(t, err)
	require.Equal(t, int64(geo.Size), info.Size())

	f, err = OpenFileFlash(fs, "/dev0.img", geo)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 64)
	require.NoError(t, f.Read(0x2000+64, buf))
	require.Equal(t, row(64, 0x5A), buf)
	require.NoError(t, f.Read(0x2000, buf))
	require.Equal(t, row(64, ErasedByte), buf)

	require.NoError(t, f.EraseRow(0x2000+64))
	require.NoError(t, f.Read(0x2000+64, buf))
	require.Equal(t, row(64, ErasedByte), buf)
}

func TestFileFlashRejectsForeignImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/big.img", make([]byte, 512), 0o644))

	_, err := OpenFileFlash(fs, "/big.img", Geometry{Size: 256, RowSize: 64})
	require.Error(t, err)

	_, err = OpenFileFlash(fs, "/odd.img", Geometry{Size: 100, RowSize: 64})
	require.Error(t, err)
}
