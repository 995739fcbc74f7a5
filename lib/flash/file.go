package flash

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// FileFlash is a blocking row store persisted in an image file.
// The file is grown to the window size on open; new space reads as ErasedByte.
type FileFlash struct {
	mu   sync.Mutex
	geo  Geometry
	file afero.File
	path string
}

// OpenFileFlash opens or creates the image at path on fs.
func OpenFileFlash(fs afero.Fs, path string, geo Geometry) (*FileFlash, error) {
	if geo.RowSize == 0 || geo.Size%geo.RowSize != 0 {
		return nil, fmt.Errorf("flash: size %d is not a multiple of row size %d", geo.Size, geo.RowSize)
	}

	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("flash: open image %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flash: stat image %s: %w", path, err)
	}
	switch {
	case info.Size() < int64(geo.Size):
		// ErasedByte is zero, so growing the file erases the new rows
		if err := f.Truncate(int64(geo.Size)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("flash: grow image %s: %w", path, err)
		}
		log.Infof("initialized flash image %s (%s)", path, geo)
	case info.Size() > int64(geo.Size):
		_ = f.Close()
		return nil, fmt.Errorf("flash: image %s has %d bytes, expected %d", path, info.Size(), geo.Size)
	}

	return &FileFlash{geo: geo, file: f, path: path}, nil
}

func (f *FileFlash) Geometry() Geometry {
	return f.geo
}

func (f *FileFlash) Read(addr uint32, buf []byte) error {
	if err := checkRead(f.geo, addr, len(buf)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, err := f.file.ReadAt(buf, int64(addr-f.geo.Base))
	if err == io.EOF && n == len(buf) {
		err = nil
	}
	return err
}

func (f *FileFlash) WriteRow(addr uint32, data []byte) error {
	if err := checkRow(f.geo, addr, len(data)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.put(addr, data); err != nil {
		rowFailuresTotal.Inc()
		return err
	}
	rowProgramsTotal.Inc()
	return nil
}

func (f *FileFlash) EraseRow(addr uint32) error {
	if err := checkRow(f.geo, addr, -1); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row := make([]byte, f.geo.RowSize)
	if ErasedByte != 0 {
		for i := range row {
			row[i] = ErasedByte
		}
	}
	if err := f.put(addr, row); err != nil {
		rowFailuresTotal.Inc()
		return err
	}
	rowErasesTotal.Inc()
	return nil
}

// put writes and syncs one row. Caller holds f.mu.
func (f *FileFlash) put(addr uint32, data []byte) error {
	if _, err := f.file.WriteAt(data, int64(addr-f.geo.Base)); err != nil {
		return fmt.Errorf("%w: %v", ErrProgramFailed, err)
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrProgramFailed, err)
	}
	return nil
}

// Path returns the location of the image file.
func (f *FileFlash) Path() string {
	return f.path
}

// Close closes the image file.
func (f *FileFlash) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
