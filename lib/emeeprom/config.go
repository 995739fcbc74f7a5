package emeeprom

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxWearLevelingFactor is the largest supported wear leveling factor.
	MaxWearLevelingFactor = 10
	// MinRowSize is the smallest row size usable in extended mode.
	MinRowSize = 64

	DefaultPollInterval     = time.Millisecond
	DefaultMaxWriteDuration = 50 * time.Millisecond
)

// Config describes an emulated EEPROM.
type Config struct {
	// EepromSize is the size of the logical address space in bytes.
	EepromSize uint32
	// SimpleMode disables headers, checksums, wear leveling and redundancy.
	SimpleMode bool
	// WearLevelingFactor multiplies the rows used by the log (1 disables wear leveling).
	WearLevelingFactor uint32
	// RedundantCopy mirrors every row into a second area.
	RedundantCopy bool
	// BlockingWrite selects the blocking row store calls. Otherwise rows are written
	// through the polled interface, which the store must implement.
	BlockingWrite bool
	// StartAddr is the absolute, row aligned flash address of the first row.
	StartAddr uint32

	// PollInterval is the pause between two polls in polled mode.
	PollInterval time.Duration
	// MaxWriteDuration bounds the wait for one polled program or erase. An operation
	// that exceeds it fails with WriteFail; the next operation first waits up to
	// MaxWriteDuration for it again and fails as well if the flash is still busy.
	MaxWriteDuration time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxWriteDuration <= 0 {
		c.MaxWriteDuration = DefaultMaxWriteDuration
	}
	if c.SimpleMode {
		c.WearLevelingFactor = 1
		c.RedundantCopy = false
	}
	return c
}

// PhysicalSize returns the number of flash bytes an engine with cfg occupies on a
// store with the given row size.
func PhysicalSize(cfg Config, rowSize uint32) uint64 {
	cfg = cfg.withDefaults()
	if rowSize == 0 {
		return 0
	}
	if cfg.SimpleMode {
		return uint64(ceilDiv(cfg.EepromSize, rowSize)) * uint64(rowSize)
	}
	size := uint64(ceilDiv(cfg.EepromSize, rowSize/2)) * uint64(rowSize) * uint64(cfg.WearLevelingFactor)
	if cfg.RedundantCopy {
		size *= 2
	}
	return size
}

func (c Config) String() string {
	var b strings.Builder
	mode := "extended"
	if c.SimpleMode {
		mode = "simple"
	}
	fmt.Fprintf(&b, "size=%d mode=%s wlf=%d redundant=%v blocking=%v start=0x%08x",
		c.EepromSize, mode, c.WearLevelingFactor, c.RedundantCopy, c.BlockingWrite, c.StartAddr)
	return b.String()
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return uint32((uint64(a) + uint64(b) - 1) / uint64(b))
}
