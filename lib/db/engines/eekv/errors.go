package eekv

import (
	"fmt"

	"github.com/ValentinKolb/eeKV/lib/db"
)

func corruptedAt(off uint32, format string, args ...interface{}) error {
	return fmt.Errorf("%w: offset %d: %s", db.ErrCorrupted, off, fmt.Sprintf(format, args...))
}

func keyError(key db.Key) error {
	return fmt.Errorf("%w: 0x%02x is reserved", db.ErrInvalidKey, uint8(key))
}

func noObject(key db.Key) error {
	return fmt.Errorf("%w: key 0x%02x", db.ErrNoSuchObject, uint8(key))
}
