package store

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/eeKV/lib/db"
	"github.com/ValentinKolb/eeKV/lib/emeeprom"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new, uninitialized db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() db.ObjectDB

// Device describes how a store initializes its database.
type Device struct {
	Redundant          bool   // mirror every row of the emulated EEPROM
	WearLevelingFactor uint32 // rows per logical row of the emulated EEPROM (1 disables wear leveling)
}

// IStore is the generic interface for interacting with an object store.
// All operations return a *Error (nil on success) as error.
type IStore interface {
	// Store creates or replaces the object with the given key.
	Store(key db.Key, value []byte) (err error)
	// Get returns the payload of an object. The boolean return value indicates whether the object was found.
	Get(key db.Key) (value []byte, loaded bool, err error)
	// Find returns the location of an object in the log. The boolean return value indicates whether the object was found.
	Find(key db.Key) (info db.ObjectInfo, loaded bool, err error)
	// Delete removes an object. Deleting a missing object fails with RetCNoSuchObject.
	Delete(key db.Key) (err error)
	// List returns all objects in log order.
	List() (objects []db.ObjectInfo, err error)
	// Format removes all objects.
	Format() (err error)
	// Erase erases the device. The store is unformatted until the next Format.
	Erase() (err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the db error matching the return code, so errors.Is(err, db.ErrNoSuchObject)
// holds for errors that crossed the wire.
func (e *Error) Unwrap() error {
	for _, m := range codeMapping {
		if m.code == e.Code {
			return m.err
		}
	}
	return nil
}

// NewError creates a new StoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// FromError converts an error of the db or emeeprom package into a *Error.
// It returns nil for a nil error and passes *Error values through.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	for _, m := range codeMapping {
		if errors.Is(err, m.err) {
			return NewError(m.code, err.Error())
		}
	}
	return NewError(RetCInternalError, err.Error())
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCNoSuchObject                        // 4: The key is not stored.
	RetCInvalidKey                          // 5: The key is reserved.
	RetCNoSpace                             // 6: The object does not fit into the store.
	RetCPartialRead                         // 7: The buffer was smaller than the object.
	RetCNotInitialized                      // 8: The store was never initialized.
	RetCStoreUnformatted                    // 9: The store carries no log.
	RetCCorrupted                           // 10: The log is damaged.
	RetCSizeMismatch                        // 11: The object changed size during a re-insert.
	RetCBadParam                            // 12: Invalid parameter.
	RetCBadChecksum                         // 13: The device returned data failing its checksum.
	RetCWriteFail                           // 14: The device failed to program or erase a row.
	RetCRedundantCopyUsed                   // 15: The data is valid but was served by the redundant copy.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNoSuchObject:
		return "NoSuchObject"
	case RetCInvalidKey:
		return "InvalidKey"
	case RetCNoSpace:
		return "NoSpace"
	case RetCPartialRead:
		return "PartialRead"
	case RetCNotInitialized:
		return "NotInitialized"
	case RetCStoreUnformatted:
		return "StoreUnformatted"
	case RetCCorrupted:
		return "Corrupted"
	case RetCSizeMismatch:
		return "SizeMismatch"
	case RetCBadParam:
		return "BadParam"
	case RetCBadChecksum:
		return "BadChecksum"
	case RetCWriteFail:
		return "WriteFail"
	case RetCRedundantCopyUsed:
		return "RedundantCopyUsed"
	default:
		return fmt.Sprintf("Unknown(%d)", uint64(c))
	}
}

var codeMapping = []struct {
	code RetCode
	err  error
}{
	{RetCNoSuchObject, db.ErrNoSuchObject},
	{RetCInvalidKey, db.ErrInvalidKey},
	{RetCNoSpace, db.ErrNoSpace},
	{RetCPartialRead, db.ErrPartialRead},
	{RetCNotInitialized, db.ErrNotInitialized},
	{RetCStoreUnformatted, db.ErrStoreUnformatted},
	{RetCCorrupted, db.ErrCorrupted},
	{RetCSizeMismatch, db.ErrSizeMismatch},
	{RetCBadParam, db.ErrBadParam},
	{RetCBadChecksum, emeeprom.ErrBadChecksum},
	{RetCWriteFail, emeeprom.ErrWriteFail},
	{RetCRedundantCopyUsed, emeeprom.ErrRedundantCopyUsed},
	{RetCBadParam, emeeprom.ErrBadParam},
	{RetCBadParam, emeeprom.ErrBadData},
}
