package db

import (
	"errors"
	"io"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplEEKV Implementation = "eekv"
)

// Key identifies an object. SentinelKey is reserved as the end-of-log marker.
type Key uint8

const SentinelKey Key = 0xFF

// Valid reports whether k can be used to store an object.
func (k Key) Valid() bool {
	return k != SentinelKey
}

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureStore  Feature = 1 << iota // Support for Store operations
	FeatureFind                       // Support for Find operations
	FeatureRead                       // Support for Read and Get operations
	FeatureDelete                     // Support for Delete operations
	FeatureList                       // Support for List operations
	FeatureFormat                     // Support for Format operations
	FeatureErase                      // Support for Erase operations
	FeatureSave                       // Support for Save operations
	FeatureLoad                       // Support for Load operations
)

func (f Feature) String() string {
	switch f {
	case FeatureStore:
		return "Store"
	case FeatureFind:
		return "Find"
	case FeatureRead:
		return "Read"
	case FeatureDelete:
		return "Delete"
	case FeatureList:
		return "List"
	case FeatureFormat:
		return "Format"
	case FeatureErase:
		return "Erase"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	default:
		return "Unknown"
	}
}

// ObjectInfo locates one object inside the store.
type ObjectInfo struct {
	Key    Key    `json:"key" yaml:"key"`
	Offset uint32 `json:"offset" yaml:"offset"` // byte offset of the entry header
	Size   uint32 `json:"size" yaml:"size"`     // payload size
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes" yaml:"size_bytes"`
	UsedBytes         int            `json:"used_bytes" yaml:"used_bytes"`
	Objects           int            `json:"objects" yaml:"objects"`
	DbType            Implementation `json:"db_type" yaml:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features" yaml:"supported_features"`
	Metadata          interface{}    `json:"metadata" yaml:"metadata"`
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	ErrNoSuchObject     = errors.New("no such object")
	ErrInvalidKey       = errors.New("invalid key")
	ErrNoSpace          = errors.New("no space left in store")
	ErrPartialRead      = errors.New("buffer smaller than object, read truncated")
	ErrNotInitialized   = errors.New("store not initialized")
	ErrStoreUnformatted = errors.New("store not formatted")
	ErrCorrupted        = errors.New("store log corrupted")
	ErrSizeMismatch     = errors.New("object size changed during re-insert")
	ErrBadParam         = errors.New("invalid parameter")
)

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// ObjectDB defines an interface for small object stores addressed by single byte keys.
// Objects are kept in a flat log: [signature][entry]*[sentinel], with
// entry = [key:1][length:4][payload:length].
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type ObjectDB interface {

	// --------------------------------------------------------------------------
	// Lifecycle Operations
	// --------------------------------------------------------------------------

	// Initialize prepares the underlying byte store. A second call on an initialized
	// store does not recreate it but formats the store if it is unformatted.
	Initialize(redundant bool, wearLevelingFactor uint32) (err error)

	// Format writes an empty log, removing every object.
	Format() (err error)

	// Erase physically erases the underlying store. The store is unformatted afterwards.
	Erase() (err error)

	// --------------------------------------------------------------------------
	// Object Operations
	// --------------------------------------------------------------------------

	// Find returns the location and payload size of the object with the given key.
	Find(key Key) (offset, size uint32, err error)

	// Store creates or replaces an object. Objects keeping their size are rewritten in
	// place, objects changing size are deleted and appended again.
	Store(key Key, value []byte) (err error)

	// Read copies up to len(buf) payload bytes into buf. If buf is smaller than the
	// object the first len(buf) bytes are copied and ErrPartialRead is returned.
	Read(key Key, buf []byte) (n int, err error)

	// Get returns the whole payload of an object.
	Get(key Key) (value []byte, err error)

	// Delete removes an object and compacts the log behind it.
	Delete(key Key) (err error)

	// List returns all objects in log order.
	List() (objects []ObjectInfo, err error)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save writes all objects to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load replaces the contents of the store with the objects provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close closes the database.
	Close() (err error)
}
