package internal

import "github.com/ValentinKolb/eeKV/lib/db"

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTGet       QueryType = iota // Retrieve the payload of an object.
	QueryTFind                       // Locate an object in the log.
	QueryTList                       // List all objects.
	QueryTGetDBInfo                  // Retrieve metadata about the database underlying the machine.
)

func (q QueryType) String() string {
	switch q {
	case QueryTGet:
		return "Get"
	case QueryTFind:
		return "Find"
	case QueryTList:
		return "List"
	case QueryTGetDBInfo:
		return "GetDBInfo"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or ReadStale
type Query struct {
	Type QueryType // The type of Query to perform.
	Key  db.Key    // The key for the Query (ignored by List and GetDBInfo).
}

// QueryResult is the result of QueryTGet and QueryTFind.
// List and GetDBInfo return []db.ObjectInfo and db.DatabaseInfo.
type QueryResult struct {
	Ok    bool
	Value []byte
	Info  db.ObjectInfo
}
