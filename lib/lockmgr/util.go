package lockmgr

import "github.com/google/uuid"

// OwnerID identifies the holder of a lock.
type OwnerID uuid.UUID

// NewOwnerID creates a new unique owner ID.
func NewOwnerID() OwnerID {
	return OwnerID(uuid.New())
}

func (o OwnerID) String() string {
	return uuid.UUID(o).String()
}
