package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Key returns the 16 raw bytes of id for binding as a BLOB/BYTEA value.
// uuid.UUID's own driver.Valuer produces the textual form, which would
// break byte ordering, so ids are never bound directly.
func Key(id uuid.UUID) []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}

// OptKey is Key for optional columns; nil binds NULL.
func OptKey(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return Key(*id)
}

// Keys converts a list of ids into bind arguments.
func Keys(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = Key(id)
	}
	return out
}

// ParseKey converts a scanned BLOB back into an id.
func ParseKey(b []byte) (uuid.UUID, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad key of %d bytes: %w", len(b), err)
	}
	return id, nil
}

// ParseOptKey is ParseKey for nullable columns.
func ParseOptKey(b []byte) (*uuid.UUID, error) {
	if b == nil {
		return nil, nil
	}
	id, err := ParseKey(b)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// NewFileID returns a time-ordered key (UUIDv7), so byte order follows
// creation order and "newest first" by key means newest created.
func NewFileID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
