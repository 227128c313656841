package memory

import (
	"context"
	"errors"
)

// ErrNotFound reports that no record exists for an identity. Callers must
// treat it as a normal, non-error case distinct from a store failure.
var ErrNotFound = errors.New("memory: record not found")

// Record is the durable memory for one conversation identity.
type Record struct {
	ID           string
	Summary      string
	Personality  string
	Model        string
	CustomPrompt string
}

// Store is the interface for persistent conversation records.
type Store interface {
	// Get loads the record for an identity, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)
	// Upsert writes the full record, creating or replacing by identity.
	Upsert(ctx context.Context, rec *Record) error
	// ListIDs returns every identity that has a record.
	ListIDs(ctx context.Context) ([]string, error)
	Close() error
}
