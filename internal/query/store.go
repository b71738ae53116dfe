package query

import (
	"context"
	"errors"
)

// Common store error types
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrUnknownKind is returned when a selector names a kind the registry
	// does not have
	ErrUnknownKind = errors.New("unknown resource kind")

	// ErrUniqueViolation is returned when a write would duplicate a unique
	// field value
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrUnavailable is returned when the underlying store cannot be
	// reached at all. It is not recoverable at this layer and must surface
	// upward untranslated.
	ErrUnavailable = errors.New("store unavailable")
)

// ListOptions narrows and orders a collection read. Offset/Limit paginate;
// a zero Limit means no pagination. Filter entries match field values by
// accent-insensitive substring; Search matches the same way across all
// text fields of the kind.
type ListOptions struct {
	Offset   int
	Limit    int
	Filter   map[string]string
	Search   string
	SortBy   string
	SortDesc bool
}

// Snapshot is one consistent read view of the store. All reads that build
// one resolved graph go through a single snapshot so concurrent writes are
// never observed partially. Callers must Close the snapshot when done.
type Snapshot interface {
	// Get fetches a single record by identifier. Returns ErrNotFound when
	// no record exists.
	Get(ctx context.Context, kind, id string) (map[string]interface{}, error)

	// List fetches records of a kind in insertion order, returning the
	// page and the total count before pagination.
	List(ctx context.Context, kind string, opts ListOptions) ([]map[string]interface{}, int, error)

	// ListByRef fetches records of a kind whose reference field refField
	// holds parentID, in insertion order, with the total before
	// pagination.
	ListByRef(ctx context.Context, kind, refField, parentID string, opts ListOptions) ([]map[string]interface{}, int, error)

	// Close releases the snapshot
	Close() error
}

// Store is the read surface of the underlying data store
type Store interface {
	// Snapshot opens a consistent read view
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Writer is the write surface of the underlying data store. Writes happen
// outside of snapshots; each call is atomic on its own.
type Writer interface {
	// Insert stores a new record. Returns ErrUniqueViolation when a unique
	// field collides.
	Insert(ctx context.Context, kind string, record map[string]interface{}) error

	// Update replaces the stored fields of an existing record. Returns
	// ErrNotFound when the record does not exist.
	Update(ctx context.Context, kind, id string, record map[string]interface{}) error

	// Delete removes a record. Returns ErrNotFound when it does not exist.
	Delete(ctx context.Context, kind, id string) error

	// FindByField fetches a single record by an exact field value, for
	// unique-field lookups. Returns ErrNotFound when no record matches.
	FindByField(ctx context.Context, kind, field string, value interface{}) (map[string]interface{}, error)
}

// MutableStore combines the read and write surfaces
type MutableStore interface {
	Store
	Writer
}
