package device

import "context"

// Record is the persisted subset of a device: identity, display name,
// and topic names. Readings and liveness are runtime-only and are never
// written to the store.
type Record struct {
	ID             string
	Name           string
	SubscribeTopic string
	PublishTopic   string
}

// Store defines the interface for roster persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Store interface {
	// Get retrieves the record for a device ID.
	// Returns ErrDeviceNotFound if no record exists.
	Get(ctx context.Context, id string) (Record, error)

	// Put inserts or replaces the record for a device ID.
	Put(ctx context.Context, rec Record) error

	// Delete removes the record for a device ID.
	// Returns ErrDeviceNotFound if no record exists.
	Delete(ctx context.Context, id string) error

	// ListAll retrieves every persisted record.
	ListAll(ctx context.Context) ([]Record, error)
}
