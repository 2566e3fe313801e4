package bar

import "context"

type Repository interface {
	// Insert stores a new record. IDs are assigned by the caller.
	Insert(ctx context.Context, record *Record) error

	// Update rewrites a record in place (merge result).
	Update(ctx context.Context, record *Record) error

	// ListByCity returns a city's records in insertion order
	// (discovered_at ascending, id as tie-break).
	ListByCity(ctx context.Context, city string) ([]*Record, error)

	// GetByID returns a single record or ErrNotFound.
	GetByID(ctx context.Context, city, id string) (*Record, error)

	// DeleteByCity removes a city's records and returns the count.
	DeleteByCity(ctx context.Context, city string) (int64, error)

	// DeleteAll wipes the store and returns the count.
	DeleteAll(ctx context.Context) (int64, error)

	// Stats aggregates totals, per-city counts and recent discoveries.
	Stats(ctx context.Context) (*Stats, error)
}
