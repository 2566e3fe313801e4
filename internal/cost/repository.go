package cost

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// Append durably commits one entry and fills in its ID.
	// A single entry is committed atomically: a crash mid-call either
	// keeps the whole row or none of it.
	Append(ctx context.Context, entry *Entry) error

	// List returns matching entries ordered by timestamp ascending.
	List(ctx context.Context, filter Filter) ([]*Entry, error)

	// SumCost aggregates computed_cost over matching entries.
	// An empty result set sums to zero.
	SumCost(ctx context.Context, filter Filter) (decimal.Decimal, error)

	// Clear removes all entries and returns the removed count.
	Clear(ctx context.Context) (int64, error)
}
