package cost

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryRepository backs the ledger in tests and ad-hoc runs without a
// database. Same contract as the postgres repository.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*Entry
	nextID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *entry
	stored.ID = r.nextID
	r.nextID++
	r.entries = append(r.entries, &stored)

	entry.ID = stored.ID
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Entry
	for _, e := range r.entries {
		if filter.Matches(e) {
			copied := *e
			out = append(out, &copied)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return out, nil
}

func (r *MemoryRepository) SumCost(ctx context.Context, filter Filter) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := decimal.Zero
	for _, e := range r.entries {
		if filter.Matches(e) {
			total = total.Add(e.ComputedCost)
		}
	}
	return total, nil
}

func (r *MemoryRepository) Clear(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := int64(len(r.entries))
	r.entries = nil
	return removed, nil
}
