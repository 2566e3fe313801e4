package bar

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository holds records in memory. Used by unit tests and as the
// store for database-less CLI experiments.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record // keyed by id
	seq     int64              // insertion counter for stable ordering
	order   map[string]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*Record),
		order:   make(map[string]int64),
	}
}

func (r *MemoryRepository) Insert(ctx context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneRecord(record)
	r.records[stored.ID] = stored
	r.seq++
	r.order[stored.ID] = r.seq
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[record.ID]; !ok {
		return ErrNotFound
	}
	r.records[record.ID] = cloneRecord(record)
	return nil
}

func (r *MemoryRepository) ListByCity(ctx context.Context, city string) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Record
	for _, rec := range r.records {
		if rec.City == city {
			out = append(out, cloneRecord(rec))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return r.order[out[i].ID] < r.order[out[j].ID]
	})

	return out, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, city, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok || rec.City != city {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r *MemoryRepository) DeleteByCity(ctx context.Context, city string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, rec := range r.records {
		if rec.City == city {
			delete(r.records, id)
			delete(r.order, id)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := int64(len(r.records))
	r.records = make(map[string]*Record)
	r.order = make(map[string]int64)
	return removed, nil
}

func (r *MemoryRepository) Stats(ctx context.Context) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{BarsByCity: make(map[string]int)}

	all := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		stats.TotalBars++
		stats.BarsByCity[rec.City]++
		all = append(all, rec)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].DiscoveredAt.After(all[j].DiscoveredAt)
	})
	for i, rec := range all {
		if i == 5 {
			break
		}
		stats.Recent = append(stats.Recent, &RecentDiscovery{
			City:         rec.City,
			Name:         rec.Name,
			DiscoveredAt: rec.DiscoveredAt,
		})
	}

	return stats, nil
}

func cloneRecord(rec *Record) *Record {
	copied := *rec
	copied.SourceQueries = append([]string(nil), rec.SourceQueries...)
	return &copied
}
