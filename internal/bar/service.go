package bar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLockWait bounds how long a writer waits for a city's lock before
// giving up with ErrLockTimeout.
const DefaultLockWait = 5 * time.Second

// Store is the duplicate-aware bar collection. All writes for a city go
// through the city's exclusive lock: the scan-match-write sequence inside
// Upsert is a check-then-act race if two writers interleave, so callers only
// ever see a single atomic "find best match or create".
type Store struct {
	repo     Repository
	locks    *cityLocks
	lockWait time.Duration
}

func NewStore(repo Repository) *Store {
	return &Store{
		repo:     repo,
		locks:    newCityLocks(),
		lockWait: DefaultLockWait,
	}
}

// UpsertResult reports whether the candidate became a new record or merged
// into an existing one.
type UpsertResult struct {
	Bar    *Record `json:"bar"`
	Merged bool    `json:"merged"`
}

// --------------------------------------------------
// Upsert: find-best-match-or-create, atomic per city
// --------------------------------------------------
func (s *Store) Upsert(ctx context.Context, candidate *Record) (*UpsertResult, error) {
	if candidate.Name == "" {
		return nil, fmt.Errorf("candidate has no name")
	}
	if candidate.City == "" {
		return nil, fmt.Errorf("candidate has no city")
	}

	if err := s.locks.acquire(ctx, candidate.City, s.lockWait); err != nil {
		return nil, err
	}
	defer s.locks.release(candidate.City)

	candidate.NormalizedName = NormalizeName(candidate.Name)

	existing, err := s.repo.ListByCity(ctx, candidate.City)
	if err != nil {
		return nil, err
	}

	var best *Record
	bestScore := 0.0
	for _, rec := range existing {
		if score := Score(candidate, rec); score > bestScore {
			best = rec
			bestScore = score
		}
	}

	if best != nil && ShouldMerge(bestScore) {
		merge(best, candidate)
		if err := s.repo.Update(ctx, best); err != nil {
			return nil, err
		}
		return &UpsertResult{Bar: best, Merged: true}, nil
	}

	record := &Record{
		ID:             uuid.NewString(),
		Name:           candidate.Name,
		NormalizedName: candidate.NormalizedName,
		City:           candidate.City,
		Description:    candidate.Description,
		Website:        candidate.Website,
		MenuURL:        candidate.MenuURL,
		DiscoveredAt:   time.Now().UTC(),
		SourceQueries:  appendQueries(nil, candidate.SourceQueries),
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, err
	}
	return &UpsertResult{Bar: record, Merged: false}, nil
}

// merge unions the candidate into the existing record: existing non-empty
// fields win, queries append as an ordered set.
func merge(existing, candidate *Record) {
	if existing.Description == "" {
		existing.Description = candidate.Description
	}
	if existing.Website == "" {
		existing.Website = candidate.Website
	}
	if existing.MenuURL == "" {
		existing.MenuURL = candidate.MenuURL
	}
	existing.SourceQueries = appendQueries(existing.SourceQueries, candidate.SourceQueries)
}

// --------------------------------------------------
// Reads (no lock, consistent snapshot from the repo)
// --------------------------------------------------
func (s *Store) List(ctx context.Context, city string) ([]*Record, error) {
	return s.repo.ListByCity(ctx, city)
}

func (s *Store) Get(ctx context.Context, city, id string) (*Record, error) {
	return s.repo.GetByID(ctx, city, id)
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

// --------------------------------------------------
// Menu write-back (menu scraper collaborator)
// --------------------------------------------------
func (s *Store) UpdateMenuInfo(ctx context.Context, city, id, menuURL string) (*Record, error) {
	if err := s.locks.acquire(ctx, city, s.lockWait); err != nil {
		return nil, err
	}
	defer s.locks.release(city)

	rec, err := s.repo.GetByID(ctx, city, id)
	if err != nil {
		return nil, err
	}

	rec.MenuURL = menuURL
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// --------------------------------------------------
// Reset (destructive, fails loudly under contention)
// --------------------------------------------------
func (s *Store) Reset(ctx context.Context, city string) (int64, error) {
	if city == "" {
		return s.resetAll(ctx)
	}

	if err := s.locks.acquire(ctx, city, s.lockWait); err != nil {
		return 0, err
	}
	defer s.locks.release(city)

	return s.repo.DeleteByCity(ctx, city)
}

func (s *Store) resetAll(ctx context.Context) (int64, error) {
	release, err := s.locks.acquireAll(ctx, s.lockWait)
	if err != nil {
		return 0, err
	}
	defer release()

	return s.repo.DeleteAll(ctx)
}

// --------------------------------------------------
// Per-city locks
// --------------------------------------------------

// cityLocks hands out one-slot semaphores keyed by city so acquisition can
// carry a wait bound (sync.Mutex can't time out).
type cityLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newCityLocks() *cityLocks {
	return &cityLocks{slots: make(map[string]chan struct{})}
}

func (c *cityLocks) slot(city string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot, ok := c.slots[city]
	if !ok {
		slot = make(chan struct{}, 1)
		c.slots[city] = slot
	}
	return slot
}

func (c *cityLocks) acquire(ctx context.Context, city string, wait time.Duration) error {
	slot := c.slot(city)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: city %q", ErrLockTimeout, city)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *cityLocks) release(city string) {
	<-c.slot(city)
}

// acquireAll locks every known city for a full reset. Cities are taken in a
// single pass under the map lock so no new slot can sneak in between.
func (c *cityLocks) acquireAll(ctx context.Context, wait time.Duration) (func(), error) {
	c.mu.Lock()
	cities := make([]string, 0, len(c.slots))
	for city := range c.slots {
		cities = append(cities, city)
	}
	c.mu.Unlock()

	var held []string
	releaseHeld := func() {
		for _, city := range held {
			c.release(city)
		}
	}

	for _, city := range cities {
		if err := c.acquire(ctx, city, wait); err != nil {
			releaseHeld()
			return nil, err
		}
		held = append(held, city)
	}

	return releaseHeld, nil
}
