package bar

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrNotFound means the requested bar does not exist in the store.
	ErrNotFound = errors.New("bar not found")

	// ErrLockTimeout means the per-city writer lock could not be acquired
	// within the wait bound. Callers may retry.
	ErrLockTimeout = errors.New("timed out waiting for city write lock")
)

// Record is a confirmed cocktail bar. At most one record exists per
// (normalized name, city) pair; near-duplicate discoveries merge into the
// existing record instead of inserting a second row.
type Record struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	City           string    `json:"city"`
	Description    string    `json:"description,omitempty"`
	Website        string    `json:"website,omitempty"`
	MenuURL        string    `json:"menu_url,omitempty"`
	DiscoveredAt   time.Time `json:"discovered_at"`

	// SourceQueries is the ordered set of search queries that surfaced
	// this bar. Merges append, nothing ever removes.
	SourceQueries []string `json:"source_queries"`
}

// Stats summarizes the store for the stats endpoint and CLI.
type Stats struct {
	TotalBars  int              `json:"total_bars"`
	BarsByCity map[string]int   `json:"bars_by_city"`
	Recent     []*RecentDiscovery `json:"recent_discoveries"`
}

type RecentDiscovery struct {
	City         string    `json:"city"`
	Name         string    `json:"name"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// NormalizeName canonicalizes a bar name for matching: lower-cased,
// punctuation stripped, whitespace collapsed.
func NormalizeName(name string) string {
	var b strings.Builder
	lastSpace := true

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '/':
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// punctuation drops out entirely
		}
	}

	return strings.TrimSpace(b.String())
}

// appendQueries unions extra into queries, preserving first-seen order.
func appendQueries(queries []string, extra []string) []string {
	seen := make(map[string]bool, len(queries))
	for _, q := range queries {
		seen[q] = true
	}
	for _, q := range extra {
		if q == "" || seen[q] {
			continue
		}
		queries = append(queries, q)
		seen[q] = true
	}
	return queries
}
