package cost

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownRate means no rate is configured for a provider/operation pair.
	// Fatal to the single Record call, never to the run.
	ErrUnknownRate = errors.New("no rate configured for provider/operation")
)

// Entry is one priced external call. Entries are append-only: retries and
// failures get their own rows, nothing is ever overwritten.
type Entry struct {
	ID           int64           `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Provider     string          `json:"provider"`
	Operation    string          `json:"operation"` // "search" | "llm-completion"
	City         string          `json:"city"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	RateRef      string          `json:"rate_ref"` // provider/operation@table-version
	ComputedCost decimal.Decimal `json:"computed_cost"`
	ErrorTag     string          `json:"error_tag,omitempty"`
}

// Filter narrows Total and Entries queries. Zero values mean "no constraint".
type Filter struct {
	Provider string
	City     string
	From     time.Time
	To       time.Time
}

// Matches reports whether e passes the filter. Shared by the memory
// repository and tests; the postgres repository applies the same logic in SQL.
func (f Filter) Matches(e *Entry) bool {
	if f.Provider != "" && e.Provider != f.Provider {
		return false
	}
	if f.City != "" && e.City != f.City {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}
