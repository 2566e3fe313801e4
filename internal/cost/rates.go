package cost

import "github.com/shopspring/decimal"

// Rate prices one provider/operation pair. Token prices are per 1000 tokens;
// PerCall is a flat charge added once per call (search APIs bill this way).
type Rate struct {
	InputPer1K  decimal.Decimal
	OutputPer1K decimal.Decimal
	PerCall     decimal.Decimal
}

// RateTable is the pricing in effect when an entry is recorded. Entries keep
// a reference to the table version so costs stay explainable after a price
// change.
type RateTable struct {
	Version string
	rates   map[string]Rate
}

func NewRateTable(version string) *RateTable {
	return &RateTable{
		Version: version,
		rates:   make(map[string]Rate),
	}
}

func (t *RateTable) Set(provider, operation string, rate Rate) {
	t.rates[provider+"/"+operation] = rate
}

func (t *RateTable) Lookup(provider, operation string) (Rate, bool) {
	r, ok := t.rates[provider+"/"+operation]
	return r, ok
}

// Ref builds the rate reference stored on an entry.
func (t *RateTable) Ref(provider, operation string) string {
	return provider + "/" + operation + "@" + t.Version
}

// DefaultRateTable carries the launch pricing: Gemini Flash token rates and
// the Brave Search flat per-call price.
func DefaultRateTable() *RateTable {
	t := NewRateTable("2026-08")

	t.Set("gemini", "llm-completion", Rate{
		InputPer1K:  decimal.RequireFromString("0.000075"),
		OutputPer1K: decimal.RequireFromString("0.0003"),
	})
	t.Set("brave", "search", Rate{
		PerCall: decimal.RequireFromString("0.00083"),
	})
	// DuckDuckGo lite is free but calls are still ledgered.
	t.Set("duckduckgo", "search", Rate{})

	return t
}
