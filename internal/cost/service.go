package cost

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger prices external calls against the rate table and appends them to
// the repository. Totals are always aggregated from the stored entries;
// there is no running counter to drift or to lose on a crash.
type Ledger struct {
	repo  Repository
	rates *RateTable
}

func NewLedger(repo Repository, rates *RateTable) *Ledger {
	return &Ledger{repo: repo, rates: rates}
}

var per1K = decimal.NewFromInt(1000)

// --------------------------------------------------
// Record a priced call
// --------------------------------------------------
func (l *Ledger) Record(
	ctx context.Context,
	provider string,
	operation string,
	city string,
	inputTokens int,
	outputTokens int,
) (*Entry, error) {

	rate, ok := l.rates.Lookup(provider, operation)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownRate, provider, operation)
	}

	inputCost := decimal.NewFromInt(int64(inputTokens)).Div(per1K).Mul(rate.InputPer1K)
	outputCost := decimal.NewFromInt(int64(outputTokens)).Div(per1K).Mul(rate.OutputPer1K)
	computed := inputCost.Add(outputCost).Add(rate.PerCall)

	entry := &Entry{
		Timestamp:    time.Now().UTC(),
		Provider:     provider,
		Operation:    operation,
		City:         city,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		RateRef:      l.rates.Ref(provider, operation),
		ComputedCost: computed,
	}

	if err := l.repo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// --------------------------------------------------
// Record a failed call (zero tokens, zero cost)
// --------------------------------------------------
// Failures are still ledgered so spend accounting never silently skips a
// call; the error tag says why no tokens were billed.
func (l *Ledger) RecordFailure(
	ctx context.Context,
	provider string,
	operation string,
	city string,
	errorTag string,
) (*Entry, error) {

	entry := &Entry{
		Timestamp:    time.Now().UTC(),
		Provider:     provider,
		Operation:    operation,
		City:         city,
		RateRef:      l.rates.Ref(provider, operation),
		ComputedCost: decimal.Zero,
		ErrorTag:     errorTag,
	}

	if err := l.repo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// --------------------------------------------------
// Aggregation
// --------------------------------------------------
func (l *Ledger) Total(ctx context.Context, filter Filter) (decimal.Decimal, error) {
	return l.repo.SumCost(ctx, filter)
}

func (l *Ledger) Entries(ctx context.Context, filter Filter) ([]*Entry, error) {
	return l.repo.List(ctx, filter)
}

// Clear wipes the ledger. Destructive; exposed for the clean-logs command.
func (l *Ledger) Clear(ctx context.Context) (int64, error) {
	return l.repo.Clear(ctx)
}

// Breakdown sums cost per provider over matching entries, for the usage
// report.
func (l *Ledger) Breakdown(ctx context.Context, filter Filter) (map[string]decimal.Decimal, error) {
	entries, err := l.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal)
	for _, e := range entries {
		out[e.Provider] = out[e.Provider].Add(e.ComputedCost)
	}
	return out, nil
}
