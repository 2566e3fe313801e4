package cost

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testLedger() *Ledger {
	return NewLedger(NewMemoryRepository(), DefaultRateTable())
}

// --------------------------------------------------
// TESTS
// --------------------------------------------------

func TestRecord_TokenPricing(t *testing.T) {
	ledger := testLedger()

	entry, err := ledger.Record(context.Background(), "gemini", "llm-completion", "Seattle", 2000, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2000/1000 * 0.000075 + 1000/1000 * 0.0003 = 0.00045
	want := decimal.RequireFromString("0.00045")
	if !entry.ComputedCost.Equal(want) {
		t.Errorf("expected cost %s, got %s", want, entry.ComputedCost)
	}

	if entry.RateRef != "gemini/llm-completion@2026-08" {
		t.Errorf("unexpected rate ref %q", entry.RateRef)
	}
}

func TestRecord_FlatPerCallPricing(t *testing.T) {
	ledger := testLedger()

	entry, err := ledger.Record(context.Background(), "brave", "search", "Seattle", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := decimal.RequireFromString("0.00083")
	if !entry.ComputedCost.Equal(want) {
		t.Errorf("expected cost %s, got %s", want, entry.ComputedCost)
	}
}

func TestRecord_UnknownRate(t *testing.T) {
	ledger := testLedger()

	_, err := ledger.Record(context.Background(), "bing", "search", "Seattle", 10, 10)
	if !errors.Is(err, ErrUnknownRate) {
		t.Fatalf("expected ErrUnknownRate, got %v", err)
	}

	// The failed call must not have produced an entry.
	entries, _ := ledger.Entries(context.Background(), Filter{})
	if len(entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(entries))
	}
}

func TestTotal_EmptyLedgerIsZero(t *testing.T) {
	ledger := testLedger()

	total, err := ledger.Total(context.Background(), Filter{Provider: "gemini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.IsZero() {
		t.Errorf("expected zero total, got %s", total)
	}
}

func TestTotal_EqualsSumOfEntries(t *testing.T) {
	ledger := testLedger()
	ctx := context.Background()

	ledger.Record(ctx, "gemini", "llm-completion", "Seattle", 1000, 500)
	ledger.Record(ctx, "brave", "search", "Seattle", 0, 0)
	ledger.Record(ctx, "brave", "search", "Portland", 0, 0)
	ledger.RecordFailure(ctx, "brave", "search", "Seattle", "timeout")

	for _, filter := range []Filter{
		{},
		{Provider: "brave"},
		{City: "Seattle"},
		{Provider: "gemini", City: "Portland"},
	} {
		entries, err := ledger.Entries(ctx, filter)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.ComputedCost)
		}

		total, err := ledger.Total(ctx, filter)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !total.Equal(sum) {
			t.Errorf("filter %+v: total %s != entry sum %s", filter, total, sum)
		}
	}
}

func TestRecordFailure_ZeroCostWithTag(t *testing.T) {
	ledger := testLedger()

	entry, err := ledger.RecordFailure(context.Background(), "brave", "search", "Seattle", "http 500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !entry.ComputedCost.IsZero() {
		t.Errorf("expected zero cost, got %s", entry.ComputedCost)
	}
	if entry.ErrorTag != "http 500" {
		t.Errorf("expected error tag, got %q", entry.ErrorTag)
	}
	if entry.InputTokens != 0 || entry.OutputTokens != 0 {
		t.Error("expected zero token counts on failure entry")
	}
}

func TestEntries_OrderedByTimestamp(t *testing.T) {
	repo := NewMemoryRepository()
	ledger := NewLedger(repo, DefaultRateTable())
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 3; i >= 1; i-- {
		repo.Append(ctx, &Entry{
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			Provider:     "brave",
			Operation:    "search",
			City:         "Seattle",
			ComputedCost: decimal.Zero,
		})
	}

	entries, err := ledger.Entries(ctx, Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Fatal("entries not in ascending timestamp order")
		}
	}
}

func TestTotal_TimeRangeFilter(t *testing.T) {
	repo := NewMemoryRepository()
	ledger := NewLedger(repo, DefaultRateTable())
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		repo.Append(ctx, &Entry{
			Timestamp:    base.AddDate(0, 0, i),
			Provider:     "brave",
			Operation:    "search",
			City:         "Seattle",
			ComputedCost: decimal.RequireFromString("0.001"),
		})
	}

	total, err := ledger.Total(ctx, Filter{
		From: base.AddDate(0, 0, 1),
		To:   base.AddDate(0, 0, 2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := decimal.RequireFromString("0.002")
	if !total.Equal(want) {
		t.Errorf("expected %s, got %s", want, total)
	}
}

func TestClear(t *testing.T) {
	ledger := testLedger()
	ctx := context.Background()

	ledger.Record(ctx, "brave", "search", "Seattle", 0, 0)
	ledger.Record(ctx, "brave", "search", "Seattle", 0, 0)

	removed, err := ledger.Clear(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	total, _ := ledger.Total(ctx, Filter{})
	if !total.IsZero() {
		t.Errorf("expected zero total after clear, got %s", total)
	}
}
