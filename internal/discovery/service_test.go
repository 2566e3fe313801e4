package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jadenstock/CocktailScraper/internal/bar"
	"github.com/jadenstock/CocktailScraper/internal/cost"
	"github.com/jadenstock/CocktailScraper/internal/llm"
	"github.com/jadenstock/CocktailScraper/internal/search"
)

// --------------------------------------------------
// Fakes
// --------------------------------------------------

type fakeSearch struct {
	results  map[string][]search.Result
	failures map[string]int // fail the first N calls for a query
	failErr  error
	calls    int
}

func (f *fakeSearch) Name() string { return "brave" }

func (f *fakeSearch) Search(ctx context.Context, query string) ([]search.Result, error) {
	f.calls++
	if f.failures[query] > 0 {
		f.failures[query]--
		if f.failErr != nil {
			return nil, f.failErr
		}
		return nil, errors.New("http 500")
	}
	return f.results[query], nil
}

type fakeLLM struct {
	queries  []string          // response to the query-generation prompt
	extracts map[string]string // keyed by a substring of the search snippet
	queryErr error
	calls    int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, llm.Usage, error) {
	f.calls++
	usage := llm.Usage{InputTokens: 100, OutputTokens: 50}

	if strings.Contains(prompt, "search query generator") {
		if f.queryErr != nil {
			return "", llm.Usage{}, f.queryErr
		}
		raw, _ := json.Marshal(map[string]any{"queries": f.queries})
		return string(raw), usage, nil
	}

	for key, raw := range f.extracts {
		if strings.Contains(prompt, key) {
			return raw, usage, nil
		}
	}
	return `{"bars": []}`, usage, nil
}

func result(snippet string) []search.Result {
	return []search.Result{{Title: "hit", URL: "https://example.com", Snippet: snippet}}
}

func bars(names ...string) string {
	list := make([]map[string]string, 0, len(names))
	for _, n := range names {
		list = append(list, map[string]string{"name": n})
	}
	raw, _ := json.Marshal(map[string]any{"bars": list})
	return string(raw)
}

func newTestService(provider search.Provider, model llm.Client) (*Service, *bar.Store, *cost.Ledger) {
	store := bar.NewStore(bar.NewMemoryRepository())
	ledger := cost.NewLedger(cost.NewMemoryRepository(), cost.DefaultRateTable())

	svc := NewService(store, ledger, provider, model)
	svc.backoff = time.Millisecond
	return svc, store, ledger
}

// --------------------------------------------------
// TESTS
// --------------------------------------------------

func TestDiscover_SeattleScenario(t *testing.T) {
	// 4 candidates across two queries, two of them near-duplicates:
	// target 3 yields exactly 3 stored bars, the merged one carrying
	// both source queries.
	provider := &fakeSearch{
		results: map[string][]search.Result{
			"q1": result("RESULTS-ONE"),
			"q2": result("RESULTS-TWO"),
		},
	}
	model := &fakeLLM{
		queries: []string{"q1", "q2"},
		extracts: map[string]string{
			"RESULTS-ONE": bars("The Tipsy Gull", "Canon"),
			"RESULTS-TWO": bars("Tipsy Gull Bar", "Attaboy"),
		},
	}

	svc, store, _ := newTestService(provider, model)

	report, err := svc.Discover(context.Background(), "Seattle", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Bars) != 3 {
		t.Fatalf("expected 3 distinct bars, got %d", len(report.Bars))
	}
	if report.Inserted != 3 || report.Merged != 1 {
		t.Errorf("expected 3 inserted + 1 merged, got %d/%d", report.Inserted, report.Merged)
	}

	stored, _ := store.List(context.Background(), "Seattle")
	if len(stored) != 3 {
		t.Fatalf("expected 3 stored records, got %d", len(stored))
	}

	var mergedQueries int
	for _, rec := range stored {
		if len(rec.SourceQueries) == 2 {
			mergedQueries++
		}
	}
	if mergedQueries != 1 {
		t.Errorf("expected exactly one bar with two source queries, got %d", mergedQueries)
	}
}

func TestDiscover_ListReturnsRunResultsInOrder(t *testing.T) {
	provider := &fakeSearch{
		results: map[string][]search.Result{"q1": result("RESULTS-ONE")},
	}
	model := &fakeLLM{
		queries:  []string{"q1"},
		extracts: map[string]string{"RESULTS-ONE": bars("Attaboy", "Canon", "Death & Co")},
	}

	svc, store, _ := newTestService(provider, model)

	report, err := svc.Discover(context.Background(), "Seattle", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := store.List(context.Background(), "Seattle")
	if len(stored) != len(report.Bars) {
		t.Fatalf("store has %d bars, report has %d", len(stored), len(report.Bars))
	}
	for i := range stored {
		if stored[i].ID != report.Bars[i].ID {
			t.Errorf("stored[%d] != report.Bars[%d] (insertion order broken)", i, i)
		}
	}
}

func TestDiscover_EveryCallLedgeredIncludingRetries(t *testing.T) {
	provider := &fakeSearch{
		results:  map[string][]search.Result{"q1": result("RESULTS-ONE")},
		failures: map[string]int{"q1": 2}, // two failures, then success
	}
	model := &fakeLLM{
		queries:  []string{"q1"},
		extracts: map[string]string{"RESULTS-ONE": bars("Canon")},
	}

	svc, _, ledger := newTestService(provider, model)

	if _, err := svc.Discover(context.Background(), "Seattle", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, _ := ledger.Entries(context.Background(), cost.Filter{Provider: "brave"})
	if len(entries) != 3 {
		t.Fatalf("expected 3 search entries (2 failed + 1 ok), got %d", len(entries))
	}

	var failed int
	for _, e := range entries {
		if e.ErrorTag != "" {
			failed++
			if !e.ComputedCost.IsZero() {
				t.Error("failed call must cost zero")
			}
			if e.InputTokens != 0 || e.OutputTokens != 0 {
				t.Error("failed call must have zero tokens")
			}
		}
	}
	if failed != 2 {
		t.Errorf("expected 2 failure entries, got %d", failed)
	}

	// One query-generation call plus one extraction call.
	llmEntries, _ := ledger.Entries(context.Background(), cost.Filter{Provider: "gemini"})
	if len(llmEntries) != 2 {
		t.Errorf("expected 2 llm entries, got %d", len(llmEntries))
	}
}

func TestDiscover_SearchAuthFailureFailsRun(t *testing.T) {
	provider := &fakeSearch{
		failures: map[string]int{"q1": 1, "q2": 1},
		failErr:  fmt.Errorf("%w: brave http 401", search.ErrUnauthorized),
	}
	model := &fakeLLM{queries: []string{"q1", "q2"}}

	svc, _, ledger := newTestService(provider, model)

	report, err := svc.Discover(context.Background(), "Seattle", 3)
	if !errors.Is(err, ErrCollaboratorUnavailable) {
		t.Fatalf("expected ErrCollaboratorUnavailable, got %v", err)
	}
	if report == nil || report.State != StateFailed {
		t.Fatal("expected a failed report alongside the error")
	}

	// The failed call was still ledgered.
	entries, _ := ledger.Entries(context.Background(), cost.Filter{Provider: "brave"})
	if len(entries) != 1 {
		t.Errorf("expected 1 ledgered failure, got %d", len(entries))
	}
}

func TestDiscover_LLMAuthFailureFailsRun(t *testing.T) {
	provider := &fakeSearch{}
	model := &fakeLLM{queryErr: fmt.Errorf("%w: no key", llm.ErrUnauthorized)}

	svc, _, _ := newTestService(provider, model)

	_, err := svc.Discover(context.Background(), "Seattle", 3)
	if !errors.Is(err, ErrCollaboratorUnavailable) {
		t.Fatalf("expected ErrCollaboratorUnavailable, got %v", err)
	}
}

func TestDiscover_QueryGenerationFallsBackToTemplates(t *testing.T) {
	provider := &fakeSearch{
		results: map[string][]search.Result{
			"craft cocktail bar Seattle": result("RESULTS-ONE"),
		},
	}
	model := &fakeLLM{
		queryErr: errors.New("model overloaded"),
		extracts: map[string]string{"RESULTS-ONE": bars("Canon")},
	}

	svc, store, _ := newTestService(provider, model)

	report, err := svc.Discover(context.Background(), "Seattle", 1)
	if err != nil {
		t.Fatalf("transient query-gen failure must not fail the run: %v", err)
	}
	if len(report.Bars) != 1 {
		t.Fatalf("expected 1 bar via fallback queries, got %d", len(report.Bars))
	}

	stored, _ := store.List(context.Background(), "Seattle")
	if len(stored) != 1 || stored[0].SourceQueries[0] != "craft cocktail bar Seattle" {
		t.Errorf("expected fallback query recorded as source, got %+v", stored)
	}
}

func TestDiscover_FailedQuerySkippedNotFatal(t *testing.T) {
	provider := &fakeSearch{
		results:  map[string][]search.Result{"q2": result("RESULTS-TWO")},
		failures: map[string]int{"q1": 3}, // exceeds retry budget
	}
	model := &fakeLLM{
		queries:  []string{"q1", "q2"},
		extracts: map[string]string{"RESULTS-TWO": bars("Attaboy")},
	}

	svc, _, _ := newTestService(provider, model)

	report, err := svc.Discover(context.Background(), "Seattle", 1)
	if err != nil {
		t.Fatalf("one bad query must not fail the run: %v", err)
	}
	if len(report.Bars) != 1 {
		t.Fatalf("expected 1 bar from the surviving query, got %d", len(report.Bars))
	}

	var sawFailure bool
	for _, step := range report.FailedSteps {
		if strings.Contains(step, "q1") {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Error("expected the skipped query in FailedSteps")
	}
}

func TestDiscover_AttemptCap(t *testing.T) {
	provider := &fakeSearch{} // every query returns nothing
	model := &fakeLLM{queries: []string{"q1", "q2", "q3", "q4"}}

	svc, _, _ := newTestService(provider, model)
	svc.maxAttempts = 2

	report, err := svc.Discover(context.Background(), "Seattle", 10)
	if err != nil {
		t.Fatalf("hitting the cap must not fail the run: %v", err)
	}
	if report.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", report.Attempts)
	}
	if len(report.Bars) != 0 {
		t.Errorf("expected empty result, got %d bars", len(report.Bars))
	}
}

func TestDiscover_StopsAtTargetCount(t *testing.T) {
	provider := &fakeSearch{
		results: map[string][]search.Result{
			"q1": result("RESULTS-ONE"),
			"q2": result("RESULTS-TWO"),
		},
	}
	model := &fakeLLM{
		queries: []string{"q1", "q2"},
		extracts: map[string]string{
			"RESULTS-ONE": bars("Canon", "Attaboy"),
			"RESULTS-TWO": bars("Death & Co"),
		},
	}

	svc, _, _ := newTestService(provider, model)

	report, err := svc.Discover(context.Background(), "Seattle", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Bars) != 2 {
		t.Errorf("expected exactly target_count bars, got %d", len(report.Bars))
	}
	if provider.calls != 1 {
		t.Errorf("expected discovery to stop after the first query, got %d searches", provider.calls)
	}
}

func TestDiscover_RunCostFromLedger(t *testing.T) {
	provider := &fakeSearch{
		results: map[string][]search.Result{"q1": result("RESULTS-ONE")},
	}
	model := &fakeLLM{
		queries:  []string{"q1"},
		extracts: map[string]string{"RESULTS-ONE": bars("Canon")},
	}

	svc, _, ledger := newTestService(provider, model)

	report, err := svc.Discover(context.Background(), "Seattle", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total, _ := ledger.Total(context.Background(), cost.Filter{City: "Seattle"})
	if !report.RunCost.Equal(total) {
		t.Errorf("report cost %s != ledger total %s", report.RunCost, total)
	}
	if report.RunCost.IsZero() {
		t.Error("expected a non-zero run cost (brave per-call + gemini tokens)")
	}
}
