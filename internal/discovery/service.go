package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jadenstock/CocktailScraper/internal/bar"
	"github.com/jadenstock/CocktailScraper/internal/cost"
	"github.com/jadenstock/CocktailScraper/internal/llm"
	"github.com/jadenstock/CocktailScraper/internal/search"
)

const (
	// DefaultMaxAttempts caps query attempts per run so a city with thin
	// results terminates instead of spending forever.
	DefaultMaxAttempts = 8

	// defaultRetries is the number of extra tries a failed search or
	// extraction step gets before being skipped.
	defaultRetries = 2

	defaultBackoff = 500 * time.Millisecond

	llmProvider = "gemini"
)

// Service drives query generation, web search, candidate extraction and
// store upserts for one city at a time. Every collaborator call is ledgered
// the moment it returns, success or failure, so spend accounting can never
// be skipped by an error path.
type Service struct {
	store    *bar.Store
	ledger   *cost.Ledger
	provider search.Provider
	model    llm.Client

	maxAttempts int
	retries     int
	backoff     time.Duration
}

func NewService(
	store *bar.Store,
	ledger *cost.Ledger,
	provider search.Provider,
	model llm.Client,
) *Service {
	return &Service{
		store:       store,
		ledger:      ledger,
		provider:    provider,
		model:       model,
		maxAttempts: DefaultMaxAttempts,
		retries:     defaultRetries,
		backoff:     defaultBackoff,
	}
}

// --------------------------------------------------
// Discover one city
// --------------------------------------------------
func (s *Service) Discover(ctx context.Context, city string, targetCount int) (*Report, error) {
	if city == "" {
		return nil, errors.New("city is required")
	}
	if targetCount <= 0 {
		return nil, errors.New("target count must be positive")
	}

	report := &Report{
		City:        city,
		TargetCount: targetCount,
		State:       StateIdle,
		StartedAt:   time.Now().UTC(),
	}

	err := s.run(ctx, report)

	if report.State != StateFailed {
		report.State = StateDone
	}
	report.StateName = report.State.String()
	report.FinishedAt = time.Now().UTC()

	// Price the run from the ledger itself; the report never carries a
	// separately-accumulated counter that could drift.
	if runCost, costErr := s.ledger.Total(ctx, cost.Filter{
		City: city,
		From: report.StartedAt,
	}); costErr == nil {
		report.RunCost = runCost
	}

	log.Printf(
		"DISCOVERY_%s city=%s found=%d inserted=%d merged=%d attempts=%d cost=%s",
		report.State, city, len(report.Bars), report.Inserted, report.Merged,
		report.Attempts, report.RunCost,
	)

	return report, err
}

func (s *Service) run(ctx context.Context, report *Report) error {
	report.State = StateQuerying
	queries, err := s.generateQueries(ctx, report)
	if err != nil {
		report.State = StateFailed
		return err
	}

	seen := make(map[string]bool)

	for _, query := range queries {
		if len(seen) >= report.TargetCount || report.Attempts >= s.maxAttempts {
			break
		}
		report.Attempts++

		report.State = StateSearching
		results, err := s.searchWithRetry(ctx, report, query)
		if err != nil {
			if errors.Is(err, search.ErrUnauthorized) {
				report.State = StateFailed
				return fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
			}
			if ctx.Err() != nil {
				report.State = StateFailed
				return ctx.Err()
			}
			report.FailedSteps = append(report.FailedSteps, "search: "+query)
			continue
		}
		if len(results) == 0 {
			continue
		}

		report.State = StateExtracting
		candidates, err := s.extractWithRetry(ctx, report, results)
		if err != nil {
			if errors.Is(err, llm.ErrUnauthorized) {
				report.State = StateFailed
				return fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
			}
			if ctx.Err() != nil {
				report.State = StateFailed
				return ctx.Err()
			}
			report.FailedSteps = append(report.FailedSteps, "extract: "+query)
			continue
		}

		report.State = StateUpserting
		for _, candidate := range candidates {
			res, err := s.store.Upsert(ctx, &bar.Record{
				Name:          candidate.Name,
				City:          report.City,
				Description:   candidate.Description,
				Website:       candidate.Website,
				MenuURL:       candidate.MenuURL,
				SourceQueries: []string{query},
			})
			if err != nil {
				// Store errors other than lock contention propagate.
				if !errors.Is(err, bar.ErrLockTimeout) {
					report.State = StateFailed
					return err
				}
				report.FailedSteps = append(report.FailedSteps, "upsert: "+candidate.Name)
				continue
			}

			if res.Merged {
				report.Merged++
			} else {
				report.Inserted++
			}
			if !seen[res.Bar.ID] {
				seen[res.Bar.ID] = true
				report.Bars = append(report.Bars, res.Bar)
			}
			if len(seen) >= report.TargetCount {
				break
			}
		}
	}

	return nil
}

// --------------------------------------------------
// Query generation (LLM, with template fallback)
// --------------------------------------------------
func (s *Service) generateQueries(ctx context.Context, report *Report) ([]string, error) {
	prompt := llm.BuildQueryPrompt(report.City, 3)

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			if err := s.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}

		raw, usage, err := s.model.Complete(ctx, prompt)
		s.logModelCall(ctx, report.City, usage, err)

		if errors.Is(err, llm.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
		}
		if err == nil {
			queries, parseErr := llm.ParseQueries(raw)
			if parseErr == nil {
				return queries, nil
			}
			err = parseErr
		}
		lastErr = err
	}

	// A dead query generator is not fatal: fall back to templates so a
	// search-only run can still proceed.
	log.Printf("DISCOVERY_QUERY_FALLBACK city=%s err=%v", report.City, lastErr)
	report.FailedSteps = append(report.FailedSteps, "query-generation")
	return fallbackQueries(report.City), nil
}

func fallbackQueries(city string) []string {
	return []string{
		"craft cocktail bar " + city,
		"best cocktail bars in " + city,
		"speakeasy cocktail lounge " + city,
	}
}

// --------------------------------------------------
// Search step
// --------------------------------------------------
func (s *Service) searchWithRetry(ctx context.Context, report *Report, query string) ([]search.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			if err := s.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}

		results, err := s.provider.Search(ctx, query)

		// Ledger first, regardless of outcome. Retries append fresh
		// entries; nothing is overwritten.
		if err != nil {
			s.logFailure(ctx, s.provider.Name(), "search", report.City, err)
		} else if _, lerr := s.ledger.Record(ctx, s.provider.Name(), "search", report.City, 0, 0); lerr != nil {
			log.Printf("LEDGER_RECORD_FAILED provider=%s err=%v", s.provider.Name(), lerr)
		}

		if err == nil {
			return results, nil
		}
		if errors.Is(err, search.ErrUnauthorized) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// --------------------------------------------------
// Extraction step
// --------------------------------------------------
func (s *Service) extractWithRetry(
	ctx context.Context,
	report *Report,
	results []search.Result,
) ([]llm.Candidate, error) {

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, r.Title+"\n"+r.URL+"\n"+r.Snippet)
	}
	prompt := llm.BuildExtractPrompt(report.City, blocks)

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			if err := s.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}

		raw, usage, err := s.model.Complete(ctx, prompt)
		s.logModelCall(ctx, report.City, usage, err)

		if err == nil {
			candidates, parseErr := llm.ParseCandidates(raw)
			if parseErr == nil {
				return candidates, nil
			}
			err = parseErr
		}
		if errors.Is(err, llm.ErrUnauthorized) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// --------------------------------------------------
// Ledger helpers
// --------------------------------------------------
func (s *Service) logModelCall(ctx context.Context, city string, usage llm.Usage, err error) {
	if err != nil && usage.InputTokens == 0 && usage.OutputTokens == 0 {
		s.logFailure(ctx, llmProvider, "llm-completion", city, err)
		return
	}
	if _, lerr := s.ledger.Record(ctx, llmProvider, "llm-completion", city, usage.InputTokens, usage.OutputTokens); lerr != nil {
		log.Printf("LEDGER_RECORD_FAILED provider=%s err=%v", llmProvider, lerr)
	}
}

func (s *Service) logFailure(ctx context.Context, provider, operation, city string, err error) {
	if _, lerr := s.ledger.RecordFailure(ctx, provider, operation, city, err.Error()); lerr != nil {
		log.Printf("LEDGER_RECORD_FAILED provider=%s err=%v", provider, lerr)
	}
}

// wait sleeps for the exponential backoff step, or returns early when the
// run is cancelled.
func (s *Service) wait(ctx context.Context, attempt int) error {
	delay := s.backoff << (attempt - 1)
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
