package discovery

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jadenstock/CocktailScraper/internal/bar"
)

var (
	// ErrCollaboratorUnavailable means the search or LLM collaborator is
	// entirely unreachable (bad credentials, dead endpoint). The run
	// fails, but everything already committed stays committed.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// RunState is the orchestrator's explicit state machine. Retries and
// partial-failure reporting re-enter at the state that failed instead of
// unwinding a callback chain.
type RunState int

const (
	StateIdle RunState = iota
	StateQuerying
	StateSearching
	StateExtracting
	StateUpserting
	StateDone
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateQuerying:
		return "querying"
	case StateSearching:
		return "searching"
	case StateExtracting:
		return "extracting"
	case StateUpserting:
		return "upserting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Report is the outcome of one discovery run. Bars lists the distinct bars
// confirmed this run, in the order they were first seen.
type Report struct {
	City        string          `json:"city"`
	TargetCount int             `json:"target_count"`
	State       RunState        `json:"-"`
	StateName   string          `json:"state"`
	Bars        []*bar.Record   `json:"bars"`
	Inserted    int             `json:"inserted"`
	Merged      int             `json:"merged"`
	Attempts    int             `json:"attempts"`
	FailedSteps []string        `json:"failed_steps,omitempty"`
	RunCost     decimal.Decimal `json:"run_cost"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
}
