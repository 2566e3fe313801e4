package llm

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized means the LLM provider rejected our credentials (or
	// none are configured). The orchestrator treats this as the
	// collaborator being unreachable.
	ErrUnauthorized = errors.New("llm provider rejected credentials")
)

// Usage is the token accounting for one completion, as reported by the
// provider. The cost ledger prices calls from these counts.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

type Client interface {
	// Complete sends a prompt and returns the raw model output plus token
	// usage. Usage is populated whenever the provider reported it, even
	// if the output itself is unusable, so the call can still be priced.
	Complete(ctx context.Context, prompt string) (string, Usage, error)
}
