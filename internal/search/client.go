package search

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized means the provider rejected our credentials. The
	// orchestrator treats this as the collaborator being unreachable.
	ErrUnauthorized = errors.New("search provider rejected credentials")
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider is the web search collaborator. Implementations are expected to
// be safe for concurrent use and to respect provider rate limits
// internally.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}
