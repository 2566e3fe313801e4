package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxResults caps how many hits one query returns; discovery only needs a
// handful and every extra snippet costs LLM input tokens downstream.
const maxResults = 5

// Brave queries the Brave Search API. Brave bills per call and enforces
// 1 request/second per key, so all instances sharing a key go through one
// gate.
type Brave struct {
	apiKey string
	client *http.Client
}

func NewBrave() *Brave {
	return &Brave{
		apiKey: os.Getenv("BRAVE_API_KEY"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *Brave) Name() string { return "brave" }

// braveGate serializes requests per API key so only one fires per second.
type braveGate struct {
	mu      sync.Mutex
	readyAt time.Time
}

var (
	braveGatesMu sync.Mutex
	braveGates   = map[string]*braveGate{}
)

func gateFor(apiKey string) *braveGate {
	braveGatesMu.Lock()
	defer braveGatesMu.Unlock()
	g, ok := braveGates[apiKey]
	if !ok {
		g = &braveGate{}
		braveGates[apiKey] = g
	}
	return g
}

func (g *braveGate) waitAndLock(ctx context.Context) error {
	g.mu.Lock()
	if wait := time.Until(g.readyAt); wait > 0 {
		g.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		g.mu.Lock()
	}
	return nil
}

func (g *braveGate) unlock(delay time.Duration) {
	g.readyAt = time.Now().Add(delay)
	g.mu.Unlock()
}

func (b *Brave) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(b.apiKey) == "" {
		return nil, fmt.Errorf("%w: missing BRAVE_API_KEY", ErrUnauthorized)
	}

	endpoint := "https://api.search.brave.com/res/v1/web/search?q=" + url.QueryEscape(query)
	gate := gateFor(b.apiKey)

	var resp *http.Response
	for {
		if err := gate.waitAndLock(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			gate.unlock(0)
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Subscription-Token", b.apiKey)

		resp, err = b.client.Do(req)
		if err != nil {
			gate.unlock(time.Second)
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			gate.unlock(nextDelay(resp.Header))
			break
		}

		// 429: honor the reset header, release the gate, go around.
		wait := retryDelay(resp.Header)
		resp.Body.Close()
		gate.unlock(wait)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: brave http %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave http %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Description})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

// retryDelay reads X-RateLimit-Reset ("1, 1419704" style, seconds) and
// returns the smallest value, defaulting to one second.
func retryDelay(h http.Header) time.Duration {
	raw := h.Get("X-RateLimit-Reset")
	if raw == "" {
		return time.Second
	}
	minReset := -1
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			continue
		}
		if minReset < 0 || n < minReset {
			minReset = n
		}
	}
	if minReset <= 0 {
		return time.Second
	}
	return time.Duration(minReset) * time.Second
}

// nextDelay reads X-RateLimit-Remaining (per-second bucket first) to decide
// how long to hold the gate before the next request.
func nextDelay(h http.Header) time.Duration {
	raw := h.Get("X-RateLimit-Remaining")
	if raw == "" {
		return time.Second
	}
	perSecond, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(raw, ",", 2)[0]))
	if err != nil || perSecond <= 0 {
		return time.Second
	}
	return 0
}
