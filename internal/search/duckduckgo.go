package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ddgRate enforces one query per second across all instances; DuckDuckGo
// has no API key to scope by.
var ddgRate struct {
	mu   sync.Mutex
	last time.Time
}

// DuckDuckGo scrapes the lite HTML interface. Free, no credentials; used as
// the fallback provider when no Brave key is configured.
type DuckDuckGo struct {
	client *http.Client
}

func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{client: &http.Client{Timeout: 15 * time.Second}}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}

	ddgRate.mu.Lock()
	if wait := time.Until(ddgRate.last.Add(time.Second)); wait > 0 {
		ddgRate.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		ddgRate.mu.Lock()
	}
	ddgRate.last = time.Now()
	ddgRate.mu.Unlock()

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		"https://lite.duckduckgo.com/lite/",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CocktailScraper/1.0)")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: duckduckgo http %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	return parseLiteResults(doc), nil
}

// parseLiteResults walks the lite page's result table. Links live in
// a.result-link rows; the snippet is the following td.result-snippet.
func parseLiteResults(doc *goquery.Document) []Result {
	var results []Result

	doc.Find("a.result-link").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}

		snippet := sel.Closest("tr").Next().Find("td.result-snippet").Text()

		results = append(results, Result{
			Title:   strings.TrimSpace(sel.Text()),
			URL:     cleanDDGRedirect(href),
			Snippet: strings.TrimSpace(snippet),
		})
		return len(results) < maxResults
	})

	return results
}

// cleanDDGRedirect unwraps //duckduckgo.com/l/?uddg=<url> redirect links.
func cleanDDGRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
