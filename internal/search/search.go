// Package search implements the external web search collaborator using the
// DuckDuckGo HTML interface (no API key required). Lookups are fire-and-
// forget with a hard timeout; failures degrade to empty results and never
// abort the answering pipeline.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"ardi/internal/logging"
	"ardi/internal/types"
)

// Searcher is the pluggable search collaborator contract. Implementations
// must return an empty slice rather than an error on no-results.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error)
}

// =============================================================================
// DUCKDUCKGO SEARCHER
// =============================================================================

// Config holds searcher configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxResults int
	CacheSize  int
	CacheTTL   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://html.duckduckgo.com/html/",
		Timeout:    10 * time.Second,
		MaxResults: 5,
		CacheSize:  200,
		CacheTTL:   5 * time.Minute,
	}
}

// DuckDuckGo searches via the DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	baseURL    string
	timeout    time.Duration
	maxResults int
	cache      *resultCache
	client     *http.Client
}

// NewDuckDuckGo creates a searcher with the given config.
func NewDuckDuckGo(cfg *Config) *DuckDuckGo {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &DuckDuckGo{
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		maxResults: cfg.MaxResults,
		cache:      newResultCache(cfg.CacheSize, cfg.CacheTTL),
		client:     &http.Client{},
	}
}

// Search performs a single search. No-results is not an error.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	timer := logging.StartTimer(logging.CategorySearch, "DuckDuckGo.Search")
	defer timer.StopWithThreshold(5 * time.Second)

	if maxResults <= 0 {
		maxResults = d.maxResults
	}
	if maxResults > 30 {
		maxResults = 30
	}

	normalized := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := d.cache.Get(normalized); ok {
		logging.SearchDebug("Cache hit: query=%q results=%d", query, len(cached))
		return cached, nil
	}

	searchURL := fmt.Sprintf("%s?q=%s", strings.TrimSuffix(d.baseURL, "/")+"/", url.QueryEscape(query))

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to look like a browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1MB limit
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	results, err := ParseResults(string(body), maxResults)
	if err != nil {
		return nil, err
	}

	d.cache.Set(normalized, results)
	logging.Search("Search completed: %d results for %q", len(results), query)
	return results, nil
}

// =============================================================================
// CONCURRENT VARIANT SEARCH
// =============================================================================

// SearchVariants fans out independent lookups for several query variants and
// merges the results: dedup by URL + truncated title, stable sort by
// relevance descending. Individual lookup failures are logged and dropped.
func SearchVariants(ctx context.Context, s Searcher, queries []string, maxResults int) []types.SearchResult {
	timer := logging.StartTimer(logging.CategorySearch, "SearchVariants")
	defer timer.Stop()

	resultSets := make([][]types.SearchResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			results, err := s.Search(gctx, q, maxResults)
			if err != nil {
				// Collaborator failure degrades to empty results.
				logging.Get(logging.CategorySearch).Warn("Lookup failed for %q: %v", q, err)
				return nil
			}
			resultSets[i] = results
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var merged []types.SearchResult
	for _, set := range resultSets {
		for _, r := range set {
			key := dedupKey(r)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Relevance > merged[j].Relevance
	})

	if maxResults > 0 && len(merged) > maxResults {
		merged = merged[:maxResults]
	}

	logging.SearchDebug("Merged %d variant lookups into %d results", len(queries), len(merged))
	return merged
}

// dedupKey identifies a result by its URL plus a truncated title.
func dedupKey(r types.SearchResult) string {
	title := strings.ToLower(r.Title)
	if len(title) > 40 {
		title = title[:40]
	}
	return r.URL + "|" + title
}

// =============================================================================
// HTML PARSING
// =============================================================================

// ParseResults extracts search results from DuckDuckGo HTML. Results get a
// simple rank-decay relevance so the merged ordering is stable.
func ParseResults(htmlContent string, maxResults int) ([]types.SearchResult, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []types.SearchResult

	// DuckDuckGo HTML uses class="result results_links ..." per hit
	var findResults func(*html.Node)
	findResults = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}

		if n.Type == html.ElementNode && n.Data == "div" {
			for _, attr := range n.Attr {
				if attr.Key == "class" && strings.Contains(attr.Val, "result") && strings.Contains(attr.Val, "results_links") {
					result := extractResult(n)
					if result.URL != "" && result.Title != "" {
						result.Source = "duckduckgo"
						result.Relevance = 1.0 - float64(len(results))*0.1
						if result.Relevance < 0.1 {
							result.Relevance = 0.1
						}
						results = append(results, result)
					}
					return
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findResults(c)
		}
	}

	findResults(doc)
	return results, nil
}

// extractResult extracts a single search result from a result div.
func extractResult(n *html.Node) types.SearchResult {
	var result types.SearchResult

	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "class" {
					if strings.Contains(attr.Val, "result__a") {
						result.URL = getAttrValue(n, "href")
						result.Title = getTextContent(n)
					} else if strings.Contains(attr.Val, "result__snippet") {
						result.Snippet = getTextContent(n)
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}

	extract(n)

	// Clean up the URL if it's a DuckDuckGo redirect
	if strings.HasPrefix(result.URL, "//duckduckgo.com/l/?uddg=") {
		if decoded, err := url.QueryUnescape(strings.TrimPrefix(result.URL, "//duckduckgo.com/l/?uddg=")); err == nil {
			if idx := strings.Index(decoded, "&"); idx > 0 {
				decoded = decoded[:idx]
			}
			result.URL = decoded
		}
	}

	return result
}

// getAttrValue returns the value of an attribute.
func getAttrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// getTextContent returns all text content within a node.
func getTextContent(n *html.Node) string {
	var sb strings.Builder
	var getText func(*html.Node)
	getText = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			getText(c)
		}
	}
	getText(n)
	return strings.TrimSpace(sb.String())
}
