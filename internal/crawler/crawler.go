// Package crawler gathers public descriptions of an AI service from the
// web so a risk assessment can run without a hand-written profile. It
// searches for the service, scrapes the result pages and condenses the
// text with the LLM backend.
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ethix/internal/llm"
	"ethix/internal/logging"
)

const (
	defaultMaxResults = 3
	defaultMaxChars   = 15000
	defaultCacheTTL   = 15 * time.Minute
)

// Config controls search, scraping bounds and caching.
type Config struct {
	SearchAPIKey string
	SearchURL    string // Tavily-compatible endpoint (default: api.tavily.com)
	MaxResults   int    // search hits to scrape (default: 3)
	MaxChars     int    // cap on combined page text (default: 15000)
	Timeout      time.Duration
	CacheTTL     time.Duration
}

type cacheEntry struct {
	summary string
	expires time.Time
}

// Crawler resolves a service name into a prose description.
type Crawler struct {
	search *searchClient
	client *http.Client
	llm    llm.Client
	config Config
	logger logging.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func New(llmClient llm.Client, config Config, logger logging.Logger) *Crawler {
	if config.MaxResults <= 0 {
		config.MaxResults = defaultMaxResults
	}
	if config.MaxChars <= 0 {
		config.MaxChars = defaultMaxChars
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaultCacheTTL
	}
	httpClient := &http.Client{Timeout: config.Timeout}
	return &Crawler{
		search: newSearchClient(config.SearchAPIKey, config.SearchURL, httpClient),
		client: httpClient,
		llm:    llmClient,
		config: config,
		logger: logging.OrNop(logger),
		cache:  make(map[string]cacheEntry),
	}
}

// Describe searches the web for the named service and returns an LLM
// summary of what it found. An empty string with nil error means the
// web yielded nothing usable; callers fall back to manual entry.
func (c *Crawler) Describe(ctx context.Context, serviceName string) (string, error) {
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		return "", fmt.Errorf("service name is empty")
	}

	if summary, ok := c.cached(serviceName); ok {
		c.logger.Debug("crawler cache hit for %q", serviceName)
		return summary, nil
	}

	query := fmt.Sprintf("%s AI service description OR product overview", serviceName)
	results, err := c.search.search(ctx, query, c.config.MaxResults)
	if err != nil {
		return "", fmt.Errorf("search for %q: %w", serviceName, err)
	}
	if len(results) == 0 {
		c.logger.Warn("no search results for %q", serviceName)
		return "", nil
	}

	var texts []string
	for _, result := range results {
		text, err := c.fetchParagraphs(ctx, result.URL)
		if err != nil {
			c.logger.Warn("skipping %s: %v", result.URL, err)
			continue
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		c.logger.Warn("no page content extracted for %q", serviceName)
		return "", nil
	}

	combined := strings.Join(texts, " ")
	if len(combined) > c.config.MaxChars {
		combined = combined[:c.config.MaxChars]
	}

	summary, err := c.summarize(ctx, serviceName, combined)
	if err != nil {
		return "", fmt.Errorf("summarize %q: %w", serviceName, err)
	}

	c.store(serviceName, summary)
	return summary, nil
}

// fetchParagraphs downloads a page and joins the text of its <p> nodes.
func (c *Crawler) fetchParagraphs(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ethix/1.0)")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, nav, footer, header, aside").Remove()

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " "), nil
}

const summaryPrompt = `The following text was collected from the web about the AI service "%s".
Summarize it concisely, focusing on the service's purpose, main features and technical structure.
-----
%s`

func (c *Crawler) summarize(ctx context.Context, serviceName, combined string) (string, error) {
	resp, err := c.llm.Complete(ctx, llm.CompletionRequest{
		Prompt:      fmt.Sprintf(summaryPrompt, serviceName, combined),
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func (c *Crawler) cached(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expires) {
		delete(c.cache, key)
		return "", false
	}
	return entry.summary, true
}

func (c *Crawler) store(key, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{summary: summary, expires: time.Now().Add(c.config.CacheTTL)}
}
