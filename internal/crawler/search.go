package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultSearchURL = "https://api.tavily.com/search"

// searchResult is one hit returned by the search API.
type searchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// searchClient talks to a Tavily-compatible search endpoint.
type searchClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

func newSearchClient(apiKey, baseURL string, client *http.Client) *searchClient {
	if baseURL == "" {
		baseURL = defaultSearchURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &searchClient{client: client, apiKey: apiKey, baseURL: baseURL}
}

func (s *searchClient) search(ctx context.Context, query string, maxResults int) ([]searchResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("search API key not configured")
	}
	if maxResults < 1 {
		maxResults = 3
	}

	reqBody := map[string]any{
		"api_key":      s.apiKey,
		"query":        query,
		"max_results":  maxResults,
		"search_depth": "basic",
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Results []searchResult `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	return parsed.Results, nil
}
