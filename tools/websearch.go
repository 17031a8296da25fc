package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// maxPreviewRunes caps the plain-text preview extracted from a fetched page.
const maxPreviewRunes = 1000

// Page is a single search hit with its fetched HTML.
type Page struct {
	URL   string
	Title string
	HTML  string
}

// WebSearcher runs a web search and fetches result pages.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Page, error)
}

// TavilySearcher searches via the Tavily Search API and fetches each result's
// HTML with a plain HTTP GET. Pages that fail to download keep an empty HTML
// body instead of failing the whole search.
type TavilySearcher struct {
	apiKey     string
	endpoint   string
	maxResults int
	client     *http.Client
}

// NewTavilySearcher creates a searcher with the given API key.
func NewTavilySearcher(apiKey string) (*TavilySearcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tavily api key is empty")
	}
	return &TavilySearcher{
		apiKey:     apiKey,
		endpoint:   tavilyEndpoint,
		maxResults: 5,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// NewTavilySearcherFromEnv reads TAVILY_API_KEY.
func NewTavilySearcherFromEnv() (*TavilySearcher, error) {
	key := os.Getenv("TAVILY_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY is not set")
	}
	return NewTavilySearcher(key)
}

// Search runs the query and returns up to maxResults pages.
func (s *TavilySearcher) Search(ctx context.Context, query string, maxResults int) ([]Page, error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	payload := map[string]any{
		"api_key":             s.apiKey,
		"query":               query,
		"max_results":         maxResults,
		"search_depth":        "basic",
		"include_answer":      false,
		"include_raw_content": false,
		"include_images":      false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed struct {
		Results []struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}

	pages := make([]Page, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		if item.URL == "" {
			continue
		}
		html, err := s.fetchHTML(ctx, item.URL)
		if err != nil {
			html = ""
		}
		pages = append(pages, Page{URL: item.URL, Title: item.Title, HTML: html})
	}
	return pages, nil
}

func (s *TavilySearcher) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// TextPreview strips markup from a page and returns the leading plain text.
func TextPreview(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(doc.Text()), " ")
	runes := []rune(text)
	if len(runes) > maxPreviewRunes {
		runes = runes[:maxPreviewRunes]
	}
	return string(runes)
}
