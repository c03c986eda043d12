package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/sethvargo/go-retry"
)

// DefaultWikipediaURL is the English Wikipedia REST API.
const DefaultWikipediaURL = "https://en.wikipedia.org/api/rest_v1"

// ErrNoSummary is returned when a topic has no usable summary.
var ErrNoSummary = errors.New("wikipedia: no summary")

// WikipediaClient fetches page summaries from the Wikipedia REST API.
type WikipediaClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

// NewWikipediaClient creates a client. An empty baseURL uses DefaultWikipediaURL.
func NewWikipediaClient(baseURL string, timeout time.Duration) *WikipediaClient {
	if baseURL == "" {
		baseURL = DefaultWikipediaURL
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WikipediaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: 2,
	}
}

type wikiSummary struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// Summary returns the first sentences of the page for topic. Server errors
// are retried; a missing page or a disambiguation page is ErrNoSummary.
func (c *WikipediaClient) Summary(ctx context.Context, topic string, sentences int) (string, error) {
	title := pageTitle(topic)
	if title == "" {
		return "", ErrNoSummary
	}
	endpoint := c.baseURL + "/page/summary/" + url.PathEscape(title)

	var page wikiSummary
	b := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "jarvis-assistant/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("send request: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNoSummary, topic)
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return retry.RetryableError(fmt.Errorf("wikipedia status %d", resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("wikipedia status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if page.Type == "disambiguation" || strings.TrimSpace(page.Extract) == "" {
		return "", fmt.Errorf("%w: %s", ErrNoSummary, topic)
	}
	return FirstSentences(page.Extract, sentences), nil
}

// pageTitle turns spoken text into a page title: first letter upper-cased,
// spaces as underscores.
func pageTitle(topic string) string {
	runes := []rune(strings.TrimSpace(topic))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return strings.ReplaceAll(string(runes), " ", "_")
}

// FirstSentences returns at most n sentences of text. A sentence ends at
// '.', '!' or '?' followed by whitespace or the end of text.
func FirstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 {
		return text
	}

	runes := []rune(text)
	count := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		count++
		if count == n {
			return string(runes[:i+1])
		}
	}
	return text
}
