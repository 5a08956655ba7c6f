package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Headline is one fetched news item.
type Headline struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsClient fetches recent headlines for a query, freshness-bounded by the
// caller.
type NewsClient struct {
	http   *resty.Client
	apiKey string
}

// NewNewsClient creates a client with bounded timeouts and retry on 5xx.
func NewNewsClient(baseURL, apiKey string, timeout time.Duration) *NewsClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &NewsClient{http: httpClient, apiKey: apiKey}
}

// Search returns headlines matching the query published after the cutoff.
func (c *NewsClient) Search(ctx context.Context, query string, since time.Time) ([]Headline, error) {
	var decoded struct {
		Status  string `json:"status"`
		Results []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PubDate     string `json:"pubDate"`
		} `json:"results"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("apikey", c.apiKey).
		SetQueryParam("q", query).
		SetQueryParam("language", "en").
		SetResult(&decoded).
		Get("/news")
	if err != nil {
		return nil, fmt.Errorf("fetch news for %q: %w", query, err)
	}
	if !resp.IsSuccess() {
		return nil, statusToError(resp)
	}

	out := make([]Headline, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		headline := Headline{
			Title:       item.Title,
			Description: item.Description,
		}
		if item.PubDate != "" {
			if parsed, err := time.Parse("2006-01-02 15:04:05", item.PubDate); err == nil {
				headline.PublishedAt = parsed
			}
		}
		if !headline.PublishedAt.IsZero() && headline.PublishedAt.Before(since) {
			continue
		}
		out = append(out, headline)
	}

	return out, nil
}
