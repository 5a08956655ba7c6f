package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// ScoreResponse is the large-model scoring service's verdict on a batch of
// texts: an aggregate sentiment in [-1,1] plus a short summary.
type ScoreResponse struct {
	Aggregate float64 `json:"aggregate"`
	Summary   string  `json:"summary"`
	Source    string  `json:"source"`
}

// ScorerClient talks to the optional large-model scoring service. Callers
// must be prepared for it to fail or time out and fall back to the lexical
// scorer.
type ScorerClient struct {
	http   *resty.Client
	apiKey string
}

// NewScorerClient creates a client with a bounded timeout. No retry here: a
// slow scoring service should degrade to the fallback, not stall the cycle.
func NewScorerClient(baseURL, apiKey string, timeout time.Duration) *ScorerClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &ScorerClient{http: httpClient, apiKey: apiKey}
}

// Score submits the texts and returns the aggregate sentiment.
func (c *ScorerClient) Score(ctx context.Context, texts []string) (*ScoreResponse, error) {
	var decoded ScoreResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetHeader("X-Request-Id", uuid.NewString()).
		SetBody(map[string]interface{}{"texts": texts}).
		SetResult(&decoded).
		Post("/score")
	if err != nil {
		return nil, fmt.Errorf("score texts: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, statusToError(resp)
	}

	if decoded.Aggregate < -1 || decoded.Aggregate > 1 {
		return nil, fmt.Errorf("scorer returned out-of-range aggregate %f", decoded.Aggregate)
	}

	return &decoded, nil
}
