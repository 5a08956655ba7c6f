package sentiment

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/connectors"
)

// ScoredBy tags which scorer produced a result, so callers and later
// signal-accuracy analysis can tell the paths apart.
type ScoredBy string

const (
	ScoredByModel   ScoredBy = "model"
	ScoredByLexical ScoredBy = "lexical"
)

// Result is one sentiment verdict over a batch of texts.
type Result struct {
	Aggregate float64 // in [-1, 1]
	Summary   string
	ScoredBy  ScoredBy
}

// Scorer produces a sentiment score for a batch of texts.
type Scorer interface {
	Score(ctx context.Context, texts []string) (Result, error)
}

// ModelScorer adapts the large-model scoring service to the Scorer interface.
type ModelScorer struct {
	client *connectors.ScorerClient
}

func NewModelScorer(client *connectors.ScorerClient) *ModelScorer {
	return &ModelScorer{client: client}
}

func (s *ModelScorer) Score(ctx context.Context, texts []string) (Result, error) {
	resp, err := s.client.Score(ctx, texts)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Aggregate: resp.Aggregate,
		Summary:   resp.Summary,
		ScoredBy:  ScoredByModel,
	}, nil
}

// Chain tries the preferred scorer first and degrades to the fallback on any
// error. The result's ScoredBy tag records which path fired.
type Chain struct {
	Preferred Scorer
	Fallback  Scorer
}

func (c *Chain) Score(ctx context.Context, texts []string) (Result, error) {
	if len(texts) == 0 {
		return Result{}, errors.New("no texts to score")
	}

	if c.Preferred != nil {
		result, err := c.Preferred.Score(ctx, texts)
		if err == nil {
			return result, nil
		}
		logger.WithError(err).Warn("Preferred sentiment scorer unavailable, falling back to lexical")
	}

	return c.Fallback.Score(ctx, texts)
}
