package collectors

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/connectors"
	"papertrader/src/model"
	"papertrader/src/sentiment"
)

type newsSource interface {
	Search(ctx context.Context, query string, since time.Time) ([]connectors.Headline, error)
}

// NewsCollector fetches recent headlines and scores their sentiment through
// the scorer chain. Which scorer actually fired (model or lexical) lands in
// the signal metadata for later accuracy analysis.
type NewsCollector struct {
	cfg     Config
	news    newsSource
	scorer  sentiment.Scorer
	signals signalStore
	models  activeModelLister
	now     func() time.Time
}

func NewNewsCollector(
	cfg Config,
	news newsSource,
	scorer sentiment.Scorer,
	signals signalStore,
	models activeModelLister,
) *NewsCollector {
	return &NewsCollector{
		cfg:     cfg,
		news:    news,
		scorer:  scorer,
		signals: signals,
		models:  models,
		now:     time.Now,
	}
}

func (c *NewsCollector) Name() string {
	return "news_collector"
}

func (c *NewsCollector) Interval() time.Duration {
	return c.cfg.NewsInterval
}

func (c *NewsCollector) Run(ctx context.Context) error {
	now := c.now()

	headlines, err := c.news.Search(ctx, c.cfg.NewsQuery, now.Add(-c.cfg.NewsFreshness))
	if err != nil {
		logCycleFailure(model.SourceNewsSentiment, err)
		return err
	}

	if len(headlines) == 0 {
		logger.WithField("query", c.cfg.NewsQuery).Debug("No fresh headlines this cycle")
		_, err = c.signals.PruneOlderThan(ctx, model.SourceNewsSentiment, now.Add(-c.cfg.NewsRetention))
		return err
	}

	texts := make([]string, 0, len(headlines)*2)
	for _, h := range headlines {
		texts = append(texts, h.Title)
		if h.Description != "" {
			texts = append(texts, h.Description)
		}
	}

	result, err := c.scorer.Score(ctx, texts)
	if err != nil {
		logCycleFailure(model.SourceNewsSentiment, err)
		return err
	}

	models, err := c.models.ListActive(ctx)
	if err != nil {
		return err
	}

	metadata := map[string]any{
		"headlines": len(headlines),
		"scored_by": string(result.ScoredBy),
		"summary":   result.Summary,
	}

	normalized := clamp(result.Aggregate)
	batch := fanOut(models, model.SourceNewsSentiment, result.Aggregate, normalized, metadata, now)
	if err := c.signals.CreateBatch(ctx, batch); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"source":     model.SourceNewsSentiment,
		"headlines":  len(headlines),
		"scored_by":  result.ScoredBy,
		"normalized": normalized,
	}).Info("News sentiment signal collected")

	_, err = c.signals.PruneOlderThan(ctx, model.SourceNewsSentiment, now.Add(-c.cfg.NewsRetention))
	return err
}
