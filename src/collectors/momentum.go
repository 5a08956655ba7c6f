package collectors

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/connectors"
	"papertrader/src/model"
)

type priceSource interface {
	FetchQuote() (*connectors.PriceQuote, error)
}

type priceTickStore interface {
	Create(ctx context.Context, tick *model.PriceTick) error
	RecentSince(ctx context.Context, assetID string, since time.Time) ([]model.PriceTick, error)
	OldestSince(ctx context.Context, assetID string, since time.Time) (*model.PriceTick, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MomentumCollector polls the spot price, appends a tick, and derives a
// short-horizon momentum signal: the price ratio of the newest to the oldest
// sample in the lookback window, scaled so a saturation-sized move maps to a
// full +/-1.
type MomentumCollector struct {
	cfg     Config
	prices  priceSource
	ticks   priceTickStore
	signals signalStore
	models  activeModelLister
	now     func() time.Time
}

func NewMomentumCollector(
	cfg Config,
	prices priceSource,
	ticks priceTickStore,
	signals signalStore,
	models activeModelLister,
) *MomentumCollector {
	return &MomentumCollector{
		cfg:     cfg,
		prices:  prices,
		ticks:   ticks,
		signals: signals,
		models:  models,
		now:     time.Now,
	}
}

func (c *MomentumCollector) Name() string {
	return "momentum_collector"
}

func (c *MomentumCollector) Interval() time.Duration {
	return c.cfg.MomentumInterval
}

func (c *MomentumCollector) Run(ctx context.Context) error {
	now := c.now()

	quote, err := c.prices.FetchQuote()
	if err != nil {
		logCycleFailure(model.SourcePriceMomentum, err)
		return err
	}

	tick := &model.PriceTick{
		AssetID:    c.cfg.AssetID,
		Price:      quote.Price,
		Volume24h:  quote.Volume24h,
		ObservedAt: now,
	}

	if oldest, err := c.ticks.OldestSince(ctx, c.cfg.AssetID, now.Add(-24*time.Hour)); err == nil && oldest != nil && oldest.Price > 0 {
		tick.Change24h = (quote.Price - oldest.Price) / oldest.Price
	}

	if err := c.ticks.Create(ctx, tick); err != nil {
		return err
	}

	samples, err := c.ticks.RecentSince(ctx, c.cfg.AssetID, now.Add(-c.cfg.MomentumLookback))
	if err != nil {
		return err
	}

	if normalized, ok := momentumFromSamples(samples, c.cfg.MomentumSaturation); ok {
		models, err := c.models.ListActive(ctx)
		if err != nil {
			return err
		}

		metadata := map[string]any{
			"samples":    len(samples),
			"last_price": quote.Price,
			"lookback":   c.cfg.MomentumLookback.String(),
		}

		batch := fanOut(models, model.SourcePriceMomentum, quote.Price, normalized, metadata, now)
		if err := c.signals.CreateBatch(ctx, batch); err != nil {
			return err
		}

		logger.WithFields(map[string]interface{}{
			"source":     model.SourcePriceMomentum,
			"normalized": normalized,
			"models":     len(models),
		}).Info("Momentum signal collected")
	} else {
		logger.WithField("samples", len(samples)).Debug("Not enough price samples for a momentum signal")
	}

	if _, err := c.ticks.PruneOlderThan(ctx, now.Add(-c.cfg.PriceRetention)); err != nil {
		return err
	}
	_, err = c.signals.PruneOlderThan(ctx, model.SourcePriceMomentum, now.Add(-c.cfg.MomentumRetention))
	return err
}

// momentumFromSamples maps the window's price move to [-1, 1]. Requires at
// least two samples; a move of +-saturation (as a fraction of the oldest
// price) saturates the signal.
func momentumFromSamples(samples []model.PriceTick, saturation float64) (float64, bool) {
	if len(samples) < 2 || saturation <= 0 {
		return 0, false
	}

	oldest := samples[0].Price
	newest := samples[len(samples)-1].Price
	if oldest <= 0 {
		return 0, false
	}

	move := newest/oldest - 1
	return clamp(move / saturation), true
}
