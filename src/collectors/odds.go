package collectors

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"papertrader/src/connectors"
	"papertrader/src/model"
)

type marketSource interface {
	MarketsByWindow(ctx context.Context, slug string) ([]connectors.Market, error)
}

type snapshotStore interface {
	Create(ctx context.Context, snapshot *model.MarketSnapshot) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OddsCollector polls the prediction-market source, snapshots every tracked
// market, and derives a crowd-direction signal from the implied Up
// probabilities: avg((impliedUp - 0.5) * 2) across markets.
type OddsCollector struct {
	cfg       Config
	markets   marketSource
	snapshots snapshotStore
	signals   signalStore
	models    activeModelLister
	now       func() time.Time
}

func NewOddsCollector(
	cfg Config,
	markets marketSource,
	snapshots snapshotStore,
	signals signalStore,
	models activeModelLister,
) *OddsCollector {
	return &OddsCollector{
		cfg:       cfg,
		markets:   markets,
		snapshots: snapshots,
		signals:   signals,
		models:    models,
		now:       time.Now,
	}
}

func (c *OddsCollector) Name() string {
	return "odds_collector"
}

func (c *OddsCollector) Interval() time.Duration {
	return c.cfg.OddsInterval
}

func (c *OddsCollector) Run(ctx context.Context) error {
	now := c.now()

	markets, err := c.markets.MarketsByWindow(ctx, c.cfg.MarketSlug)
	if err != nil {
		logCycleFailure(model.SourceMarketOdds, err)
		return err
	}

	for i := range markets {
		m := &markets[i]

		snapshot := &model.MarketSnapshot{
			MarketID:   m.ID,
			Name:       m.Question,
			UpPrice:    m.OutcomePrices[0],
			DownPrice:  m.OutcomePrices[1],
			Volume:     decimal.NewFromFloat(m.Volume),
			ObservedAt: now,
		}
		if !m.EndDate.IsZero() {
			remaining := int(m.EndDate.Sub(now).Seconds())
			snapshot.TimeRemainingSeconds = &remaining
		}

		if err := c.snapshots.Create(ctx, snapshot); err != nil {
			return err
		}
	}

	// Zero markets is a flat signal with an explicit marker, not an error:
	// the window may simply be between market rotations.
	avgUp, normalized, metadata := oddsSignal(markets)

	models, err := c.models.ListActive(ctx)
	if err != nil {
		return err
	}

	batch := fanOut(models, model.SourceMarketOdds, avgUp, normalized, metadata, now)
	if err := c.signals.CreateBatch(ctx, batch); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"source":     model.SourceMarketOdds,
		"markets":    len(markets),
		"normalized": normalized,
	}).Info("Market odds signal collected")

	if _, err := c.snapshots.PruneOlderThan(ctx, now.Add(-c.cfg.SnapshotRetention)); err != nil {
		return err
	}
	_, err = c.signals.PruneOlderThan(ctx, model.SourceMarketOdds, now.Add(-c.cfg.OddsRetention))
	return err
}

// oddsSignal averages the crowd lean across the tracked markets. The raw
// reading is the average implied Up probability; the normalized value
// rescales it around 0.5 into [-1, 1].
func oddsSignal(markets []connectors.Market) (float64, float64, map[string]any) {
	if len(markets) == 0 {
		return 0.5, 0, map[string]any{"no_markets": true}
	}

	var sum float64
	for i := range markets {
		sum += markets[i].ImpliedUp()
	}
	avgUp := sum / float64(len(markets))

	return avgUp, clamp((avgUp-0.5)*2), map[string]any{"markets": len(markets)}
}
