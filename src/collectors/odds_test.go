package collectors

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"papertrader/src/connectors"
	"papertrader/src/model"
)

type stubMarkets struct {
	markets []connectors.Market
	err     error
}

func (s *stubMarkets) MarketsByWindow(_ context.Context, _ string) ([]connectors.Market, error) {
	return s.markets, s.err
}

type stubSnapshotStore struct {
	created []*model.MarketSnapshot
	pruned  bool
}

func (s *stubSnapshotStore) Create(_ context.Context, snapshot *model.MarketSnapshot) error {
	s.created = append(s.created, snapshot)
	return nil
}

func (s *stubSnapshotStore) PruneOlderThan(_ context.Context, _ time.Time) (int64, error) {
	s.pruned = true
	return 0, nil
}

type stubSignalStore struct {
	batches [][]model.Signal
	pruned  []model.SourceKind
}

func (s *stubSignalStore) CreateBatch(_ context.Context, signals []model.Signal) error {
	s.batches = append(s.batches, signals)
	return nil
}

func (s *stubSignalStore) PruneOlderThan(_ context.Context, source model.SourceKind, _ time.Time) (int64, error) {
	s.pruned = append(s.pruned, source)
	return 0, nil
}

type stubModelLister struct {
	models []model.StrategyModel
}

func (s *stubModelLister) ListActive(_ context.Context) ([]model.StrategyModel, error) {
	return s.models, nil
}

func testCollectorConfig() Config {
	return Config{
		AssetID:           "BTC",
		MarketSlug:        "bitcoin-up-or-down-5-minute",
		OddsInterval:      2 * time.Minute,
		OddsRetention:     6 * time.Hour,
		SnapshotRetention: 24 * time.Hour,
	}
}

func TestOddsCollectorRun(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	endDate := now.Add(4 * time.Minute)

	markets := &stubMarkets{markets: []connectors.Market{
		{ID: "mkt-1", Question: "Bitcoin Up or Down?", OutcomePrices: [2]float64{0.70, 0.30}, Volume: 100, EndDate: endDate},
		{ID: "mkt-2", Question: "Bitcoin Up or Down?", OutcomePrices: [2]float64{0.60, 0.40}, Volume: 50},
	}}
	snapshots := &stubSnapshotStore{}
	signals := &stubSignalStore{}
	models := &stubModelLister{models: []model.StrategyModel{{ID: 1}, {ID: 2}}}

	c := NewOddsCollector(testCollectorConfig(), markets, snapshots, signals, models)
	c.now = func() time.Time { return now }

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snapshots.created) != 2 {
		t.Fatalf("expected a snapshot per market, got %d", len(snapshots.created))
	}
	first := snapshots.created[0]
	if first.MarketID != "mkt-1" || first.UpPrice != 0.70 {
		t.Fatalf("unexpected snapshot: %+v", first)
	}
	if first.TimeRemainingSeconds == nil || *first.TimeRemainingSeconds != 240 {
		t.Fatalf("expected 240s remaining, got %v", first.TimeRemainingSeconds)
	}
	if snapshots.created[1].TimeRemainingSeconds != nil {
		t.Fatal("a market without an end date has no remaining time")
	}

	if len(signals.batches) != 1 {
		t.Fatalf("expected one signal batch, got %d", len(signals.batches))
	}
	batch := signals.batches[0]
	if len(batch) != 2 {
		t.Fatalf("expected a signal per model, got %d", len(batch))
	}
	// Raw keeps the average implied Up probability, normalized its rescale.
	if math.Abs(batch[0].RawValue-0.65) > 1e-9 {
		t.Fatalf("expected raw 0.65, got %v", batch[0].RawValue)
	}
	if math.Abs(batch[0].NormalizedValue-0.3) > 1e-9 {
		t.Fatalf("expected normalized 0.3, got %v", batch[0].NormalizedValue)
	}

	if !snapshots.pruned {
		t.Fatal("expected snapshot retention applied")
	}
	if len(signals.pruned) != 1 || signals.pruned[0] != model.SourceMarketOdds {
		t.Fatalf("expected odds signals pruned, got %v", signals.pruned)
	}
}

func TestOddsCollectorRateLimitedCycleSkips(t *testing.T) {
	markets := &stubMarkets{err: connectors.ErrRateLimited}
	snapshots := &stubSnapshotStore{}
	signals := &stubSignalStore{}

	c := NewOddsCollector(testCollectorConfig(), markets, snapshots, signals, &stubModelLister{})

	err := c.Run(context.Background())
	if !errors.Is(err, connectors.ErrRateLimited) {
		t.Fatalf("expected the rate limit surfaced to the scheduler, got %v", err)
	}
	if len(snapshots.created) != 0 || len(signals.batches) != 0 {
		t.Fatal("a skipped cycle must write nothing")
	}
}

func TestOddsCollectorNoMarketsWritesFlatSignal(t *testing.T) {
	snapshots := &stubSnapshotStore{}
	signals := &stubSignalStore{}
	models := &stubModelLister{models: []model.StrategyModel{{ID: 1}}}

	c := NewOddsCollector(testCollectorConfig(), &stubMarkets{}, snapshots, signals, models)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(signals.batches) != 1 || len(signals.batches[0]) != 1 {
		t.Fatalf("expected a flat signal batch, got %+v", signals.batches)
	}
	sig := signals.batches[0][0]
	if sig.RawValue != 0.5 || sig.NormalizedValue != 0 {
		t.Fatalf("expected the neutral reading, got raw %v normalized %v", sig.RawValue, sig.NormalizedValue)
	}
	if sig.Metadata["no_markets"] != true {
		t.Fatalf("expected no_markets marker, got %v", sig.Metadata)
	}
}
