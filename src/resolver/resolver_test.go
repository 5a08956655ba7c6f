package resolver

import (
	"context"
	"testing"
	"time"

	"papertrader/src/model"
	"papertrader/src/repository"
)

type stubSettler struct {
	open     []model.Trade
	settled  map[uint]repository.Settlement
	expired  map[uint]time.Time
	closeErr error
}

func newStubSettler(open ...model.Trade) *stubSettler {
	return &stubSettler{
		open:    open,
		settled: map[uint]repository.Settlement{},
		expired: map[uint]time.Time{},
	}
}

func (s *stubSettler) FindOpen(_ context.Context) ([]model.Trade, error) {
	return s.open, nil
}

func (s *stubSettler) CloseWithSettlement(_ context.Context, tradeID uint, settlement repository.Settlement) error {
	if s.closeErr != nil {
		return s.closeErr
	}
	s.settled[tradeID] = settlement
	return nil
}

func (s *stubSettler) ExpireWithRefund(_ context.Context, tradeID uint, closedAt time.Time) error {
	s.expired[tradeID] = closedAt
	return nil
}

type stubSnapshots struct {
	snaps map[string]*model.MarketSnapshot
}

func (s *stubSnapshots) LatestByMarket(_ context.Context, marketID string) (*model.MarketSnapshot, error) {
	return s.snaps[marketID], nil
}

type stubPrices struct {
	tick *model.PriceTick
}

func (s *stubPrices) Latest(_ context.Context, _ string) (*model.PriceTick, error) {
	return s.tick, nil
}

func testConfig() Config {
	return Config{
		CycleInterval:        30 * time.Second,
		ConvergenceThreshold: 0.95,
		GracePeriod:          10 * time.Minute,
		HardCeiling:          30 * time.Minute,
		ExpiryCeiling:        24 * time.Hour,
		AssetID:              "BTC",
	}
}

func newTestResolver(trades *stubSettler, snaps *stubSnapshots, prices *stubPrices, now time.Time) *Resolver {
	r := New(testConfig(), trades, snaps, prices)
	r.now = func() time.Time { return now }
	return r
}

func openTrade(closesAt time.Time) model.Trade {
	entry := 65000.0
	return model.Trade{
		ID:              1,
		ModelID:         1,
		MarketID:        "mkt-1",
		Direction:       model.DirectionUp,
		EntryOdds:       0.40,
		Status:          model.TradeStatusOpen,
		OpenedAt:        closesAt.Add(-5 * time.Minute),
		WindowClosesAt:  closesAt,
		BTCPriceAtEntry: &entry,
	}
}

func TestResolveLeavesRunningWindowAlone(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := newStubSettler(openTrade(now.Add(2 * time.Minute)))

	r := newTestResolver(trades, &stubSnapshots{}, &stubPrices{}, now)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades.settled) != 0 || len(trades.expired) != 0 {
		t.Fatalf("trade must stay open while the window runs")
	}
}

func TestResolveByConvergedMarketUpWins(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	closesAt := now.Add(-time.Minute)
	trades := newStubSettler(openTrade(closesAt))

	snaps := &stubSnapshots{snaps: map[string]*model.MarketSnapshot{
		"mkt-1": {MarketID: "mkt-1", UpPrice: 0.98, DownPrice: 0.02, ObservedAt: now.Add(-10 * time.Second)},
	}}

	r := newTestResolver(trades, snaps, &stubPrices{}, now)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settlement, ok := trades.settled[1]
	if !ok {
		t.Fatal("expected trade settled")
	}
	if settlement.Outcome != model.DirectionUp {
		t.Fatalf("expected up outcome, got %s", settlement.Outcome)
	}
	if settlement.ResolvedVia != model.ResolvedViaMarket {
		t.Fatalf("expected market resolution, got %s", settlement.ResolvedVia)
	}
	if settlement.ExitOdds == nil || *settlement.ExitOdds != 0.98 {
		t.Fatalf("expected exit odds 0.98, got %v", settlement.ExitOdds)
	}
}

func TestResolveByConvergedMarketDownWins(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	closesAt := now.Add(-time.Minute)
	trades := newStubSettler(openTrade(closesAt))

	snaps := &stubSnapshots{snaps: map[string]*model.MarketSnapshot{
		"mkt-1": {MarketID: "mkt-1", UpPrice: 0.03, DownPrice: 0.97, ObservedAt: now.Add(-10 * time.Second)},
	}}

	r := newTestResolver(trades, snaps, &stubPrices{}, now)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settlement := trades.settled[1]
	if settlement.Outcome != model.DirectionDown {
		t.Fatalf("expected down outcome, got %s", settlement.Outcome)
	}
}

func TestResolvePreCloseSnapshotWaitsForGrace(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	closesAt := now.Add(-time.Minute)
	trades := newStubSettler(openTrade(closesAt))

	// Converged, but observed before the window closed and the grace period
	// has not elapsed. Could be a snapshot of the previous window's tail.
	snaps := &stubSnapshots{snaps: map[string]*model.MarketSnapshot{
		"mkt-1": {MarketID: "mkt-1", UpPrice: 0.98, DownPrice: 0.02, ObservedAt: closesAt.Add(-30 * time.Second)},
	}}

	r := newTestResolver(trades, snaps, &stubPrices{}, now)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades.settled) != 0 {
		t.Fatal("expected trade to wait for a post-close snapshot or the grace period")
	}
}

func TestResolvePreCloseSnapshotAcceptedAfterGrace(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	closesAt := now.Add(-11 * time.Minute)
	trades := newStubSettler(openTrade(closesAt))

	snaps := &stubSnapshots{snaps: map[string]*model.MarketSnapshot{
		"mkt-1": {MarketID: "mkt-1", UpPrice: 0.98, DownPrice: 0.02, ObservedAt: closesAt.Add(-30 * time.Second)},
	}}

	r := newTestResolver(trades, snaps, &stubPrices{}, now)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settlement, ok := trades.settled[1]
	if !ok {
		t.Fatal("expected settlement after the grace period")
	}
	if settlement.ResolvedVia != model.ResolvedViaMarket {
		t.Fatalf("expected market resolution, got %s", settlement.ResolvedVia)
	}
}

func TestResolveByPriceFallbackPastHardCeiling(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	closesAt := now.Add(-31 * time.Minute)
	trades := newStubSettler(openTrade(closesAt))

	// Unconverged snapshot keeps the market path closed.
	snaps := &stubSnapshots{snaps: map[string]*model.MarketSnapshot{
		"mkt-1": {MarketID: "mkt-1", UpPrice: 0.55, DownPrice: 0.45, ObservedAt: now},
	}}
	prices := &stubPrices{tick: &model.PriceTick{AssetID: "BTC", Price: 65500}}

	r := newTestResolver(trades, snaps, prices, now)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settlement, ok := trades.settled[1]
	if !ok {
		t.Fatal("expected price fallback settlement")
	}
	if settlement.ResolvedVia != model.ResolvedViaPriceFallback {
		t.Fatalf("expected price fallback, got %s", settlement.ResolvedVia)
	}
	if settlement.Outcome != model.DirectionUp {
		t.Fatalf("price rose above entry, expected up, got %s", settlement.Outcome)
	}
	if settlement.ExitOdds != nil {
		t.Fatalf("price fallback has no exit odds, got %v", settlement.ExitOdds)
	}
}

func TestResolveByPriceFallbackPriceFell(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	closesAt := now.Add(-31 * time.Minute)
	trades := newStubSettler(openTrade(closesAt))

	prices := &stubPrices{tick: &model.PriceTick{AssetID: "BTC", Price: 64000}}

	r := newTestResolver(trades, &stubSnapshots{}, prices, now)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trades.settled[1].Outcome != model.DirectionDown {
		t.Fatalf("price fell below entry, expected down, got %s", trades.settled[1].Outcome)
	}
}

func TestResolveMissingPriceReferenceStaysOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	closesAt := now.Add(-31 * time.Minute)
	trade := openTrade(closesAt)
	trade.BTCPriceAtEntry = nil
	trades := newStubSettler(trade)

	r := newTestResolver(trades, &stubSnapshots{}, &stubPrices{tick: &model.PriceTick{Price: 64000}}, now)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades.settled) != 0 || len(trades.expired) != 0 {
		t.Fatal("without an entry reference the trade must stay open until expiry")
	}
}

func TestResolveVoidsTradePastExpiryCeiling(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	closesAt := now.Add(-25 * time.Hour)
	trade := openTrade(closesAt)
	trade.BTCPriceAtEntry = nil
	trades := newStubSettler(trade)

	r := newTestResolver(trades, &stubSnapshots{}, &stubPrices{}, now)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := trades.expired[1]; !ok {
		t.Fatal("expected trade voided past the expiry ceiling")
	}
	if len(trades.settled) != 0 {
		t.Fatal("a voided trade must not also settle")
	}
}

func TestResolveLostRaceIsNotAnError(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	closesAt := now.Add(-time.Minute)
	trades := newStubSettler(openTrade(closesAt))
	trades.closeErr = repository.ErrTradeNotOpen

	snaps := &stubSnapshots{snaps: map[string]*model.MarketSnapshot{
		"mkt-1": {MarketID: "mkt-1", UpPrice: 0.98, DownPrice: 0.02, ObservedAt: now},
	}}

	r := newTestResolver(trades, snaps, &stubPrices{}, now)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("a lost settlement race must not surface as an error, got %v", err)
	}
}
