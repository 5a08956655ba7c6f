package aggregator

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"papertrader/src/model"
	"papertrader/src/repository"
)

type stubModels struct {
	models []model.StrategyModel
}

func (s *stubModels) ListActive(_ context.Context) ([]model.StrategyModel, error) {
	return s.models, nil
}

type stubSignals struct {
	signals map[model.SourceKind]model.Signal
}

func (s *stubSignals) LatestPerSource(_ context.Context, _ uint, _ time.Time) (map[model.SourceKind]model.Signal, error) {
	return s.signals, nil
}

type stubSnapshots struct {
	snaps []model.MarketSnapshot
}

func (s *stubSnapshots) LatestPerMarket(_ context.Context) ([]model.MarketSnapshot, error) {
	return s.snaps, nil
}

type stubPrices struct {
	tick *model.PriceTick
}

func (s *stubPrices) Latest(_ context.Context, _ string) (*model.PriceTick, error) {
	return s.tick, nil
}

type stubAccounts struct {
	account *model.PaperAccount
}

func (s *stubAccounts) FindByModelID(_ context.Context, _ uint) (*model.PaperAccount, error) {
	return s.account, nil
}

type stubTrades struct {
	open    *model.Trade
	openErr error
	opened  []*model.Trade
}

func (s *stubTrades) FindOpenByModel(_ context.Context, _ uint) (*model.Trade, error) {
	return s.open, nil
}

func (s *stubTrades) OpenWithDebit(_ context.Context, trade *model.Trade) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.opened = append(s.opened, trade)
	return nil
}

type stubRuns struct {
	created []*model.SignalRun
}

func (s *stubRuns) Create(_ context.Context, run *model.SignalRun) error {
	s.created = append(s.created, run)
	return nil
}

func signalsFor(values map[model.SourceKind]float64, observedAt time.Time) map[model.SourceKind]model.Signal {
	out := make(map[model.SourceKind]model.Signal, len(values))
	for source, v := range values {
		out[source] = model.Signal{Source: source, NormalizedValue: v, ObservedAt: observedAt}
	}
	return out
}

func TestWeightedScore(t *testing.T) {
	weights := map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.25,
		model.SourceMarketOdds:    0.10,
		model.SourceNewsSentiment: 0.20,
	}
	signals := signalsFor(map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.8,
		model.SourceMarketOdds:    0.4,
		model.SourceNewsSentiment: 0.2,
	}, time.Now())

	score, used := WeightedScore(weights, signals)

	// (0.25*0.8 + 0.10*0.4 + 0.20*0.2) / (0.25 + 0.10 + 0.20)
	want := 0.28 / 0.55
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("expected score %v, got %v", want, score)
	}
	if len(used) != 3 {
		t.Fatalf("expected 3 sources used, got %v", used)
	}
}

func TestWeightedScoreSkipsMissingAndZeroWeightSources(t *testing.T) {
	weights := map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.5,
		model.SourceMarketOdds:    0, // configured but disabled
		model.SourceNewsSentiment: 0.5,
	}
	// News has no fresh signal this cycle; odds has one but zero weight.
	signals := signalsFor(map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.6,
		model.SourceMarketOdds:    -1.0,
	}, time.Now())

	score, used := WeightedScore(weights, signals)

	if math.Abs(score-0.6) > 1e-9 {
		t.Fatalf("expected score 0.6 from momentum alone, got %v", score)
	}
	if len(used) != 1 || used[0] != model.SourcePriceMomentum {
		t.Fatalf("expected only momentum used, got %v", used)
	}
}

func TestWeightedScoreNegativeWeightInvertsSource(t *testing.T) {
	weights := map[model.SourceKind]float64{
		model.SourcePriceMomentum: -0.5,
	}
	signals := signalsFor(map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.8,
	}, time.Now())

	score, _ := WeightedScore(weights, signals)

	if math.Abs(score-(-0.8)) > 1e-9 {
		t.Fatalf("expected -0.8, got %v", score)
	}
}

func TestWeightedScoreNoUsableSources(t *testing.T) {
	score, used := WeightedScore(map[model.SourceKind]float64{
		model.SourceMacroIndex: 0.3,
	}, nil)

	if score != 0 || used != nil {
		t.Fatalf("expected zero score and nil sources, got %v %v", score, used)
	}
}

func TestWeightedScoreUsedOrderIsStable(t *testing.T) {
	weights := map[model.SourceKind]float64{}
	values := map[model.SourceKind]float64{}
	for _, source := range model.AllSources {
		weights[source] = 0.25
		values[source] = 0.5
	}
	signals := signalsFor(values, time.Now())

	_, used := WeightedScore(weights, signals)

	for i, source := range model.AllSources {
		if used[i] != source {
			t.Fatalf("expected stable source order %v, got %v", model.AllSources, used)
		}
	}
}

func newTestAggregator(
	signals map[model.SourceKind]model.Signal,
	snaps []model.MarketSnapshot,
	account *model.PaperAccount,
	trades *stubTrades,
	runs *stubRuns,
	now time.Time,
) *Aggregator {

	a := New(
		Config{
			CycleInterval:    5 * time.Minute,
			StalenessWindow:  2 * time.Hour,
			MinTimeRemaining: 30 * time.Second,
			AssetID:          "BTC",
		},
		&stubModels{models: []model.StrategyModel{{
			ID:   1,
			Name: "Balanced",
			SignalWeights: map[model.SourceKind]float64{
				model.SourcePriceMomentum: 0.25,
				model.SourceMarketOdds:    0.10,
				model.SourceNewsSentiment: 0.20,
			},
			BetThreshold: 0.45,
			MaxBetAmount: decimal.NewFromInt(10),
			Active:       true,
		}}},
		&stubSignals{signals: signals},
		&stubSnapshots{snaps: snaps},
		&stubPrices{tick: &model.PriceTick{AssetID: "BTC", Price: 65000}},
		&stubAccounts{account: account},
		trades,
		runs,
	)
	a.now = func() time.Time { return now }
	return a
}

func openMarket(now time.Time) []model.MarketSnapshot {
	remaining := 240
	return []model.MarketSnapshot{{
		MarketID:             "mkt-1",
		Name:                 "Bitcoin Up or Down?",
		UpPrice:              0.40,
		DownPrice:            0.60,
		TimeRemainingSeconds: &remaining,
		ObservedAt:           now,
	}}
}

func TestRunPlacesBetAboveThreshold(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := &stubTrades{}
	runs := &stubRuns{}

	signals := signalsFor(map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.8,
		model.SourceMarketOdds:    0.4,
		model.SourceNewsSentiment: 0.2,
	}, now)

	account := &model.PaperAccount{ModelID: 1, Balance: decimal.NewFromInt(100)}
	a := newTestAggregator(signals, openMarket(now), account, trades, runs, now)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades.opened) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades.opened))
	}
	trade := trades.opened[0]

	if trade.Direction != model.DirectionUp {
		t.Fatalf("expected up bet, got %s", trade.Direction)
	}
	if trade.EntryOdds != 0.40 {
		t.Fatalf("expected entry at the up price 0.40, got %v", trade.EntryOdds)
	}
	if !trade.AmountStaked.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected the max bet staked, got %s", trade.AmountStaked)
	}
	if !trade.TokensAcquired.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected 25 tokens at 0.40, got %s", trade.TokensAcquired)
	}
	if trade.BTCPriceAtEntry == nil || *trade.BTCPriceAtEntry != 65000 {
		t.Fatalf("expected entry price 65000 recorded, got %v", trade.BTCPriceAtEntry)
	}
	if got := trade.WindowClosesAt; !got.Equal(now.Add(240 * time.Second)) {
		t.Fatalf("expected window close at +240s, got %v", got)
	}

	if len(runs.created) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs.created))
	}
	if runs.created[0].ActionTaken != model.ActionBet {
		t.Fatalf("expected bet action, got %s", runs.created[0].ActionTaken)
	}
}

func TestRunWatchesBelowThreshold(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := &stubTrades{}
	runs := &stubRuns{}

	signals := signalsFor(map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.3,
		model.SourceMarketOdds:    0.1,
		model.SourceNewsSentiment: 0.1,
	}, now)

	account := &model.PaperAccount{ModelID: 1, Balance: decimal.NewFromInt(100)}
	a := newTestAggregator(signals, openMarket(now), account, trades, runs, now)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades.opened) != 0 {
		t.Fatalf("expected no trade below threshold")
	}
	run := runs.created[0]
	if run.ActionTaken != model.ActionWatch {
		t.Fatalf("expected watch action, got %s", run.ActionTaken)
	}
	if !strings.Contains(run.Reasoning, "below threshold") {
		t.Fatalf("expected threshold reasoning, got %q", run.Reasoning)
	}
}

func TestRunWatchesOnExactTie(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := &stubTrades{}
	runs := &stubRuns{}

	signals := signalsFor(map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.4,
		model.SourceMarketOdds:    -1.0,
	}, now)

	account := &model.PaperAccount{ModelID: 1, Balance: decimal.NewFromInt(100)}
	a := newTestAggregator(signals, openMarket(now), account, trades, runs, now)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := runs.created[0]
	if run.Direction != model.DirectionNone {
		t.Fatalf("expected no direction on a tie, got %s", run.Direction)
	}
	if run.ActionTaken != model.ActionWatch {
		t.Fatalf("expected watch on a tie, got %s", run.ActionTaken)
	}
	if len(trades.opened) != 0 {
		t.Fatalf("a tie must never bet")
	}
}

func TestRunWatchesWithNoFreshSignals(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := &stubTrades{}
	runs := &stubRuns{}

	account := &model.PaperAccount{ModelID: 1, Balance: decimal.NewFromInt(100)}
	a := newTestAggregator(nil, openMarket(now), account, trades, runs, now)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := runs.created[0]
	if run.ActionTaken != model.ActionWatch {
		t.Fatalf("expected watch, got %s", run.ActionTaken)
	}
	if !strings.Contains(run.Reasoning, "no fresh signals") {
		t.Fatalf("expected missing-signals reasoning, got %q", run.Reasoning)
	}
}

func TestRunWatchesWhenPositionAlreadyOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := &stubTrades{open: &model.Trade{ID: 7, MarketID: "mkt-0", Status: model.TradeStatusOpen}}
	runs := &stubRuns{}

	signals := signalsFor(map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.8,
		model.SourceMarketOdds:    0.8,
		model.SourceNewsSentiment: 0.8,
	}, now)

	account := &model.PaperAccount{ModelID: 1, Balance: decimal.NewFromInt(100)}
	a := newTestAggregator(signals, openMarket(now), account, trades, runs, now)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades.opened) != 0 {
		t.Fatalf("expected no second position")
	}
	if !strings.Contains(runs.created[0].Reasoning, "already open") {
		t.Fatalf("expected open-position reasoning, got %q", runs.created[0].Reasoning)
	}
}

func TestRunWatchesWhenWindowNearlyClosed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := &stubTrades{}
	runs := &stubRuns{}

	remaining := 10
	snaps := []model.MarketSnapshot{{
		MarketID:             "mkt-1",
		UpPrice:              0.40,
		DownPrice:            0.60,
		TimeRemainingSeconds: &remaining,
		ObservedAt:           now,
	}}

	signals := signalsFor(map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.8,
		model.SourceMarketOdds:    0.8,
		model.SourceNewsSentiment: 0.8,
	}, now)

	account := &model.PaperAccount{ModelID: 1, Balance: decimal.NewFromInt(100)}
	a := newTestAggregator(signals, snaps, account, trades, runs, now)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades.opened) != 0 {
		t.Fatalf("expected no bet with %ds remaining", remaining)
	}
	if !strings.Contains(runs.created[0].Reasoning, "safety margin") {
		t.Fatalf("expected time-remaining reasoning, got %q", runs.created[0].Reasoning)
	}
}

func TestRunStakeCappedByBalance(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := &stubTrades{}
	runs := &stubRuns{}

	signals := signalsFor(map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.8,
		model.SourceMarketOdds:    0.8,
		model.SourceNewsSentiment: 0.8,
	}, now)

	account := &model.PaperAccount{ModelID: 1, Balance: decimal.NewFromFloat(3.5)}
	a := newTestAggregator(signals, openMarket(now), account, trades, runs, now)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades.opened) != 1 {
		t.Fatalf("expected a bet with the remaining balance")
	}
	if !trades.opened[0].AmountStaked.Equal(decimal.NewFromFloat(3.5)) {
		t.Fatalf("expected stake capped at balance 3.5, got %s", trades.opened[0].AmountStaked)
	}
}

func TestRunBetSuppressedAtCommit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := &stubTrades{openErr: repository.ErrOpenPositionExists}
	runs := &stubRuns{}

	signals := signalsFor(map[model.SourceKind]float64{
		model.SourcePriceMomentum: 0.8,
		model.SourceMarketOdds:    0.8,
		model.SourceNewsSentiment: 0.8,
	}, now)

	account := &model.PaperAccount{ModelID: 1, Balance: decimal.NewFromInt(100)}
	a := newTestAggregator(signals, openMarket(now), account, trades, runs, now)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("suppression must not surface as an error, got %v", err)
	}

	run := runs.created[0]
	if run.ActionTaken != model.ActionWatch {
		t.Fatalf("expected watch after commit suppression, got %s", run.ActionTaken)
	}
	if !strings.Contains(run.Reasoning, "bet suppressed at commit") {
		t.Fatalf("expected suppression reasoning, got %q", run.Reasoning)
	}
}

func TestCurrentMarketAgesRemainingTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := &stubTrades{}
	runs := &stubRuns{}

	stale := 120
	fresh := 90
	snaps := []model.MarketSnapshot{
		{MarketID: "old", TimeRemainingSeconds: &stale, ObservedAt: now.Add(-3 * time.Minute)},
		{MarketID: "new", TimeRemainingSeconds: &fresh, ObservedAt: now.Add(-10 * time.Second)},
	}

	account := &model.PaperAccount{ModelID: 1, Balance: decimal.NewFromInt(100)}
	a := newTestAggregator(nil, snaps, account, trades, runs, now)

	market := a.currentMarket(context.Background(), now)
	if market == nil {
		t.Fatal("expected a market")
	}
	// "old" had 120s at observation but 180s have passed since.
	if market.MarketID != "new" {
		t.Fatalf("expected the still-open market, got %s", market.MarketID)
	}
}
