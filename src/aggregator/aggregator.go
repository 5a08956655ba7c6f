package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"papertrader/src/model"
	"papertrader/src/repository"
)

type modelLister interface {
	ListActive(ctx context.Context) ([]model.StrategyModel, error)
}

type signalReader interface {
	LatestPerSource(ctx context.Context, modelID uint, since time.Time) (map[model.SourceKind]model.Signal, error)
}

type snapshotReader interface {
	LatestPerMarket(ctx context.Context) ([]model.MarketSnapshot, error)
}

type priceReader interface {
	Latest(ctx context.Context, assetID string) (*model.PriceTick, error)
}

type accountReader interface {
	FindByModelID(ctx context.Context, modelID uint) (*model.PaperAccount, error)
}

type tradeStore interface {
	FindOpenByModel(ctx context.Context, modelID uint) (*model.Trade, error)
	OpenWithDebit(ctx context.Context, trade *model.Trade) error
}

type runWriter interface {
	Create(ctx context.Context, run *model.SignalRun) error
}

// Aggregator fuses each active model's freshest signals into a directional
// score and decides bet or watch. Every evaluated model gets a SignalRun; a
// bet additionally opens a trade with its ledger debit in one store
// transaction.
type Aggregator struct {
	cfg       Config
	models    modelLister
	signals   signalReader
	snapshots snapshotReader
	prices    priceReader
	accounts  accountReader
	trades    tradeStore
	runs      runWriter
	now       func() time.Time
}

func New(
	cfg Config,
	models modelLister,
	signals signalReader,
	snapshots snapshotReader,
	prices priceReader,
	accounts accountReader,
	trades tradeStore,
	runs runWriter,
) *Aggregator {
	return &Aggregator{
		cfg:       cfg,
		models:    models,
		signals:   signals,
		snapshots: snapshots,
		prices:    prices,
		accounts:  accounts,
		trades:    trades,
		runs:      runs,
		now:       time.Now,
	}
}

func (a *Aggregator) Name() string {
	return "aggregator"
}

func (a *Aggregator) Interval() time.Duration {
	return a.cfg.CycleInterval
}

// Run evaluates every active model once. Per-model failures are logged and do
// not stop the remaining models.
func (a *Aggregator) Run(ctx context.Context) error {
	now := a.now()
	cycleID := uuid.NewString()

	models, err := a.models.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		logger.Debug("No active models, skipping aggregation cycle")
		return nil
	}

	market := a.currentMarket(ctx, now)

	var firstErr error
	for i := range models {
		if err := a.evaluateModel(ctx, &models[i], market, cycleID, now); err != nil {
			logger.WithError(err).
				WithField("model_id", models[i].ID).
				Error("Failed to evaluate model this cycle")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// currentMarket picks the freshest open market window from the snapshot
// store: the one with the most time remaining. Returns nil when no usable
// window is known, which forces every model to watch.
func (a *Aggregator) currentMarket(ctx context.Context, now time.Time) *model.MarketSnapshot {
	snaps, err := a.snapshots.LatestPerMarket(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to read market snapshots, models will watch")
		return nil
	}

	var best *model.MarketSnapshot
	for i := range snaps {
		snap := &snaps[i]
		if snap.TimeRemainingSeconds == nil {
			continue
		}
		remaining := *snap.TimeRemainingSeconds - int(now.Sub(snap.ObservedAt).Seconds())
		if remaining <= 0 {
			continue
		}
		if best == nil || remaining > a.remainingSeconds(best, now) {
			best = snap
		}
	}

	return best
}

func (a *Aggregator) remainingSeconds(snap *model.MarketSnapshot, now time.Time) int {
	if snap.TimeRemainingSeconds == nil {
		return 0
	}
	return *snap.TimeRemainingSeconds - int(now.Sub(snap.ObservedAt).Seconds())
}

func (a *Aggregator) evaluateModel(
	ctx context.Context,
	m *model.StrategyModel,
	market *model.MarketSnapshot,
	cycleID string,
	now time.Time,
) error {

	signals, err := a.signals.LatestPerSource(ctx, m.ID, now.Add(-a.cfg.StalenessWindow))
	if err != nil {
		return err
	}

	score, used := WeightedScore(m.SignalWeights, signals)

	run := &model.SignalRun{
		ModelID:         m.ID,
		CycleID:         cycleID,
		AggregatedScore: score,
		Direction:       directionOf(score),
		Confidence:      confidenceOf(score),
		SourcesUsed:     used,
		ActionTaken:     model.ActionWatch,
		ObservedAt:      now,
	}

	decision := a.decide(ctx, m, market, run, now)
	run.Reasoning = decision.reasoning

	if decision.bet {
		trade := a.buildTrade(ctx, m, market, run, decision, now)

		err := a.trades.OpenWithDebit(ctx, trade)
		switch {
		case err == nil:
			run.ActionTaken = model.ActionBet
			logger.WithFields(map[string]interface{}{
				"model_id":  m.ID,
				"market_id": trade.MarketID,
				"direction": trade.Direction,
				"stake":     trade.AmountStaked.String(),
				"cycle_id":  cycleID,
			}).Info("Bet placed")
		case errors.Is(err, repository.ErrOpenPositionExists),
			errors.Is(err, repository.ErrInsufficientBalance):
			// Decision suppression from a concurrent cycle, not a failure.
			run.Reasoning = fmt.Sprintf("bet suppressed at commit: %v", err)
		default:
			return err
		}
	}

	return a.runs.Create(ctx, run)
}

type decision struct {
	bet       bool
	stake     decimal.Decimal
	entryOdds float64
	reasoning string
}

// decide applies the gate chain. Everything that suppresses a bet is a
// normal condition, recorded as reasoning on the watch run.
func (a *Aggregator) decide(
	ctx context.Context,
	m *model.StrategyModel,
	market *model.MarketSnapshot,
	run *model.SignalRun,
	now time.Time,
) decision {

	if len(run.SourcesUsed) == 0 {
		return decision{reasoning: "no fresh signals within staleness window"}
	}
	if run.Direction == model.DirectionNone {
		return decision{reasoning: "signals exactly balanced, no directional conviction"}
	}
	if run.Confidence < m.BetThreshold {
		return decision{reasoning: fmt.Sprintf("confidence %.3f below threshold %.3f", run.Confidence, m.BetThreshold)}
	}

	open, err := a.trades.FindOpenByModel(ctx, m.ID)
	if err != nil {
		return decision{reasoning: fmt.Sprintf("could not check open position: %v", err)}
	}
	if open != nil {
		return decision{reasoning: fmt.Sprintf("position already open on market %s", open.MarketID)}
	}

	if market == nil {
		return decision{reasoning: "no market window currently tracked"}
	}
	remaining := a.remainingSeconds(market, now)
	if remaining < int(a.cfg.MinTimeRemaining.Seconds()) {
		return decision{reasoning: fmt.Sprintf("only %ds left in window, below safety margin", remaining)}
	}

	entryOdds := market.UpPrice
	if run.Direction == model.DirectionDown {
		entryOdds = market.DownPrice
	}
	if entryOdds <= 0 || entryOdds >= 1 {
		return decision{reasoning: fmt.Sprintf("entry odds %.3f unusable", entryOdds)}
	}

	account, err := a.accounts.FindByModelID(ctx, m.ID)
	if err != nil || account == nil {
		return decision{reasoning: "paper account unavailable"}
	}
	if account.Balance.LessThanOrEqual(decimal.Zero) {
		return decision{reasoning: "insufficient balance"}
	}

	stake := m.MaxBetAmount
	if account.Balance.LessThan(stake) {
		stake = account.Balance
	}

	return decision{
		bet:       true,
		stake:     stake,
		entryOdds: entryOdds,
		reasoning: fmt.Sprintf("confidence %.3f >= threshold %.3f, betting %s on %s", run.Confidence, m.BetThreshold, run.Direction, market.MarketID),
	}
}

func (a *Aggregator) buildTrade(
	ctx context.Context,
	m *model.StrategyModel,
	market *model.MarketSnapshot,
	run *model.SignalRun,
	d decision,
	now time.Time,
) *model.Trade {

	trade := &model.Trade{
		ModelID:        m.ID,
		MarketID:       market.MarketID,
		MarketName:     market.Name,
		Direction:      run.Direction,
		AmountStaked:   d.stake,
		EntryOdds:      d.entryOdds,
		TokensAcquired: d.stake.Div(decimal.NewFromFloat(d.entryOdds)),
		OpenedAt:       now,
		WindowClosesAt: now.Add(time.Duration(a.remainingSeconds(market, now)) * time.Second),
		Status:         model.TradeStatusOpen,
	}

	if tick, err := a.prices.Latest(ctx, a.cfg.AssetID); err == nil && tick != nil {
		price := tick.Price
		trade.BTCPriceAtEntry = &price
	}

	return trade
}

// WeightedScore computes the weighted average of the model's available
// signals, restricted to the sources that actually have a fresh signal and a
// nonzero weight: sum(w*s) / sum(|w|). Returns the sources used in stable
// order.
func WeightedScore(
	weights map[model.SourceKind]float64,
	signals map[model.SourceKind]model.Signal,
) (float64, []model.SourceKind) {

	var weighted, norm float64
	used := make([]model.SourceKind, 0, len(signals))

	for _, source := range model.AllSources {
		weight, hasWeight := weights[source]
		sig, hasSignal := signals[source]
		if !hasWeight || weight == 0 || !hasSignal {
			continue
		}

		weighted += weight * sig.NormalizedValue
		norm += abs(weight)
		used = append(used, source)
	}

	if norm == 0 {
		return 0, nil
	}
	return weighted / norm, used
}

func directionOf(score float64) string {
	switch {
	case score > 0:
		return model.DirectionUp
	case score < 0:
		return model.DirectionDown
	default:
		return model.DirectionNone
	}
}

func confidenceOf(score float64) float64 {
	return abs(score)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
