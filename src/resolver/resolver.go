package resolver

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/model"
	"papertrader/src/repository"
)

type tradeSettler interface {
	FindOpen(ctx context.Context) ([]model.Trade, error)
	CloseWithSettlement(ctx context.Context, tradeID uint, settlement repository.Settlement) error
	ExpireWithRefund(ctx context.Context, tradeID uint, closedAt time.Time) error
}

type snapshotReader interface {
	LatestByMarket(ctx context.Context, marketID string) (*model.MarketSnapshot, error)
}

type priceReader interface {
	Latest(ctx context.Context, assetID string) (*model.PriceTick, error)
}

// Resolver reconciles open trades against market reality. In order of
// preference: authoritative market resolution (converged odds), the same
// after a grace period for late snapshots, and finally a price-comparison
// fallback past the hard ceiling so every trade eventually closes even when
// the market source stalls.
type Resolver struct {
	cfg       Config
	trades    tradeSettler
	snapshots snapshotReader
	prices    priceReader
	now       func() time.Time
}

func New(cfg Config, trades tradeSettler, snapshots snapshotReader, prices priceReader) *Resolver {
	return &Resolver{
		cfg:       cfg,
		trades:    trades,
		snapshots: snapshots,
		prices:    prices,
		now:       time.Now,
	}
}

func (r *Resolver) Name() string {
	return "resolver"
}

func (r *Resolver) Interval() time.Duration {
	return r.cfg.CycleInterval
}

// Run inspects every open trade once. A trade that cannot be resolved yet is
// left open silently; per-trade settlement errors are logged and do not stop
// the sweep.
func (r *Resolver) Run(ctx context.Context) error {
	trades, err := r.trades.FindOpen(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for i := range trades {
		if err := r.resolveTrade(ctx, &trades[i]); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (r *Resolver) resolveTrade(ctx context.Context, trade *model.Trade) error {
	now := r.now()

	if now.Before(trade.WindowClosesAt) {
		// Window still running, nothing to do.
		return nil
	}
	elapsed := now.Sub(trade.WindowClosesAt)

	snap, err := r.snapshots.LatestByMarket(ctx, trade.MarketID)
	if err != nil {
		return err
	}

	if outcome, exitOdds, ok := r.marketOutcome(trade, snap, elapsed); ok {
		return r.settle(ctx, trade, repository.Settlement{
			Outcome:     outcome,
			ExitOdds:    &exitOdds,
			ResolvedVia: model.ResolvedViaMarket,
			ClosedAt:    now,
		})
	}

	if elapsed >= r.cfg.HardCeiling {
		return r.resolveByPrice(ctx, trade, elapsed, now)
	}

	logger.WithFields(map[string]interface{}{
		"trade_id":  trade.ID,
		"market_id": trade.MarketID,
		"elapsed":   elapsed.String(),
	}).Debug("Trade awaiting market resolution")

	return nil
}

// marketOutcome checks the authoritative resolution paths: a post-close
// snapshot with converged odds, or within the grace period any converged
// snapshot (covers snapshots delivered late relative to the window close).
func (r *Resolver) marketOutcome(
	trade *model.Trade,
	snap *model.MarketSnapshot,
	elapsed time.Duration,
) (string, float64, bool) {

	if snap == nil || !snap.OddsConverged(r.cfg.ConvergenceThreshold) {
		return "", 0, false
	}

	postClose := !snap.ObservedAt.Before(trade.WindowClosesAt)
	if !postClose && elapsed < r.cfg.GracePeriod {
		return "", 0, false
	}

	outcome := model.DirectionDown
	if snap.UpPrice >= r.cfg.ConvergenceThreshold {
		outcome = model.DirectionUp
	}
	return outcome, snap.UpPrice, true
}

// resolveByPrice is the hard-ceiling fallback: compare the entry price with
// the latest observed price. Missing references leave the trade open, an
// accepted degraded state, until the expiry ceiling voids it.
func (r *Resolver) resolveByPrice(
	ctx context.Context,
	trade *model.Trade,
	elapsed time.Duration,
	now time.Time,
) error {

	tick, err := r.prices.Latest(ctx, r.cfg.AssetID)
	if err != nil {
		return err
	}

	if trade.BTCPriceAtEntry == nil || tick == nil {
		if elapsed >= r.cfg.ExpiryCeiling {
			logger.WithFields(map[string]interface{}{
				"trade_id": trade.ID,
				"elapsed":  elapsed.String(),
			}).Warn("No price reference past expiry ceiling, voiding trade")
			return r.expire(ctx, trade, now)
		}

		logger.WithFields(map[string]interface{}{
			"trade_id":        trade.ID,
			"has_entry_price": trade.BTCPriceAtEntry != nil,
			"has_price_tick":  tick != nil,
		}).Warn("Price fallback lacks a reference, trade stays open")
		return nil
	}

	outcome := model.DirectionDown
	if tick.Price > *trade.BTCPriceAtEntry {
		outcome = model.DirectionUp
	}

	return r.settle(ctx, trade, repository.Settlement{
		Outcome:     outcome,
		ResolvedVia: model.ResolvedViaPriceFallback,
		ClosedAt:    now,
	})
}

func (r *Resolver) settle(ctx context.Context, trade *model.Trade, settlement repository.Settlement) error {
	err := r.trades.CloseWithSettlement(ctx, trade.ID, settlement)
	if err != nil {
		if errors.Is(err, repository.ErrTradeNotOpen) {
			// Another cycle won the race; the guard kept the ledger intact.
			logger.WithField("trade_id", trade.ID).
				Error("Settlement skipped: trade was no longer open")
			return nil
		}
		logger.WithError(err).
			WithField("trade_id", trade.ID).
			Error("Failed to settle trade")
		return err
	}

	return nil
}

func (r *Resolver) expire(ctx context.Context, trade *model.Trade, now time.Time) error {
	err := r.trades.ExpireWithRefund(ctx, trade.ID, now)
	if err != nil {
		if errors.Is(err, repository.ErrTradeNotOpen) {
			return nil
		}
		logger.WithError(err).
			WithField("trade_id", trade.ID).
			Error("Failed to expire trade")
		return err
	}
	return nil
}
