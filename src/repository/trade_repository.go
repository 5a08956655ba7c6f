package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/model"
)

// TradeRepository handles trades and the ledger mutations tied to them.
// Opening and settling are single transactions so a trade can never exist in
// a state the account does not reflect.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new repository instance bound to the given
// database handle.
func NewTradeRepository(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Settlement describes how the resolver decided an open trade.
type Settlement struct {
	Outcome     string // model.DirectionUp or model.DirectionDown
	ExitOdds    *float64
	ResolvedVia string // model.ResolvedViaMarket or model.ResolvedViaPriceFallback
	ClosedAt    time.Time
}

// OpenWithDebit creates the trade and debits its stake from the model's paper
// account in one transaction. The single-position rule and the balance floor
// are re-checked inside the transaction, so concurrent cycles cannot race a
// second open position or a negative balance past the aggregator's own checks.
func (r *TradeRepository) OpenWithDebit(
	ctx context.Context,
	trade *model.Trade,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":      "TradeRepository",
		"op":        "OpenWithDebit",
		"model_id":  trade.ModelID,
		"market_id": trade.MarketID,
		"direction": trade.Direction,
		"stake":     trade.AmountStaked.String(),
	}).Debug("Opening trade with ledger debit")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var openCount int64
		if err := tx.Model(&model.Trade{}).
			Where("model_id = ? AND status = ?", trade.ModelID, model.TradeStatusOpen).
			Count(&openCount).Error; err != nil {
			return err
		}
		if openCount > 0 {
			return ErrOpenPositionExists
		}

		var account model.PaperAccount
		if err := tx.Where("model_id = ?", trade.ModelID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountMissing
			}
			return err
		}

		if account.Balance.LessThan(trade.AmountStaked) {
			return ErrInsufficientBalance
		}

		if err := tx.Model(&model.PaperAccount{}).
			Where("id = ?", account.ID).
			Update("balance", account.Balance.Sub(trade.AmountStaked)).Error; err != nil {
			return err
		}

		trade.Status = model.TradeStatusOpen
		return tx.Create(trade).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "OpenWithDebit",
			"model_id": trade.ModelID,
		}).WithError(err).Error("Failed to open trade")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":      "TradeRepository",
		"op":        "OpenWithDebit",
		"trade_id":  trade.ID,
		"model_id":  trade.ModelID,
		"market_id": trade.MarketID,
	}).Info("Trade opened and stake debited")

	return nil
}

// CloseWithSettlement transitions one open trade to closed and applies the
// result to the paper account in the same transaction. The status update is
// guarded on the trade still being open; zero affected rows aborts the unit
// with ErrTradeNotOpen, which is how a double settlement surfaces.
func (r *TradeRepository) CloseWithSettlement(
	ctx context.Context,
	tradeID uint,
	settlement Settlement,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":         "TradeRepository",
		"op":           "CloseWithSettlement",
		"trade_id":     tradeID,
		"outcome":      settlement.Outcome,
		"resolved_via": settlement.ResolvedVia,
	}).Debug("Settling trade")

	var won bool
	var profitLoss decimal.Decimal

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trade model.Trade
		if err := tx.First(&trade, tradeID).Error; err != nil {
			return err
		}
		if trade.Status != model.TradeStatusOpen {
			return ErrTradeNotOpen
		}

		won = settlement.Outcome == trade.Direction
		payout := decimal.Zero
		if won {
			payout = trade.TokensAcquired
		}
		profitLoss = payout.Sub(trade.AmountStaked)

		res := tx.Model(&model.Trade{}).
			Where("id = ? AND status = ?", tradeID, model.TradeStatusOpen).
			Updates(map[string]interface{}{
				"status":       model.TradeStatusClosed,
				"exit_odds":    settlement.ExitOdds,
				"closed_at":    settlement.ClosedAt,
				"payout":       payout,
				"profit_loss":  profitLoss,
				"resolved_via": settlement.ResolvedVia,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTradeNotOpen
		}

		var account model.PaperAccount
		if err := tx.Where("model_id = ?", trade.ModelID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountMissing
			}
			return err
		}

		account.ApplySettlement(won, payout)

		return tx.Model(&model.PaperAccount{}).
			Where("id = ?", account.ID).
			Updates(map[string]interface{}{
				"balance":        account.Balance,
				"total_trades":   account.TotalTrades,
				"wins":           account.Wins,
				"losses":         account.Losses,
				"current_streak": account.CurrentStreak,
				"best_streak":    account.BestStreak,
			}).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "CloseWithSettlement",
			"trade_id": tradeID,
		}).WithError(err).Error("Failed to settle trade")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":         "TradeRepository",
		"op":           "CloseWithSettlement",
		"trade_id":     tradeID,
		"won":          won,
		"profit_loss":  profitLoss.String(),
		"resolved_via": settlement.ResolvedVia,
	}).Info("Trade settled")

	return nil
}

// ExpireWithRefund voids one open trade that can never be settled: the stake
// returns to the account and the trade counts as neither win nor loss. Guarded
// the same way as CloseWithSettlement.
func (r *TradeRepository) ExpireWithRefund(
	ctx context.Context,
	tradeID uint,
	closedAt time.Time,
) error {

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trade model.Trade
		if err := tx.First(&trade, tradeID).Error; err != nil {
			return err
		}
		if trade.Status != model.TradeStatusOpen {
			return ErrTradeNotOpen
		}

		res := tx.Model(&model.Trade{}).
			Where("id = ? AND status = ?", tradeID, model.TradeStatusOpen).
			Updates(map[string]interface{}{
				"status":      model.TradeStatusExpired,
				"closed_at":   closedAt,
				"payout":      trade.AmountStaked,
				"profit_loss": decimal.Zero,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTradeNotOpen
		}

		return tx.Model(&model.PaperAccount{}).
			Where("model_id = ?", trade.ModelID).
			Update("balance", gorm.Expr("balance + ?", trade.AmountStaked)).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "ExpireWithRefund",
			"trade_id": tradeID,
		}).WithError(err).Error("Failed to expire trade")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "ExpireWithRefund",
		"trade_id": tradeID,
	}).Warn("Trade expired, stake refunded")

	return nil
}

// FindOpen returns every open trade, oldest first.
func (r *TradeRepository) FindOpen(
	ctx context.Context,
) ([]model.Trade, error) {

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("status = ?", model.TradeStatusOpen).
		Order("opened_at ASC").
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "FindOpen",
		}).WithError(err).Error("Failed to fetch open trades")
		return nil, err
	}

	return trades, nil
}

// FindOpenByModel returns the model's open trade, if any.
// Returns (nil, nil) when the model holds no position.
func (r *TradeRepository) FindOpenByModel(
	ctx context.Context,
	modelID uint,
) (*model.Trade, error) {

	var trade model.Trade

	err := r.db.WithContext(ctx).
		Where("model_id = ? AND status = ?", modelID, model.TradeStatusOpen).
		First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "FindOpenByModel",
			"model_id": modelID,
		}).WithError(err).Error("Failed to fetch open trade for model")
		return nil, err
	}

	return &trade, nil
}

// FindLatest returns the latest trades in any status, newest first.
func (r *TradeRepository) FindLatest(
	ctx context.Context,
	limit int,
) ([]model.Trade, error) {

	if limit <= 0 {
		limit = 50
	}

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "TradeRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest trades")
		return nil, err
	}

	return trades, nil
}

// FindClosedLatest returns recently settled trades, newest first. Feeds the
// activity stream.
func (r *TradeRepository) FindClosedLatest(
	ctx context.Context,
	limit int,
) ([]model.Trade, error) {

	if limit <= 0 {
		limit = 20
	}

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("status <> ?", model.TradeStatusOpen).
		Order("closed_at DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "TradeRepository",
			"op":    "FindClosedLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch closed trades")
		return nil, err
	}

	return trades, nil
}
