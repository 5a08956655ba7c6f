package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeStatusOpen    = "open"
	TradeStatusClosed  = "closed"
	TradeStatusExpired = "expired"
)

const (
	ResolvedViaMarket        = "market"
	ResolvedViaPriceFallback = "price_fallback"
)

// Trade is one paper position on a binary market window. AmountStaked buys
// AmountStaked / EntryOdds outcome tokens; a winning token pays 1, a losing
// token pays 0. Settlement fields stay nil until the resolver closes the
// trade.
type Trade struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ModelID uint `gorm:"index:idx_trades_model_status,priority:1;not null" json:"model_id"`

	MarketID   string `gorm:"size:100;index;not null" json:"market_id"`
	MarketName string `gorm:"size:255" json:"market_name"`

	Direction string `gorm:"size:10;not null" json:"direction"`

	AmountStaked   decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount_staked"`
	EntryOdds      float64         `gorm:"not null" json:"entry_odds"`
	TokensAcquired decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"tokens_acquired"`

	// Spot price at entry, the reference for price-fallback settlement.
	BTCPriceAtEntry *float64 `json:"btc_price_at_entry,omitempty"`

	OpenedAt       time.Time `gorm:"index;not null" json:"opened_at"`
	WindowClosesAt time.Time `gorm:"index;not null" json:"window_closes_at"`

	Status string `gorm:"size:10;index:idx_trades_model_status,priority:2;not null" json:"status"`

	ExitOdds    *float64         `json:"exit_odds,omitempty"`
	ClosedAt    *time.Time       `json:"closed_at,omitempty"`
	Payout      *decimal.Decimal `gorm:"type:decimal(20,8)" json:"payout,omitempty"`
	ProfitLoss  *decimal.Decimal `gorm:"type:decimal(20,8)" json:"profit_loss,omitempty"`
	ResolvedVia string           `gorm:"size:20" json:"resolved_via,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
