package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StrategyModel is one configured betting strategy: a weight per signal
// source, a confidence threshold and a stake cap. Each model bets from its own
// paper account and holds at most one open position at a time.
type StrategyModel struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`

	// Weight per source. Negative weights invert a feed; a missing or zero
	// weight excludes the source from the model's score entirely.
	SignalWeights map[SourceKind]float64 `gorm:"serializer:json" json:"signal_weights"`

	// Minimum confidence (absolute aggregated score) required to bet.
	BetThreshold float64 `gorm:"not null" json:"bet_threshold"`

	// Stake cap per trade, in account currency.
	MaxBetAmount decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"max_bet_amount"`

	Active bool `gorm:"index;not null;default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
