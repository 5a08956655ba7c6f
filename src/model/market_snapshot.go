package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is one observation of a binary prediction market: the Up and
// Down outcome prices (implied probabilities) and how long the window has
// left. Snapshots are append-only; the latest one per market is the current
// view.
type MarketSnapshot struct {
	ID uint `gorm:"primaryKey" json:"id"`

	MarketID string `gorm:"size:100;index;not null" json:"market_id"`
	Name     string `gorm:"size:255" json:"name"`

	UpPrice   float64 `gorm:"not null" json:"up_price"`
	DownPrice float64 `gorm:"not null" json:"down_price"`

	Volume decimal.Decimal `gorm:"type:decimal(24,8)" json:"volume"`

	// Seconds left in the window at observation time, when the source reported
	// an end date. Consumers age this against ObservedAt.
	TimeRemainingSeconds *int `json:"time_remaining_seconds,omitempty"`

	ObservedAt time.Time `gorm:"index;not null" json:"observed_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// OddsConverged reports whether the market has effectively decided: the Up
// price has collapsed to one side of the threshold.
func (s *MarketSnapshot) OddsConverged(threshold float64) bool {
	return s.UpPrice >= threshold || s.UpPrice <= 1-threshold
}
