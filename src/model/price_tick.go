package model

import "time"

// PriceTick is one spot price observation. Ticks feed the momentum signal and
// serve as the reference for price-fallback settlement.
type PriceTick struct {
	ID uint `gorm:"primaryKey" json:"id"`

	AssetID string  `gorm:"size:20;index;not null" json:"asset_id"`
	Price   float64 `gorm:"not null" json:"price"`

	Volume24h float64 `json:"volume_24h"`
	Change24h float64 `json:"change_24h"`

	ObservedAt time.Time `gorm:"index;not null" json:"observed_at"`
	CreatedAt  time.Time `json:"created_at"`
}
