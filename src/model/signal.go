package model

import "time"

// Signal is one observation from a collector, fanned out per strategy model
// at write time. NormalizedValue is always within [-1, 1]; RawValue keeps the
// source's native unit for inspection.
type Signal struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ModelID uint       `gorm:"index:idx_signals_model_source,priority:1;not null" json:"model_id"`
	Source  SourceKind `gorm:"size:50;index:idx_signals_model_source,priority:2;not null" json:"source"`

	RawValue        float64 `json:"raw_value"`
	NormalizedValue float64 `gorm:"not null" json:"normalized_value"`

	Metadata map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`

	ObservedAt time.Time `gorm:"index;not null" json:"observed_at"`
	CreatedAt  time.Time `json:"created_at"`
}
