package model

import "time"

const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionNone = "none"
)

const (
	ActionBet   = "bet"
	ActionWatch = "watch"
)

// SignalRun records one aggregation decision for one model: the fused score,
// the sources that contributed, and whether the model bet or watched. Every
// evaluated model gets a run every cycle, so the decision trail is complete
// even when nothing was staked.
type SignalRun struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ModelID uint   `gorm:"index;not null" json:"model_id"`
	CycleID string `gorm:"size:36;index" json:"cycle_id"`

	AggregatedScore float64 `gorm:"not null" json:"aggregated_score"`
	Direction       string  `gorm:"size:10;not null" json:"direction"`
	Confidence      float64 `gorm:"not null" json:"confidence"`

	SourcesUsed []SourceKind `gorm:"serializer:json" json:"sources_used"`

	ActionTaken string `gorm:"size:10;index;not null" json:"action_taken"`
	Reasoning   string `gorm:"size:500" json:"reasoning"`

	ObservedAt time.Time `gorm:"index;not null" json:"observed_at"`
	CreatedAt  time.Time `json:"created_at"`
}
