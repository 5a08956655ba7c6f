package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaperAccount is the simulated ledger of one strategy model. The balance
// holds available funds only: a stake leaves the balance when the trade opens
// and returns as the payout when it settles, so at any time
// balance = starting balance + sum of settled profit/loss - open stakes.
type PaperAccount struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ModelID uint `gorm:"uniqueIndex;not null" json:"model_id"`

	Balance         decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"balance"`
	StartingBalance decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"starting_balance"`

	TotalTrades int `gorm:"not null;default:0" json:"total_trades"`
	Wins        int `gorm:"not null;default:0" json:"wins"`
	Losses      int `gorm:"not null;default:0" json:"losses"`

	// Signed streak: positive counts consecutive wins, negative consecutive
	// losses. An outcome matching the streak's sign extends it, any other
	// outcome restarts it at +-1.
	CurrentStreak int `gorm:"not null;default:0" json:"current_streak"`
	BestStreak    int `gorm:"not null;default:0" json:"best_streak"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplySettlement credits the payout and rolls the win/loss counters and
// streaks forward. Voided trades do not go through here; they refund the stake
// without touching the counters.
func (a *PaperAccount) ApplySettlement(won bool, payout decimal.Decimal) {
	a.Balance = a.Balance.Add(payout)
	a.TotalTrades++

	if won {
		a.Wins++
		if a.CurrentStreak > 0 {
			a.CurrentStreak++
		} else {
			a.CurrentStreak = 1
		}
		if a.CurrentStreak > a.BestStreak {
			a.BestStreak = a.CurrentStreak
		}
	} else {
		a.Losses++
		if a.CurrentStreak < 0 {
			a.CurrentStreak--
		} else {
			a.CurrentStreak = -1
		}
	}
}
