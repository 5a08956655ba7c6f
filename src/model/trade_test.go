package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTradeJSONOmitsSettlementFieldsWhileOpen(t *testing.T) {
	trade := Trade{
		ID:             1,
		ModelID:        1,
		MarketID:       "mkt-1",
		Direction:      DirectionUp,
		AmountStaked:   decimal.NewFromInt(10),
		EntryOdds:      0.4,
		TokensAcquired: decimal.NewFromInt(25),
		Status:         TradeStatusOpen,
	}

	raw, err := json.Marshal(trade)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, field := range []string{"payout", "profit_loss", "exit_odds", "closed_at"} {
		if strings.Contains(string(raw), `"`+field+`"`) {
			t.Fatalf("an open trade must not serialize %s: %s", field, raw)
		}
	}
}

func TestTradeJSONCarriesSettlementFieldsWhenClosed(t *testing.T) {
	payout := decimal.NewFromInt(25)
	profitLoss := decimal.NewFromInt(15)
	closedAt := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)

	trade := Trade{
		ID:          1,
		Status:      TradeStatusClosed,
		Payout:      &payout,
		ProfitLoss:  &profitLoss,
		ClosedAt:    &closedAt,
		ResolvedVia: ResolvedViaMarket,
	}

	raw, err := json.Marshal(trade)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(string(raw), `"payout":"25"`) {
		t.Fatalf("expected the payout serialized: %s", raw)
	}
	if !strings.Contains(string(raw), `"profit_loss":"15"`) {
		t.Fatalf("expected the profit serialized: %s", raw)
	}
}
