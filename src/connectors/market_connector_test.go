package connectors

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const gammaPayload = `[
	{
		"id": "512329",
		"question": "Bitcoin Up or Down - 12:05 ET",
		"outcomePrices": "[\"0.62\", \"0.38\"]",
		"clobTokenIds": "[\"tok-up\", \"tok-down\"]",
		"volume": "15230.5",
		"endDate": "2025-06-01T16:05:00Z",
		"closed": false
	},
	{
		"id": "512330",
		"question": "Broken market",
		"outcomePrices": "not-json",
		"volume": "1"
	}
]`

func TestMarketsByWindowParsesAndDropsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("slug"); got != "bitcoin-up-or-down-5-minute" {
			t.Fatalf("unexpected slug %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(gammaPayload))
	}))
	defer server.Close()

	client := NewMarketClient(server.URL, 5*time.Second)

	markets, err := client.MarketsByWindow(context.Background(), "bitcoin-up-or-down-5-minute")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(markets) != 1 {
		t.Fatalf("expected the malformed row dropped, got %d markets", len(markets))
	}

	market := markets[0]
	if market.ID != "512329" {
		t.Fatalf("unexpected ID %q", market.ID)
	}
	if market.OutcomePrices[0] != 0.62 || market.OutcomePrices[1] != 0.38 {
		t.Fatalf("unexpected outcome prices %v", market.OutcomePrices)
	}
	if market.ClobTokenIDs[0] != "tok-up" || market.ClobTokenIDs[1] != "tok-down" {
		t.Fatalf("unexpected token IDs %v", market.ClobTokenIDs)
	}
	if market.Volume != 15230.5 {
		t.Fatalf("unexpected volume %v", market.Volume)
	}
	if market.EndDate.IsZero() {
		t.Fatal("expected end date parsed")
	}
	if market.ImpliedUp() != 0.62 {
		t.Fatalf("unexpected implied up %v", market.ImpliedUp())
	}
}

func TestMarketsByWindowRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewMarketClient(server.URL, 5*time.Second)

	_, err := client.MarketsByWindow(context.Background(), "bitcoin-up-or-down-5-minute")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestMidpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token_id"); got != "tok-up" {
			t.Fatalf("unexpected token %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"mid": "0.615"}`))
	}))
	defer server.Close()

	client := NewMarketClient(server.URL, 5*time.Second)

	mid, err := client.Midpoint(context.Background(), "tok-up")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mid != 0.615 {
		t.Fatalf("expected 0.615, got %v", mid)
	}
}
