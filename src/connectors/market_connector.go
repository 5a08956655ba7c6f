package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// Market is one binary prediction market in the current window.
type Market struct {
	ID             string
	Question       string
	OutcomePrices  [2]float64 // [up, down]
	ClobTokenIDs   [2]string
	Volume         float64
	EndDate        time.Time
	Resolved       bool
	ResolutionType string
}

// ImpliedUp returns the market's implied probability of the Up outcome.
func (m *Market) ImpliedUp() float64 {
	return m.OutcomePrices[0]
}

type gammaMarket struct {
	ID             string `json:"id"`
	Question       string `json:"question"`
	OutcomePrices  string `json:"outcomePrices"` // JSON-encoded string array
	ClobTokenIDs   string `json:"clobTokenIds"`  // JSON-encoded string array
	Volume         string `json:"volume"`
	EndDate        string `json:"endDate"`
	Closed         bool   `json:"closed"`
	ResolutionType string `json:"resolutionSource"`
}

// MarketClient talks to the prediction-market HTTP API.
type MarketClient struct {
	http *resty.Client
}

// NewMarketClient creates a client with bounded timeouts and retry on 5xx.
func NewMarketClient(baseURL string, timeout time.Duration) *MarketClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &MarketClient{http: httpClient}
}

// MarketsByWindow lists the currently tradable markets for one event slug
// (e.g. the rolling 5-minute BTC up/down series).
func (c *MarketClient) MarketsByWindow(ctx context.Context, slug string) ([]Market, error) {
	var decoded []gammaMarket

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("slug", slug).
		SetQueryParam("active", "true").
		SetResult(&decoded).
		Get("/markets")
	if err != nil {
		return nil, fmt.Errorf("fetch markets for %s: %w", slug, err)
	}
	if !resp.IsSuccess() {
		return nil, statusToError(resp)
	}

	out := make([]Market, 0, len(decoded))
	for i := range decoded {
		market, err := decoded[i].toMarket()
		if err != nil {
			// Malformed rows are dropped, not fatal; the excerpt goes to
			// the log for later inspection.
			logger.WithError(err).
				WithField("market_id", decoded[i].ID).
				Warn("Skipping malformed market payload")
			continue
		}
		out = append(out, market)
	}

	return out, nil
}

// Midpoint returns the current mid price for one outcome token.
func (c *MarketClient) Midpoint(ctx context.Context, tokenID string) (float64, error) {
	var decoded struct {
		Mid string `json:"mid"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		SetResult(&decoded).
		Get("/midpoint")
	if err != nil {
		return 0, fmt.Errorf("fetch midpoint for token %s: %w", tokenID, err)
	}
	if !resp.IsSuccess() {
		return 0, statusToError(resp)
	}

	mid, err := strconv.ParseFloat(decoded.Mid, 64)
	if err != nil {
		return 0, fmt.Errorf("parse midpoint %q: %w", decoded.Mid, err)
	}
	return mid, nil
}

func (g *gammaMarket) toMarket() (Market, error) {
	var market Market

	var prices []string
	if err := json.Unmarshal([]byte(g.OutcomePrices), &prices); err != nil {
		return market, fmt.Errorf("decode outcomePrices %q: %w", truncate(g.OutcomePrices), err)
	}
	if len(prices) != 2 {
		return market, fmt.Errorf("expected 2 outcome prices, got %d", len(prices))
	}

	up, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return market, fmt.Errorf("parse up price %q: %w", prices[0], err)
	}
	down, err := strconv.ParseFloat(prices[1], 64)
	if err != nil {
		return market, fmt.Errorf("parse down price %q: %w", prices[1], err)
	}

	var tokens []string
	if g.ClobTokenIDs != "" {
		if err := json.Unmarshal([]byte(g.ClobTokenIDs), &tokens); err != nil {
			return market, fmt.Errorf("decode clobTokenIds %q: %w", truncate(g.ClobTokenIDs), err)
		}
	}

	var endDate time.Time
	if g.EndDate != "" {
		endDate, err = time.Parse(time.RFC3339, g.EndDate)
		if err != nil {
			return market, fmt.Errorf("parse endDate %q: %w", g.EndDate, err)
		}
	}

	var volume float64
	if g.Volume != "" {
		volume, err = strconv.ParseFloat(g.Volume, 64)
		if err != nil {
			return market, fmt.Errorf("parse volume %q: %w", g.Volume, err)
		}
	}

	market = Market{
		ID:             g.ID,
		Question:       g.Question,
		OutcomePrices:  [2]float64{up, down},
		Volume:         volume,
		EndDate:        endDate,
		Resolved:       g.Closed,
		ResolutionType: g.ResolutionType,
	}
	copy(market.ClobTokenIDs[:], tokens)

	return market, nil
}

func truncate(s string) string {
	if len(s) > 128 {
		return s[:128] + "..."
	}
	return s
}
