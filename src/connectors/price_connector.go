package connectors

import (
	"fmt"
	"net/http"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
)

// PriceQuote is one spot price observation from the exchange.
type PriceQuote struct {
	Price     float64
	Volume24h float64
}

// PriceClient fetches the underlying asset's spot price. Backed by the
// exchange's public ticker endpoint, no credentials required.
type PriceClient struct {
	exchange goex.API
	pair     goex.CurrencyPair
}

// NewPriceClient creates a price client for one symbol/quote pair.
func NewPriceClient(symbol, quote string) *PriceClient {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}

	return &PriceClient{
		exchange: binance.NewWithConfig(apiConfig),
		pair:     goex.NewCurrencyPair(goex.Currency{Symbol: symbol}, goex.Currency{Symbol: quote}),
	}
}

// FetchQuote returns the current spot price.
func (c *PriceClient) FetchQuote() (*PriceQuote, error) {
	ticker, err := c.exchange.GetTicker(c.pair)
	if err != nil {
		return nil, fmt.Errorf("fetch ticker %s: %w", c.pair.String(), err)
	}

	return &PriceQuote{
		Price:     ticker.Last,
		Volume24h: ticker.Vol,
	}, nil
}
