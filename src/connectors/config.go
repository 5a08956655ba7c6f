package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 4 * time.Second
)

type Config struct {
	MarketBaseURL string        `envconfig:"MARKET_BASE_URL" default:"https://gamma-api.polymarket.com"`
	MarketTimeout time.Duration `envconfig:"MARKET_TIMEOUT" default:"10s"`

	MacroBaseURL string        `envconfig:"MACRO_BASE_URL" default:"https://api.alternative.me"`
	MacroTimeout time.Duration `envconfig:"MACRO_TIMEOUT" default:"10s"`

	NewsBaseURL string        `envconfig:"NEWS_BASE_URL" default:"https://newsdata.io/api/1"`
	NewsAPIKey  string        `envconfig:"NEWS_API_KEY"`
	NewsTimeout time.Duration `envconfig:"NEWS_TIMEOUT" default:"15s"`

	ScorerBaseURL string        `envconfig:"SCORER_BASE_URL"`
	ScorerAPIKey  string        `envconfig:"SCORER_API_KEY"`
	ScorerTimeout time.Duration `envconfig:"SCORER_TIMEOUT" default:"20s"`

	PriceSymbol string `envconfig:"PRICE_SYMBOL" default:"BTC"`
	PriceQuote  string `envconfig:"PRICE_QUOTE" default:"USDT"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
