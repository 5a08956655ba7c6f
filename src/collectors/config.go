package collectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AssetID    string `envconfig:"ASSET_ID" default:"BTC"`
	MarketSlug string `envconfig:"MARKET_SLUG" default:"bitcoin-up-or-down-5-minute"`
	NewsQuery  string `envconfig:"NEWS_QUERY" default:"bitcoin"`

	MomentumInterval time.Duration `envconfig:"MOMENTUM_INTERVAL" default:"60s"`
	OddsInterval     time.Duration `envconfig:"ODDS_INTERVAL" default:"2m"`
	MacroInterval    time.Duration `envconfig:"MACRO_INTERVAL" default:"1h"`
	NewsInterval     time.Duration `envconfig:"NEWS_INTERVAL" default:"30m"`

	// Momentum saturation: a move of this fraction over the lookback maps to
	// a fully saturated +/-1 signal.
	MomentumLookback   time.Duration `envconfig:"MOMENTUM_LOOKBACK" default:"5m"`
	MomentumSaturation float64       `envconfig:"MOMENTUM_SATURATION" default:"0.005"`

	NewsFreshness time.Duration `envconfig:"NEWS_FRESHNESS" default:"6h"`

	MomentumRetention time.Duration `envconfig:"MOMENTUM_RETENTION" default:"6h"`
	OddsRetention     time.Duration `envconfig:"ODDS_RETENTION" default:"6h"`
	MacroRetention    time.Duration `envconfig:"MACRO_RETENTION" default:"48h"`
	NewsRetention     time.Duration `envconfig:"NEWS_RETENTION" default:"24h"`
	PriceRetention    time.Duration `envconfig:"PRICE_RETENTION" default:"24h"`
	SnapshotRetention time.Duration `envconfig:"SNAPSHOT_RETENTION" default:"24h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
