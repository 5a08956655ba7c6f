package aggregator

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	CycleInterval    time.Duration `envconfig:"AGGREGATOR_INTERVAL" default:"5m"`
	StalenessWindow  time.Duration `envconfig:"SIGNAL_STALENESS_WINDOW" default:"2h"`
	MinTimeRemaining time.Duration `envconfig:"MIN_TIME_REMAINING" default:"30s"`
	AssetID          string        `envconfig:"ASSET_ID" default:"BTC"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
