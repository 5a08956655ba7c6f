package resolver

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	CycleInterval        time.Duration `envconfig:"RESOLVER_INTERVAL" default:"30s"`
	ConvergenceThreshold float64       `envconfig:"CONVERGENCE_THRESHOLD" default:"0.95"`
	GracePeriod          time.Duration `envconfig:"RESOLUTION_GRACE_PERIOD" default:"10m"`
	HardCeiling          time.Duration `envconfig:"RESOLUTION_HARD_CEILING" default:"30m"`
	ExpiryCeiling        time.Duration `envconfig:"RESOLUTION_EXPIRY_CEILING" default:"24h"`
	AssetID              string        `envconfig:"ASSET_ID" default:"BTC"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
