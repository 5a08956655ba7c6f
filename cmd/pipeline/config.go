package pipeline

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Seed the default model set on startup. Idempotent either way.
	SeedOnStart     bool    `envconfig:"SEED_ON_START" default:"true"`
	StartingBalance float64 `envconfig:"STARTING_BALANCE" default:"1000"`

	// Serve the read/admin API from the pipeline process. Turn off when a
	// separate API deployment fronts the same database.
	ServeAPI       bool          `envconfig:"SERVE_API" default:"true"`
	ServerPort     string        `envconfig:"SERVER_PORT" default:"8080"`
	StreamInterval time.Duration `envconfig:"STREAM_INTERVAL" default:"5s"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
