package collectors

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/connectors"
	"papertrader/src/model"
)

type macroSource interface {
	FetchIndex(ctx context.Context) (*connectors.MacroReading, error)
}

// MacroCollector polls the bounded 0-100 sentiment index and rescales it
// linearly around its midpoint: 0 -> -1, 50 -> 0, 100 -> +1.
type MacroCollector struct {
	cfg     Config
	macro   macroSource
	signals signalStore
	models  activeModelLister
	now     func() time.Time
}

func NewMacroCollector(
	cfg Config,
	macro macroSource,
	signals signalStore,
	models activeModelLister,
) *MacroCollector {
	return &MacroCollector{
		cfg:     cfg,
		macro:   macro,
		signals: signals,
		models:  models,
		now:     time.Now,
	}
}

func (c *MacroCollector) Name() string {
	return "macro_collector"
}

func (c *MacroCollector) Interval() time.Duration {
	return c.cfg.MacroInterval
}

func (c *MacroCollector) Run(ctx context.Context) error {
	now := c.now()

	reading, err := c.macro.FetchIndex(ctx)
	if err != nil {
		logCycleFailure(model.SourceMacroIndex, err)
		return err
	}

	normalized := macroSignal(reading.Value)

	models, err := c.models.ListActive(ctx)
	if err != nil {
		return err
	}

	metadata := map[string]any{
		"classification": reading.Classification,
	}

	batch := fanOut(models, model.SourceMacroIndex, reading.Value, normalized, metadata, now)
	if err := c.signals.CreateBatch(ctx, batch); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"source":         model.SourceMacroIndex,
		"value":          reading.Value,
		"classification": reading.Classification,
		"normalized":     normalized,
	}).Info("Macro index signal collected")

	_, err = c.signals.PruneOlderThan(ctx, model.SourceMacroIndex, now.Add(-c.cfg.MacroRetention))
	return err
}

// macroSignal rescales the bounded 0-100 index to [-1, 1].
func macroSignal(value float64) float64 {
	return clamp((value - 50) / 50)
}
