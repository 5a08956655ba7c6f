package collectors

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/connectors"
	"papertrader/src/model"
)

// activeModelLister is the slice of the model registry the collectors need.
type activeModelLister interface {
	ListActive(ctx context.Context) ([]model.StrategyModel, error)
}

// signalStore is the slice of the signal log the collectors need.
type signalStore interface {
	CreateBatch(ctx context.Context, signals []model.Signal) error
	PruneOlderThan(ctx context.Context, source model.SourceKind, cutoff time.Time) (int64, error)
}

// fanOut builds one signal row per active model for a single observation.
// Denormalized at write time so the aggregator reads per-model rows directly.
func fanOut(
	models []model.StrategyModel,
	source model.SourceKind,
	rawValue float64,
	normalized float64,
	metadata map[string]any,
	observedAt time.Time,
) []model.Signal {

	signals := make([]model.Signal, 0, len(models))
	for _, m := range models {
		signals = append(signals, model.Signal{
			ModelID:         m.ID,
			Source:          source,
			RawValue:        rawValue,
			NormalizedValue: normalized,
			Metadata:        metadata,
			ObservedAt:      observedAt,
		})
	}
	return signals
}

// clamp bounds a normalized value to [-1, 1].
func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// logCycleFailure logs a failed collection cycle, keeping rate limiting
// visually distinct from a hard upstream failure. The cycle is skipped either
// way; nothing propagates.
func logCycleFailure(source model.SourceKind, err error) {
	if errors.Is(err, connectors.ErrRateLimited) {
		logger.WithField("source", source).Warn("Collector rate limited, skipping cycle")
		return
	}
	logger.WithField("source", source).WithError(err).Error("Collector cycle failed, will retry next tick")
}
