package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/model"
)

// SignalRepository handles the append-only signal log.
type SignalRepository struct {
	db *gorm.DB
}

// NewSignalRepository creates a new repository instance bound to the given
// database handle.
func NewSignalRepository(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// CreateBatch appends one collector cycle's fan-out: one signal row per active
// model, all sharing the same source and observation time.
func (r *SignalRepository) CreateBatch(
	ctx context.Context,
	signals []model.Signal,
) error {

	if len(signals) == 0 {
		return nil
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "SignalRepository",
		"op":     "CreateBatch",
		"source": signals[0].Source,
		"rows":   len(signals),
	}).Debug("Appending signal batch")

	err := r.db.WithContext(ctx).Create(&signals).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "SignalRepository",
			"op":     "CreateBatch",
			"source": signals[0].Source,
		}).WithError(err).Error("Failed to append signal batch")
		return err
	}

	return nil
}

// LatestPerSource returns the freshest signal per source for one model,
// restricted to observations at or after the staleness cutoff. Sources with
// no fresh signal are simply absent from the map.
func (r *SignalRepository) LatestPerSource(
	ctx context.Context,
	modelID uint,
	since time.Time,
) (map[model.SourceKind]model.Signal, error) {

	out := make(map[model.SourceKind]model.Signal, len(model.AllSources))

	for _, source := range model.AllSources {
		var sig model.Signal

		err := r.db.WithContext(ctx).
			Where("model_id = ? AND source = ? AND observed_at >= ?", modelID, source, since).
			Order("observed_at DESC").
			First(&sig).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}

			logger.WithFields(map[string]interface{}{
				"repo":     "SignalRepository",
				"op":       "LatestPerSource",
				"model_id": modelID,
				"source":   source,
			}).WithError(err).Error("Failed to fetch latest signal")
			return nil, err
		}

		out[source] = sig
	}

	return out, nil
}

// FindLatest returns the latest signals across all models and sources,
// ordered from newest to oldest.
func (r *SignalRepository) FindLatest(
	ctx context.Context,
	limit int,
) ([]model.Signal, error) {

	if limit <= 0 {
		limit = 50
	}

	var signals []model.Signal

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&signals).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "SignalRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest signals")
		return nil, err
	}

	return signals, nil
}

// PruneOlderThan drops signal rows for one source observed before the cutoff.
// Each collector prunes its own source with its own retention window.
func (r *SignalRepository) PruneOlderThan(
	ctx context.Context,
	source model.SourceKind,
	cutoff time.Time,
) (int64, error) {

	res := r.db.WithContext(ctx).
		Where("source = ? AND observed_at < ?", source, cutoff).
		Delete(&model.Signal{})
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "SignalRepository",
			"op":     "PruneOlderThan",
			"source": source,
		}).WithError(res.Error).Error("Failed to prune signals")
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		logger.WithFields(map[string]interface{}{
			"repo":   "SignalRepository",
			"op":     "PruneOlderThan",
			"source": source,
			"rows":   res.RowsAffected,
		}).Debug("Pruned old signals")
	}

	return res.RowsAffected, nil
}
