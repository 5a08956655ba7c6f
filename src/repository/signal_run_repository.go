package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/model"
)

// SignalRunRepository handles the immutable decision audit trail.
type SignalRunRepository struct {
	db *gorm.DB
}

// NewSignalRunRepository creates a new repository instance bound to the given
// database handle.
func NewSignalRunRepository(db *gorm.DB) *SignalRunRepository {
	return &SignalRunRepository{db: db}
}

// Create appends one decision record.
func (r *SignalRunRepository) Create(
	ctx context.Context,
	run *model.SignalRun,
) error {

	err := r.db.WithContext(ctx).Create(run).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "SignalRunRepository",
			"op":       "Create",
			"model_id": run.ModelID,
			"action":   run.ActionTaken,
		}).WithError(err).Error("Failed to append signal run")
		return err
	}

	return nil
}

// FindLatest returns the latest runs across all models, newest first.
func (r *SignalRunRepository) FindLatest(
	ctx context.Context,
	limit int,
) ([]model.SignalRun, error) {

	if limit <= 0 {
		limit = 50
	}

	var runs []model.SignalRun

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "SignalRunRepository",
			"op":    "FindLatest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest signal runs")
		return nil, err
	}

	return runs, nil
}
