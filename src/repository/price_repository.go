package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/model"
)

// PriceTickRepository handles the append-only asset price history.
type PriceTickRepository struct {
	db *gorm.DB
}

// NewPriceTickRepository creates a new repository instance bound to the given
// database handle.
func NewPriceTickRepository(db *gorm.DB) *PriceTickRepository {
	return &PriceTickRepository{db: db}
}

// Create appends one price observation.
func (r *PriceTickRepository) Create(
	ctx context.Context,
	tick *model.PriceTick,
) error {

	err := r.db.WithContext(ctx).Create(tick).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "PriceTickRepository",
			"op":       "Create",
			"asset_id": tick.AssetID,
		}).WithError(err).Error("Failed to append price tick")
		return err
	}

	return nil
}

// Latest returns the most recent tick for one asset.
// Returns (nil, nil) if the asset has never been observed.
func (r *PriceTickRepository) Latest(
	ctx context.Context,
	assetID string,
) (*model.PriceTick, error) {

	var tick model.PriceTick

	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("observed_at DESC").
		First(&tick).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "PriceTickRepository",
			"op":       "Latest",
			"asset_id": assetID,
		}).WithError(err).Error("Failed to fetch latest price tick")
		return nil, err
	}

	return &tick, nil
}

// RecentSince returns ticks observed at or after the cutoff, oldest first.
// The momentum collector uses this as its sample window.
func (r *PriceTickRepository) RecentSince(
	ctx context.Context,
	assetID string,
	since time.Time,
) ([]model.PriceTick, error) {

	var ticks []model.PriceTick

	err := r.db.WithContext(ctx).
		Where("asset_id = ? AND observed_at >= ?", assetID, since).
		Order("observed_at ASC").
		Find(&ticks).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "PriceTickRepository",
			"op":       "RecentSince",
			"asset_id": assetID,
		}).WithError(err).Error("Failed to fetch recent price ticks")
		return nil, err
	}

	return ticks, nil
}

// OldestSince returns the earliest tick observed at or after the cutoff.
// Returns (nil, nil) when the window is empty.
func (r *PriceTickRepository) OldestSince(
	ctx context.Context,
	assetID string,
	since time.Time,
) (*model.PriceTick, error) {

	var tick model.PriceTick

	err := r.db.WithContext(ctx).
		Where("asset_id = ? AND observed_at >= ?", assetID, since).
		Order("observed_at ASC").
		First(&tick).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "PriceTickRepository",
			"op":       "OldestSince",
			"asset_id": assetID,
		}).WithError(err).Error("Failed to fetch oldest price tick")
		return nil, err
	}

	return &tick, nil
}

// PruneOlderThan drops ticks observed before the cutoff.
func (r *PriceTickRepository) PruneOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {

	res := r.db.WithContext(ctx).
		Where("observed_at < ?", cutoff).
		Delete(&model.PriceTick{})
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PriceTickRepository",
			"op":   "PruneOlderThan",
		}).WithError(res.Error).Error("Failed to prune price ticks")
		return 0, res.Error
	}

	return res.RowsAffected, nil
}
