package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/model"
)

// MarketSnapshotRepository handles the append-only market snapshot store.
type MarketSnapshotRepository struct {
	db *gorm.DB
}

// NewMarketSnapshotRepository creates a new repository instance bound to the
// given database handle.
func NewMarketSnapshotRepository(db *gorm.DB) *MarketSnapshotRepository {
	return &MarketSnapshotRepository{db: db}
}

// Create appends one market observation.
func (r *MarketSnapshotRepository) Create(
	ctx context.Context,
	snapshot *model.MarketSnapshot,
) error {

	err := r.db.WithContext(ctx).Create(snapshot).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "MarketSnapshotRepository",
			"op":        "Create",
			"market_id": snapshot.MarketID,
		}).WithError(err).Error("Failed to append market snapshot")
		return err
	}

	return nil
}

// LatestByMarket returns the most recent snapshot for one market.
// Returns (nil, nil) if the market has never been observed.
func (r *MarketSnapshotRepository) LatestByMarket(
	ctx context.Context,
	marketID string,
) (*model.MarketSnapshot, error) {

	var snap model.MarketSnapshot

	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("observed_at DESC").
		First(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":      "MarketSnapshotRepository",
			"op":        "LatestByMarket",
			"market_id": marketID,
		}).WithError(err).Error("Failed to fetch latest market snapshot")
		return nil, err
	}

	return &snap, nil
}

// LatestPerMarket returns the newest snapshot for every tracked market.
func (r *MarketSnapshotRepository) LatestPerMarket(
	ctx context.Context,
) ([]model.MarketSnapshot, error) {

	var snaps []model.MarketSnapshot

	sub := r.db.Model(&model.MarketSnapshot{}).
		Select("MAX(id)").
		Group("market_id")

	err := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("market_id ASC").
		Find(&snaps).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "MarketSnapshotRepository",
			"op":   "LatestPerMarket",
		}).WithError(err).Error("Failed to fetch latest snapshots per market")
		return nil, err
	}

	return snaps, nil
}

// PruneOlderThan drops snapshots observed before the cutoff.
func (r *MarketSnapshotRepository) PruneOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {

	res := r.db.WithContext(ctx).
		Where("observed_at < ?", cutoff).
		Delete(&model.MarketSnapshot{})
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "MarketSnapshotRepository",
			"op":   "PruneOlderThan",
		}).WithError(res.Error).Error("Failed to prune market snapshots")
		return 0, res.Error
	}

	return res.RowsAffected, nil
}
