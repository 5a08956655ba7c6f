package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/model"
)

// StrategyModelRepository handles read/write operations for strategy models
// and their paper accounts.
type StrategyModelRepository struct {
	db *gorm.DB
}

// NewStrategyModelRepository creates a new repository instance bound to the
// given database handle.
func NewStrategyModelRepository(db *gorm.DB) *StrategyModelRepository {
	return &StrategyModelRepository{db: db}
}

// CreateWithAccount inserts a new strategy model together with its paper
// account in one transaction. A duplicate name is rejected with
// ErrDuplicateModelName, never silently duplicated.
func (r *StrategyModelRepository) CreateWithAccount(
	ctx context.Context,
	m *model.StrategyModel,
	startingBalance decimal.Decimal,
) error {

	logger.WithFields(map[string]interface{}{
		"repo": "StrategyModelRepository",
		"op":   "CreateWithAccount",
		"name": m.Name,
	}).Debug("Creating strategy model with account")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}

		account := &model.PaperAccount{
			ModelID:         m.ID,
			Balance:         startingBalance,
			StartingBalance: startingBalance,
		}
		return tx.Create(account).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.WithFields(map[string]interface{}{
				"repo": "StrategyModelRepository",
				"op":   "CreateWithAccount",
				"name": m.Name,
			}).Warn("Duplicate strategy model name rejected")
			return ErrDuplicateModelName
		}

		logger.WithFields(map[string]interface{}{
			"repo": "StrategyModelRepository",
			"op":   "CreateWithAccount",
			"name": m.Name,
		}).WithError(err).Error("Failed to create strategy model")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "StrategyModelRepository",
		"op":       "CreateWithAccount",
		"model_id": m.ID,
		"name":     m.Name,
	}).Info("Strategy model created")

	return nil
}

// FindByID fetches a single strategy model by its primary ID.
// Returns (nil, nil) if not found.
func (r *StrategyModelRepository) FindByID(
	ctx context.Context,
	id uint,
) (*model.StrategyModel, error) {

	var m model.StrategyModel

	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "StrategyModelRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch strategy model by ID")
		return nil, err
	}

	return &m, nil
}

// FindByName fetches a single strategy model by its unique name.
// Returns (nil, nil) if not found.
func (r *StrategyModelRepository) FindByName(
	ctx context.Context,
	name string,
) (*model.StrategyModel, error) {

	var m model.StrategyModel

	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "StrategyModelRepository",
			"op":   "FindByName",
			"name": name,
		}).WithError(err).Error("Failed to fetch strategy model by name")
		return nil, err
	}

	return &m, nil
}

// ListActive returns every model whose active flag is set, ordered by ID.
func (r *StrategyModelRepository) ListActive(
	ctx context.Context,
) ([]model.StrategyModel, error) {

	var models []model.StrategyModel

	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "StrategyModelRepository",
			"op":   "ListActive",
		}).WithError(err).Error("Failed to list active strategy models")
		return nil, err
	}

	return models, nil
}

// ListAll returns every model, active or not, ordered by ID.
func (r *StrategyModelRepository) ListAll(
	ctx context.Context,
) ([]model.StrategyModel, error) {

	var models []model.StrategyModel

	err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "StrategyModelRepository",
			"op":   "ListAll",
		}).WithError(err).Error("Failed to list strategy models")
		return nil, err
	}

	return models, nil
}

// UpdateConfig replaces a model's signal weights, bet threshold and max bet
// amount. Existing trades are not touched.
func (r *StrategyModelRepository) UpdateConfig(
	ctx context.Context,
	id uint,
	weights map[model.SourceKind]float64,
	betThreshold float64,
	maxBetAmount decimal.Decimal,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":          "StrategyModelRepository",
		"op":            "UpdateConfig",
		"id":            id,
		"bet_threshold": betThreshold,
	}).Debug("Updating strategy model configuration")

	err := r.db.WithContext(ctx).
		Model(&model.StrategyModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"signal_weights": weights,
			"bet_threshold":  betThreshold,
			"max_bet_amount": maxBetAmount,
		}).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "StrategyModelRepository",
			"op":   "UpdateConfig",
			"id":   id,
		}).WithError(err).Error("Failed to update strategy model configuration")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo": "StrategyModelRepository",
		"op":   "UpdateConfig",
		"id":   id,
	}).Info("Strategy model configuration updated")

	return nil
}

// ToggleActive flips the model's active flag and returns the new state.
// Toggling twice returns the model to its original state; open trades are not
// affected either way.
func (r *StrategyModelRepository) ToggleActive(
	ctx context.Context,
	id uint,
) (bool, error) {

	var active bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.StrategyModel
		if err := tx.First(&m, id).Error; err != nil {
			return err
		}

		active = !m.Active
		return tx.Model(&model.StrategyModel{}).
			Where("id = ?", id).
			Update("active", active).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "StrategyModelRepository",
			"op":   "ToggleActive",
			"id":   id,
		}).WithError(err).Error("Failed to toggle strategy model")
		return false, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "StrategyModelRepository",
		"op":     "ToggleActive",
		"id":     id,
		"active": active,
	}).Info("Strategy model toggled")

	return active, nil
}
