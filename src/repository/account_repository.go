package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/model"
)

// PaperAccountRepository handles read access to the ledger. All mutations go
// through TradeRepository so that balance changes stay atomic with the trade
// transitions that cause them.
type PaperAccountRepository struct {
	db *gorm.DB
}

// NewPaperAccountRepository creates a new repository instance bound to the
// given database handle.
func NewPaperAccountRepository(db *gorm.DB) *PaperAccountRepository {
	return &PaperAccountRepository{db: db}
}

// FindByModelID fetches the account for one model.
// Returns (nil, nil) if not found.
func (r *PaperAccountRepository) FindByModelID(
	ctx context.Context,
	modelID uint,
) (*model.PaperAccount, error) {

	var account model.PaperAccount

	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "PaperAccountRepository",
			"op":       "FindByModelID",
			"model_id": modelID,
		}).WithError(err).Error("Failed to fetch paper account")
		return nil, err
	}

	return &account, nil
}

// ListAll returns every account, ordered by model ID.
func (r *PaperAccountRepository) ListAll(
	ctx context.Context,
) ([]model.PaperAccount, error) {

	var accounts []model.PaperAccount

	err := r.db.WithContext(ctx).
		Order("model_id ASC").
		Find(&accounts).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PaperAccountRepository",
			"op":   "ListAll",
		}).WithError(err).Error("Failed to list paper accounts")
		return nil, err
	}

	return accounts, nil
}
