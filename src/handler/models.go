package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"papertrader/src/model"
	"papertrader/src/repository"
)

// modelAdmin is the slice of the registry the admin endpoints need.
type modelAdmin interface {
	CreateWithAccount(ctx context.Context, m *model.StrategyModel, startingBalance decimal.Decimal) error
	FindByID(ctx context.Context, id uint) (*model.StrategyModel, error)
	ListAll(ctx context.Context) ([]model.StrategyModel, error)
	UpdateConfig(ctx context.Context, id uint, weights map[model.SourceKind]float64, betThreshold float64, maxBetAmount decimal.Decimal) error
	ToggleActive(ctx context.Context, id uint) (bool, error)
}

type modelRequest struct {
	Name          string                       `json:"name"`
	Description   string                       `json:"description"`
	SignalWeights map[model.SourceKind]float64 `json:"signal_weights"`
	BetThreshold  float64                      `json:"bet_threshold"`
	MaxBetAmount  decimal.Decimal              `json:"max_bet_amount"`
}

func (req *modelRequest) validate(requireName bool) string {
	if requireName && req.Name == "" {
		return "name is required"
	}
	if req.BetThreshold < 0 || req.BetThreshold > 1 {
		return "bet_threshold must be within [0,1]"
	}
	if req.MaxBetAmount.LessThanOrEqual(decimal.Zero) {
		return "max_bet_amount must be positive"
	}
	if len(req.SignalWeights) == 0 {
		return "signal_weights must not be empty"
	}
	return ""
}

// ListModelsHandler returns every model, active or not.
func ListModelsHandler(repo modelAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models, err := repo.ListAll(r.Context())
		if err != nil {
			http.Error(w, "failed to list models", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, models)
	}
}

// CreateModelHandler creates a new strategy model with its paper account.
// A duplicate name is rejected with 409, keeping creation safely repeatable.
func CreateModelHandler(repo modelAdmin, startingBalance decimal.Decimal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req modelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if msg := req.validate(true); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		m := &model.StrategyModel{
			Name:          req.Name,
			Description:   req.Description,
			SignalWeights: req.SignalWeights,
			BetThreshold:  req.BetThreshold,
			MaxBetAmount:  req.MaxBetAmount,
			Active:        true,
		}

		err := repo.CreateWithAccount(r.Context(), m, startingBalance)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateModelName) {
				http.Error(w, "model name already exists", http.StatusConflict)
				return
			}
			logger.WithError(err).Error("Failed to create model")
			http.Error(w, "failed to create model", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, m)
	}
}

// UpdateModelHandler replaces a model's weights, threshold and max bet.
func UpdateModelHandler(repo modelAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		var req modelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if msg := req.validate(false); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		existing, err := repo.FindByID(r.Context(), id)
		if err != nil {
			http.Error(w, "failed to load model", http.StatusInternalServerError)
			return
		}
		if existing == nil {
			http.Error(w, "model not found", http.StatusNotFound)
			return
		}

		if err := repo.UpdateConfig(r.Context(), id, req.SignalWeights, req.BetThreshold, req.MaxBetAmount); err != nil {
			logger.WithError(err).WithField("model_id", id).Error("Failed to update model")
			http.Error(w, "failed to update model", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ToggleModelHandler flips the active flag and reports the new state.
// Toggling twice restores the original state; open trades are unaffected.
func ToggleModelHandler(repo modelAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}

		existing, err := repo.FindByID(r.Context(), id)
		if err != nil {
			http.Error(w, "failed to load model", http.StatusInternalServerError)
			return
		}
		if existing == nil {
			http.Error(w, "model not found", http.StatusNotFound)
			return
		}

		active, err := repo.ToggleActive(r.Context(), id)
		if err != nil {
			logger.WithError(err).WithField("model_id", id).Error("Failed to toggle model")
			http.Error(w, "failed to toggle model", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "active": active})
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid model id", http.StatusBadRequest)
		return 0, false
	}
	return uint(id), true
}
