package handler

import (
	"context"
	"net/http"
	"strconv"

	"papertrader/src/model"
)

type tradeLister interface {
	FindLatest(ctx context.Context, limit int) ([]model.Trade, error)
}

type runLister interface {
	FindLatest(ctx context.Context, limit int) ([]model.SignalRun, error)
}

type signalLister interface {
	FindLatest(ctx context.Context, limit int) ([]model.Signal, error)
}

// TradesHandler lists recent trades, newest first.
func TradesHandler(repo tradeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trades, err := repo.FindLatest(r.Context(), limitParam(r))
		if err != nil {
			http.Error(w, "failed to list trades", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, trades)
	}
}

// RunsHandler lists recent decision records, newest first.
func RunsHandler(repo runLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := repo.FindLatest(r.Context(), limitParam(r))
		if err != nil {
			http.Error(w, "failed to list signal runs", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

// SignalsHandler lists recent raw signals, newest first.
func SignalsHandler(repo signalLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signals, err := repo.FindLatest(r.Context(), limitParam(r))
		if err != nil {
			http.Error(w, "failed to list signals", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, signals)
	}
}

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
