package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/model"
	"papertrader/src/repository"
	"papertrader/src/scheduler"
)

// ModelView pairs a strategy model with its ledger for the read API.
type ModelView struct {
	Model   model.StrategyModel `json:"model"`
	Account *model.PaperAccount `json:"account,omitempty"`
}

// ActivityItem is one entry of the merged activity feed: settled trades and
// bet decisions, newest first.
type ActivityItem struct {
	Kind       string    `json:"kind"` // "trade_closed" or "signal_run"
	ModelID    uint      `json:"model_id"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StateSnapshot is the composite read-only view served to the dashboard.
// Every section is last-known-good: a degraded subsystem shows up as stale
// timestamps, never as an error.
type StateSnapshot struct {
	GeneratedAt time.Time              `json:"generated_at"`
	LatestPrice *model.PriceTick       `json:"latest_price,omitempty"`
	Markets     []model.MarketSnapshot `json:"markets"`
	Models      []ModelView            `json:"models"`
	Signals     []model.Signal         `json:"signals"`
	Runs        []model.SignalRun      `json:"runs"`
	Trades      []model.Trade          `json:"trades"`
	Activity    []ActivityItem         `json:"activity"`
	Tasks       []scheduler.TaskStatus `json:"tasks,omitempty"`
}

// TaskReporter exposes scheduler state to the read API. Optional: nil when
// the API process does not host the pipeline.
type TaskReporter interface {
	Status() []scheduler.TaskStatus
}

// StateService assembles the composite snapshot from the store.
type StateService struct {
	AssetID   string
	Prices    *repository.PriceTickRepository
	Snapshots *repository.MarketSnapshotRepository
	Models    *repository.StrategyModelRepository
	Accounts  *repository.PaperAccountRepository
	Signals   *repository.SignalRepository
	Runs      *repository.SignalRunRepository
	Trades    *repository.TradeRepository
	Tasks     TaskReporter
}

// Snapshot builds the view. Partial store failures are logged and the
// affected section stays empty; readers never see an outage.
func (s *StateService) Snapshot(ctx context.Context) *StateSnapshot {
	snap := &StateSnapshot{GeneratedAt: time.Now()}

	if tick, err := s.Prices.Latest(ctx, s.AssetID); err == nil {
		snap.LatestPrice = tick
	}
	if markets, err := s.Snapshots.LatestPerMarket(ctx); err == nil {
		snap.Markets = markets
	}

	if models, err := s.Models.ListAll(ctx); err == nil {
		accounts := map[uint]*model.PaperAccount{}
		if all, err := s.Accounts.ListAll(ctx); err == nil {
			for i := range all {
				accounts[all[i].ModelID] = &all[i]
			}
		}
		for i := range models {
			snap.Models = append(snap.Models, ModelView{
				Model:   models[i],
				Account: accounts[models[i].ID],
			})
		}
	}

	if signals, err := s.Signals.FindLatest(ctx, 50); err == nil {
		snap.Signals = signals
	}
	if runs, err := s.Runs.FindLatest(ctx, 50); err == nil {
		snap.Runs = runs
	}
	if trades, err := s.Trades.FindLatest(ctx, 50); err == nil {
		snap.Trades = trades
	}

	snap.Activity = buildActivity(snap.Trades, snap.Runs)

	if s.Tasks != nil {
		snap.Tasks = s.Tasks.Status()
	}

	return snap
}

// buildActivity merges settled trades and bet decisions into one feed,
// newest first.
func buildActivity(trades []model.Trade, runs []model.SignalRun) []ActivityItem {
	items := make([]ActivityItem, 0, len(trades)+len(runs))

	for i := range trades {
		t := &trades[i]
		if t.Status == model.TradeStatusOpen || t.ClosedAt == nil {
			continue
		}
		msg := "trade settled"
		if t.ProfitLoss != nil {
			msg = "trade settled, P/L " + t.ProfitLoss.StringFixed(2)
		}
		items = append(items, ActivityItem{
			Kind:       "trade_closed",
			ModelID:    t.ModelID,
			Message:    msg,
			OccurredAt: *t.ClosedAt,
		})
	}

	for i := range runs {
		r := &runs[i]
		if r.ActionTaken != model.ActionBet {
			continue
		}
		items = append(items, ActivityItem{
			Kind:       "signal_run",
			ModelID:    r.ModelID,
			Message:    r.Reasoning,
			OccurredAt: r.ObservedAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].OccurredAt.After(items[j].OccurredAt)
	})

	return items
}

// StateHandler serves the composite snapshot.
func StateHandler(svc *StateService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Snapshot(r.Context()))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("Failed to encode response")
	}
}
