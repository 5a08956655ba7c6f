package server

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"papertrader/src/handler"
	"papertrader/src/repository"
)

// NewRoutes wires the full handler set over one database handle. tasks may be
// nil when the process does not host the pipeline scheduler.
func NewRoutes(
	db *gorm.DB,
	assetID string,
	startingBalance decimal.Decimal,
	streamInterval time.Duration,
	tasks handler.TaskReporter,
) *Routes {

	modelRepo := repository.NewStrategyModelRepository(db)
	accountRepo := repository.NewPaperAccountRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	snapshotRepo := repository.NewMarketSnapshotRepository(db)
	tickRepo := repository.NewPriceTickRepository(db)
	runRepo := repository.NewSignalRunRepository(db)
	tradeRepo := repository.NewTradeRepository(db)

	svc := &handler.StateService{
		AssetID:   assetID,
		Prices:    tickRepo,
		Snapshots: snapshotRepo,
		Models:    modelRepo,
		Accounts:  accountRepo,
		Signals:   signalRepo,
		Runs:      runRepo,
		Trades:    tradeRepo,
		Tasks:     tasks,
	}

	return &Routes{
		State:       handler.StateHandler(svc),
		Stream:      handler.StreamHandler(svc, streamInterval),
		ListModels:  handler.ListModelsHandler(modelRepo),
		CreateModel: handler.CreateModelHandler(modelRepo, startingBalance),
		UpdateModel: handler.UpdateModelHandler(modelRepo),
		ToggleModel: handler.ToggleModelHandler(modelRepo),
		Trades:      handler.TradesHandler(tradeRepo),
		Runs:        handler.RunsHandler(runRepo),
		Signals:     handler.SignalsHandler(signalRepo),
	}
}
