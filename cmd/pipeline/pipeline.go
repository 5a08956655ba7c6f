package pipeline

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"papertrader/src/aggregator"
	"papertrader/src/collectors"
	"papertrader/src/connectors"
	"papertrader/src/database"
	"papertrader/src/repository"
	"papertrader/src/resolver"
	"papertrader/src/scheduler"
	"papertrader/src/seed"
	"papertrader/src/sentiment"
	"papertrader/src/server"
)

// Pipeline is the long-running process: the four collectors, the aggregator
// and the resolver on one scheduler, optionally serving the API from the same
// process so the scheduler state is visible on /api/state.
type Pipeline struct{}

func (p *Pipeline) Start() error {
	config := GetConfig()
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}
	db := database.MainDB

	modelRepo := repository.NewStrategyModelRepository(db)
	accountRepo := repository.NewPaperAccountRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	snapshotRepo := repository.NewMarketSnapshotRepository(db)
	tickRepo := repository.NewPriceTickRepository(db)
	runRepo := repository.NewSignalRunRepository(db)
	tradeRepo := repository.NewTradeRepository(db)

	if config.SeedOnStart {
		balance := decimal.NewFromFloat(config.StartingBalance)
		if err := seed.Run(ctx, db, balance); err != nil {
			logrus.WithError(err).Error("Failed to seed default models")
			return err
		}
	}

	connCfg := connectors.GetConfig()
	priceClient := connectors.NewPriceClient(connCfg.PriceSymbol, connCfg.PriceQuote)
	marketClient := connectors.NewMarketClient(connCfg.MarketBaseURL, connCfg.MarketTimeout)
	macroClient := connectors.NewMacroClient(connCfg.MacroBaseURL, connCfg.MacroTimeout)
	newsClient := connectors.NewNewsClient(connCfg.NewsBaseURL, connCfg.NewsAPIKey, connCfg.NewsTimeout)

	lexical := sentiment.NewLexicalScorer()
	var scorer sentiment.Scorer = lexical
	if connCfg.ScorerBaseURL != "" {
		scorerClient := connectors.NewScorerClient(connCfg.ScorerBaseURL, connCfg.ScorerAPIKey, connCfg.ScorerTimeout)
		scorer = &sentiment.Chain{
			Preferred: sentiment.NewModelScorer(scorerClient),
			Fallback:  lexical,
		}
	} else {
		logrus.Info("No scorer endpoint configured, news sentiment uses the lexical scorer only")
	}

	colCfg := collectors.GetConfig()

	sched := scheduler.New()
	sched.Register(collectors.NewMomentumCollector(colCfg, priceClient, tickRepo, signalRepo, modelRepo))
	sched.Register(collectors.NewOddsCollector(colCfg, marketClient, snapshotRepo, signalRepo, modelRepo))
	sched.Register(collectors.NewMacroCollector(colCfg, macroClient, signalRepo, modelRepo))
	sched.Register(collectors.NewNewsCollector(colCfg, newsClient, scorer, signalRepo, modelRepo))

	aggCfg := aggregator.GetConfig()
	sched.Register(aggregator.New(aggCfg, modelRepo, signalRepo, snapshotRepo, tickRepo, accountRepo, tradeRepo, runRepo))
	sched.Register(resolver.New(resolver.GetConfig(), tradeRepo, snapshotRepo, tickRepo))

	if config.ServeAPI {
		routes := server.NewRoutes(
			db,
			aggCfg.AssetID,
			decimal.NewFromFloat(config.StartingBalance),
			config.StreamInterval,
			sched,
		)
		go server.StartServer(config.ServerPort, routes)
	}

	logrus.Info("Starting paper trading pipeline")
	sched.Start(ctx)

	return nil
}
