package seed

import (
	"context"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/model"
	"papertrader/src/repository"
)

type seedModel struct {
	name        string
	description string
	weights     map[model.SourceKind]float64
	threshold   float64
	maxBet      float64
}

var defaultModels = []seedModel{
	{
		name:        "Balanced",
		description: "Even-keeled blend of all four feeds",
		weights: map[model.SourceKind]float64{
			model.SourcePriceMomentum: 0.25,
			model.SourceMarketOdds:    0.10,
			model.SourceNewsSentiment: 0.20,
			model.SourceMacroIndex:    0.10,
		},
		threshold: 0.65,
		maxBet:    10,
	},
	{
		name:        "Momentum Rider",
		description: "Chases short-horizon price moves",
		weights: map[model.SourceKind]float64{
			model.SourcePriceMomentum: 0.60,
			model.SourceMarketOdds:    0.20,
		},
		threshold: 0.55,
		maxBet:    15,
	},
	{
		name:        "Contrarian",
		description: "Fades the crowd and the tape",
		weights: map[model.SourceKind]float64{
			model.SourcePriceMomentum: -0.40,
			model.SourceMarketOdds:    -0.30,
			model.SourceNewsSentiment: -0.20,
		},
		threshold: 0.70,
		maxBet:    10,
	},
	{
		name:        "News Hound",
		description: "Leans on headlines and the macro mood",
		weights: map[model.SourceKind]float64{
			model.SourceNewsSentiment: 0.60,
			model.SourceMacroIndex:    0.30,
			model.SourcePriceMomentum: 0.10,
		},
		threshold: 0.60,
		maxBet:    10,
	},
}

// Run seeds the default strategy models with their paper accounts. Idempotent:
// existing names are left untouched, so it is safe on every startup.
func Run(ctx context.Context, db *gorm.DB, startingBalance decimal.Decimal) error {
	repo := repository.NewStrategyModelRepository(db)

	for _, sm := range defaultModels {
		existing, err := repo.FindByName(ctx, sm.name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		m := &model.StrategyModel{
			Name:          sm.name,
			Description:   sm.description,
			SignalWeights: sm.weights,
			BetThreshold:  sm.threshold,
			MaxBetAmount:  decimal.NewFromFloat(sm.maxBet),
			Active:        true,
		}

		if err := repo.CreateWithAccount(ctx, m, startingBalance); err != nil {
			return err
		}

		logger.WithField("name", sm.name).Info("Seeded strategy model")
	}

	return nil
}
