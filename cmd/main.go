package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"papertrader/cmd/pipeline"
	"papertrader/src/aggregator"
	"papertrader/src/database"
	"papertrader/src/seed"
	"papertrader/src/server"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Papertrader CMD"
	app.Usage = "The papertrader command line interface"

	app.Commands = []cli.Command{
		pipelineCMD,
		apiCMD,
		seedCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	pipelineCMD = cli.Command{
		Name:        "pipeline",
		Usage:       "run the collection and trading pipeline",
		Action:      pipelineAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the collectors, aggregator and resolver on one scheduler`,
	}
	apiCMD = cli.Command{
		Name:        "api",
		Usage:       "run the read/admin API only",
		Action:      apiAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Serve the HTTP API without the pipeline`,
	}
	seedCMD = cli.Command{
		Name:        "seed",
		Usage:       "seed the default strategy models",
		Action:      seedAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Create the default model set and paper accounts, skipping existing names`,
	}
)

func pipelineAction(_ *cli.Context) error {

	logrus.Info("Starting pipeline CMD")
	logrus.WithField("cmd", "pipeline")

	p := &pipeline.Pipeline{}
	err := p.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func apiAction(_ *cli.Context) error {

	logrus.Info("Starting API CMD")

	config := pipeline.GetConfig()
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	routes := server.NewRoutes(
		database.MainDB,
		aggregator.GetConfig().AssetID,
		decimal.NewFromFloat(config.StartingBalance),
		config.StreamInterval,
		nil,
	)
	server.StartServer(config.ServerPort, routes)

	return nil
}

func seedAction(_ *cli.Context) error {

	logrus.Info("Starting seed CMD")

	config := pipeline.GetConfig()
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	balance := decimal.NewFromFloat(config.StartingBalance)
	if err := seed.Run(context.Background(), database.MainDB, balance); err != nil {
		logrus.WithError(err).Error("Seeding default models")
		return err
	}

	return nil
}
