package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradeadmin/src/database"
	"tradeadmin/src/security"
	"tradeadmin/src/tasks"
)

// schedulerCMD runs the background execution loops without the HTTP
// server, for deployments that split the API from the workers.
var schedulerCMD = cli.Command{
	Name:        "scheduler",
	Usage:       "run the strategy execution scheduler",
	Action:      schedulerAction,
	Description: `Run the background loops: price monitoring, strategy execution, order tracking, withdrawals and dual investment.`,
}

func schedulerAction(_ *cli.Context) error {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using process environment")
	}

	logger.Info("starting scheduler")
	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	cipher, err := security.NewCipher(security.GetConfig().CredentialsKey)
	if err != nil {
		logger.WithError(err).Fatal("failed to load credentials key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down scheduler")
		cancel()
	}()

	tasks.NewScheduler(cipher).Run(ctx)
	return nil
}
