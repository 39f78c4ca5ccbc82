package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"tradeadmin/src/database"
	"tradeadmin/src/security"
	"tradeadmin/src/server"
	"tradeadmin/src/tasks"
)

func setupLogger() {
	level, err := logger.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil {
		level = logger.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, rotated))
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using process environment")
	}
	setupLogger()

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	cipher, err := security.NewCipher(security.GetConfig().CredentialsKey)
	if err != nil {
		logger.WithError(err).Fatal("failed to load credentials key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tasks.NewScheduler(cipher).Run(ctx)

	server.StartServer(os.Getenv("SERVER_PORT"))
}
