package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server"
	"github.com/dmitrijs2005/divkeeper/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("config: %v", err)
		os.Exit(2)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "shutdown", "error", err)
		os.Exit(1)
	}
}
