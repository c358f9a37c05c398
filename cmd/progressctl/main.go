package main

import (
	"context"
	"os"
	"quizprogress/internal/app"
	"quizprogress/internal/config"
	"quizprogress/internal/logger"
)

func main() {
	cfg, err := config.Load()
	errAndDie(err)
	logger.Init(cfg.LogLevel)

	ctx := context.Background()

	store, closeStore, err := app.OpenStore(ctx, cfg)
	errAndDie(err)

	cli := commandLine{
		store: store,
		out:   os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	closeStore(ctx)
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", "error", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Error("progressctl", "error", err)
		os.Exit(1)
	}
}
