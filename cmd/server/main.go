package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"quizprogress/internal/app"
	"quizprogress/internal/config"
	"quizprogress/internal/logger"
	"syscall"
	"time"
)

// @title Quiz Progress API
// @version 1.0
// @description Reconciles cached in-progress quiz attempts against the LMS
// @host localhost:8080
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	ctx := context.Background()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to start application", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           application.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			"port", cfg.Port,
			"store", cfg.StoreBackend,
			"lms", cfg.LMS.BaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := application.Close(shutdownCtx); err != nil {
		logger.Error("failed to close resources", "error", err)
	}

	logger.Info("server exited")
}
