package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AngelCh415/fakestat/internal/app"
	"github.com/AngelCh415/fakestat/internal/config"
)

func main() {
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, logger).ListenAndServe(ctx); err != nil {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
