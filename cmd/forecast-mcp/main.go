package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/PetoAdam/homenavi/forecast-service/internal/config"
	"github.com/PetoAdam/homenavi/forecast-service/internal/forecast"
	"github.com/PetoAdam/homenavi/forecast-service/internal/mcp"
	"github.com/PetoAdam/homenavi/forecast-service/internal/visualcrossing"

	"github.com/miyamo2/qilin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	// stdout belongs to the MCP transport.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	vc := visualcrossing.New(cfg.VisualCrossing.APIKey,
		visualcrossing.WithBaseURL(cfg.VisualCrossing.BaseURL),
		visualcrossing.WithTimeout(cfg.VisualCrossing.Timeout),
	)

	q := qilin.New("forecast", qilin.WithVersion("1.0.0"))
	mcp.NewHandlers(vc, forecast.WithLocation(cfg.TimeLocation())).Register(q)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("forecast-mcp started", "mock", cfg.VisualCrossing.APIKey == "")
	if err := q.Start(qilin.StartWithContext(ctx)); err != nil {
		slog.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
