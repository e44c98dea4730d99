package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PetoAdam/homenavi/forecast-service/internal/config"
	"github.com/PetoAdam/homenavi/forecast-service/internal/forecast"
	"github.com/PetoAdam/homenavi/forecast-service/internal/httpapi"
	"github.com/PetoAdam/homenavi/forecast-service/internal/observability"
	"github.com/PetoAdam/homenavi/forecast-service/internal/ratelimit"
	"github.com/PetoAdam/homenavi/forecast-service/internal/realtime"
	"github.com/PetoAdam/homenavi/forecast-service/internal/session"
	"github.com/PetoAdam/homenavi/forecast-service/internal/visualcrossing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	shutdownObs, promHandler, tracer := observability.SetupObservability("forecast-service")
	defer shutdownObs()

	vc := visualcrossing.New(cfg.VisualCrossing.APIKey,
		visualcrossing.WithBaseURL(cfg.VisualCrossing.BaseURL),
		visualcrossing.WithTimeout(cfg.VisualCrossing.Timeout),
	)
	querier := observability.InstrumentQuerier(vc, tracer)
	loc := forecast.WithLocation(cfg.TimeLocation())

	hub := realtime.NewHub()
	sessions := session.New(cfg.Session.TTL, httpapi.ControllerFactory(querier, hub, loc))
	srv := httpapi.NewServer(querier, sessions, hub, loc)

	sched := cron.New()
	if _, err := sessions.ScheduleSweep(sched, cfg.Session.Sweep); err != nil {
		slog.Error("invalid session sweep schedule", "schedule", cfg.Session.Sweep, "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			slog.Warn("redis unreachable, rate limiting will fail open", "addr", cfg.Redis.Addr, "error", err)
		}
		cancel()
		limiter := ratelimit.New(rdb, "forecast:rl:", ratelimit.LimiterConfig{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst})
		srv.WithRateLimit(limiter.Middleware(ratelimit.KeyByIP))
		slog.Info("rate limiting enabled", "rps", cfg.RateLimit.RPS, "burst", cfg.RateLimit.Burst)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(observability.MetricsAndTracingMiddleware(tracer, "forecast-service"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promHandler)

	r.Route("/api", func(r chi.Router) {
		srv.RegisterRoutes(r)
	})

	// No WriteTimeout: websocket connections stay open for the session lifetime.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("forecast-service started", "port", cfg.Port, "mock", cfg.VisualCrossing.APIKey == "")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down")
	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
