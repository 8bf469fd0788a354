// Package main provides the worker application entry point.
// The worker consumes resource/auto-complete queue jobs and dispatches
// them to the classifier, populator, matching, assigner, lifecycle and
// auto-complete packages.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neptunehub/campus-errand-engine/internal/adapter/notify"
	"github.com/neptunehub/campus-errand-engine/internal/adapter/observability"
	"github.com/neptunehub/campus-errand-engine/internal/adapter/queue/asynqadp"
	"github.com/neptunehub/campus-errand-engine/internal/adapter/repo/postgres"
	"github.com/neptunehub/campus-errand-engine/internal/assigner"
	"github.com/neptunehub/campus-errand-engine/internal/autocomplete"
	"github.com/neptunehub/campus-errand-engine/internal/classifier"
	"github.com/neptunehub/campus-errand-engine/internal/config"
	"github.com/neptunehub/campus-errand-engine/internal/lifecycle"
	"github.com/neptunehub/campus-errand-engine/internal/matching"
	"github.com/neptunehub/campus-errand-engine/internal/populator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.SetAppEnv(cfg.AppEnv)

	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("schema migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	store := postgres.NewStore(pool)
	resources := postgres.NewResourceRepo(pool)
	errands := postgres.NewErrandRepo(pool)
	matches := postgres.NewMatchRepo(pool)
	users := postgres.NewUserRepo(pool)
	wallets := postgres.NewWalletRepo(pool)
	profiles := postgres.NewRunnerProfileRepo(pool)

	embedder := classifier.NewHashingEmbedder()
	classify, err := classifier.New(ctx, embedder)
	if err != nil {
		slog.Error("classifier init failed", slog.Any("error", err))
		os.Exit(1)
	}

	notifier := notify.New(cfg, logger)

	deps := asynqadp.Deps{
		Resources: resources,
		Classify:  classify,
		Populate:  populator.New(resources, profiles, logger),
		Match:     matching.New(resources, matches, embedder, matching.NewHungarianMatcher(), logger),
		Assign:    assigner.New(store, resources, errands, profiles, notifier, logger),
		Lifecycle: lifecycle.New(matches, users, notifier, logger),
		Complete:  autocomplete.New(store, matches, users, wallets, logger),
		Log:       logger,
	}

	srv, err := asynqadp.NewServer(cfg.RedisURL, cfg.ConsumerMaxConcurrency, deps)
	if err != nil {
		slog.Error("asynq server init failed", slog.Any("error", err))
		os.Exit(1)
	}

	cleanup := postgres.NewCleanupService(pool, cfg.DataRetentionDays)
	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go cleanup.RunPeriodic(cleanupCtx, cfg.CleanupInterval)

	go func() {
		slog.Info("starting asynq server")
		if err := srv.Start(); err != nil {
			slog.Error("asynq server error", slog.Any("error", err))
		}
	}()

	slog.Info("worker started successfully, waiting for shutdown signal")
	slog.Info("send signal TERM or INT to terminate the process")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	slog.Info("signal received, shutting down", slog.String("signal", sig.String()))
	srv.Stop()
	slog.Info("worker stopped")
}
