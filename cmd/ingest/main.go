package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/riskibarqy/clan-battles/internal/app"
	"github.com/riskibarqy/clan-battles/internal/config"
	"github.com/riskibarqy/clan-battles/internal/observability"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
	"github.com/riskibarqy/clan-battles/internal/usecase"
)

const (
	exitFailed         = 1
	exitAlreadyRunning = 3
)

func main() {
	syncMembers := flag.Bool("sync-members", false, "refresh the clan roster before ingesting")
	recomputeStats := flag.Bool("recompute-stats", false, "recount every player's stored counters after ingesting")
	timeout := flag.Duration("timeout", 10*time.Minute, "upper bound for the whole run")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// stdout carries only the job result.
	base := logging.NewJSONTo(os.Stderr, cfg.LogLevel)
	if cfg.AppEnv == config.EnvDev {
		base = logging.NewConsoleTo(os.Stderr, cfg.LogLevel)
	}
	logger := base.With(
		"service", cfg.ServiceName+"-ingest",
		"version", cfg.ServiceVersion,
		"env", cfg.AppEnv,
	)
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	code := run(cfg, logger, usecase.JobOptions{
		SyncMembers:    *syncMembers,
		RecomputeStats: *recomputeStats,
	}, *timeout)
	if code != 0 {
		_ = logger.Sync()
		os.Exit(code)
	}
}

func run(cfg config.Config, logger *logging.Logger, opts usecase.JobOptions, timeout time.Duration) int {
	if err := cfg.RequireUpstream(); err != nil {
		logger.Error("ingest is not configured", "error", err)
		return exitFailed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	obs, err := observability.Start(cfg, logger, observability.Options{Component: "ingest"})
	if err != nil {
		logger.Error("start observability failed", "error", err)
		return exitFailed
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			logger.Warn("observability shutdown failed", "error", err)
		}
	}()

	storage, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("open storage failed", "error", err)
		return exitFailed
	}
	defer func() {
		_ = storage.Close()
	}()
	if storage.Memory {
		logger.Warn("ingesting into in-memory storage, results are discarded on exit")
	}

	jobs, err := app.NewJobService(cfg, storage, logger)
	if err != nil {
		logger.Error("build ingest job failed", "error", err)
		return exitFailed
	}

	result, runErr := jobs.Run(ctx, opts)
	if err := writeResult(os.Stdout, result); err != nil {
		logger.Warn("write job result failed", "error", err)
	}

	switch {
	case errors.Is(runErr, usecase.ErrJobAlreadyRunning):
		logger.Warn("another writer job holds the lock", "error", runErr)
		return exitAlreadyRunning
	case runErr != nil:
		logger.Error("ingest job failed", "error", runErr)
		return exitFailed
	}

	logger.Info("ingest job finished",
		"run_id", result.Ingestion.RunID,
		"players", result.Ingestion.PlayerCount,
		"inserted", result.Ingestion.Totals.Inserted,
		"duplicate", result.Ingestion.Totals.Duplicate,
		"failed_players", result.Ingestion.FailedCount,
		"duration_ms", result.DurationMs,
	)
	return 0
}

func writeResult(out io.Writer, result usecase.JobResult) error {
	return sonic.ConfigDefault.NewEncoder(out).Encode(result)
}
