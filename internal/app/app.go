package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/riskibarqy/clan-battles/external/clashroyale"
	"github.com/riskibarqy/clan-battles/internal/config"
	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/domain/player"
	"github.com/riskibarqy/clan-battles/internal/infrastructure/cardcatalog"
	"github.com/riskibarqy/clan-battles/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/clan-battles/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/clan-battles/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/clan-battles/internal/interfaces/httpapi"
	"github.com/riskibarqy/clan-battles/internal/platform/id"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
	"github.com/riskibarqy/clan-battles/internal/platform/resilience"
	"github.com/riskibarqy/clan-battles/internal/usecase"
)

// Storage is the repository set shared by the API and the ingest job.
type Storage struct {
	Players player.Repository
	Battles battle.Repository
	Locker  usecase.RunLocker
	Memory  bool

	closeFn func() error
}

// OpenStorage returns postgres repositories, or the seeded in-process ones
// when DB_URL is empty.
func OpenStorage(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Storage, error) {
	if logger == nil {
		logger = logging.Default()
	}

	if cfg.UsesMemoryStorage() {
		logger.WarnContext(ctx, "DB_URL is empty, using in-memory storage", "app_env", cfg.AppEnv)
		players := memory.NewPlayerRepository(memory.SeedPlayers())
		return &Storage{
			Players: players,
			Battles: memory.NewBattleRepository(players),
			Locker:  memory.NewRunLocker(),
			Memory:  true,
		}, nil
	}

	db, err := OpenDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Storage{
		Players: postgres.NewPlayerRepository(db),
		Battles: postgres.NewBattleRepository(db),
		Locker:  postgres.NewAdvisoryLocker(db),
		closeFn: db.Close,
	}, nil
}

// Cached wraps the repositories with read caches. Writes go through the same
// decorators so they invalidate what this process cached.
func (s *Storage) Cached(cfg config.Config) *Storage {
	if !cfg.CacheEnabled {
		return s
	}
	return &Storage{
		Players: cache.NewPlayerRepository(s.Players, cfg.CacheTTL),
		Battles: cache.NewBattleRepository(s.Battles, cfg.CacheTTL),
		Locker:  s.Locker,
		Memory:  s.Memory,
		closeFn: s.closeFn,
	}
}

func (s *Storage) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

func NewClashClient(cfg config.Config, logger *logging.Logger) *clashroyale.Client {
	return clashroyale.NewClient(clashroyale.ClientConfig{
		BaseURL:      cfg.ClashBaseURL,
		Token:        cfg.ClashAPIToken,
		Timeout:      cfg.ClashTimeout,
		MaxRetries:   cfg.ClashMaxRetries,
		RateLimitRPS: cfg.ClashRateLimitRPS,
		Logger:       logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.ClashCircuitEnabled,
			FailureThreshold: cfg.ClashCircuitFailureCount,
			OpenTimeout:      cfg.ClashCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ClashCircuitHalfOpenMaxReq,
		},
	})
}

func NewStatsService(cfg config.Config, storage *Storage, logger *logging.Logger) *usecase.StatsService {
	var cards usecase.CardCatalogSource
	if cfg.CardImagesDir != "" {
		cards = cardcatalog.NewDirSource(cfg.CardImagesDir, cfg.CacheTTL)
	}
	return usecase.NewStatsService(storage.Players, storage.Battles, cards, usecase.StatsConfig{
		Workers: cfg.StatsWorkers,
	}, logger)
}

// NewJobService builds the writer pipeline against the live upstream API.
func NewJobService(cfg config.Config, storage *Storage, logger *logging.Logger) (*usecase.JobService, error) {
	if err := cfg.RequireUpstream(); err != nil {
		return nil, err
	}

	client := NewClashClient(cfg, logger)
	members := usecase.NewMemberSyncService(storage.Players, client, logger)
	ingestion := usecase.NewIngestionService(storage.Players, storage.Battles, client, id.NewNanoGenerator(), logger)
	stats := NewStatsService(cfg, storage, logger)

	return usecase.NewJobService(storage.Locker, members, ingestion, stats, usecase.JobConfig{
		ClanTag: cfg.ClashClanTag,
	}, logger), nil
}

func NewHTTPServer(cfg config.Config, storage *Storage, logger *logging.Logger) (*http.Server, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	storage = storage.Cached(cfg)
	battleSvc := usecase.NewBattleService(storage.Players, storage.Battles)
	statsSvc := NewStatsService(cfg, storage, logger)

	var jobSvc *usecase.JobService
	if cfg.ClashAPIToken != "" {
		svc, err := NewJobService(cfg, storage, logger)
		if err != nil {
			return nil, fmt.Errorf("build ingest job: %w", err)
		}
		jobSvc = svc
	} else {
		logger.Warn("CLASH_API_TOKEN is empty, ingest job route is disabled")
	}

	handler := httpapi.NewHandler(battleSvc, statsSvc, jobSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, nil
}
