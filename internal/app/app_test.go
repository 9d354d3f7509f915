package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/clan-battles/internal/config"
	"github.com/riskibarqy/clan-battles/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
)

func memoryConfig() config.Config {
	return config.Config{
		AppEnv:       config.EnvDev,
		HTTPAddr:     ":0",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		CacheTTL:     time.Minute,
		StatsWorkers: 2,
		ClashClanTag: "#LGV2LVQY",
		ClashBaseURL: "https://api.clashroyale.com/v1",
	}
}

func TestOpenStorage_Memory(t *testing.T) {
	storage, err := OpenStorage(context.Background(), memoryConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	if !storage.Memory {
		t.Fatalf("expected memory storage when DB_URL is empty")
	}
	tags, err := storage.Players.ListTags(context.Background())
	if err != nil || len(tags) == 0 {
		t.Fatalf("expected seeded players: tags=%v err=%v", tags, err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("close memory storage: %v", err)
	}
}

func TestStorage_Cached(t *testing.T) {
	cfg := memoryConfig()
	storage, err := OpenStorage(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	if got := storage.Cached(cfg); got != storage {
		t.Fatalf("expected storage unchanged when cache is disabled")
	}

	cfg.CacheEnabled = true
	cached := storage.Cached(cfg)
	if _, ok := cached.Players.(*cache.PlayerRepository); !ok {
		t.Fatalf("expected cached player repository, got %T", cached.Players)
	}
	if _, ok := cached.Battles.(*cache.BattleRepository); !ok {
		t.Fatalf("expected cached battle repository, got %T", cached.Battles)
	}
	if cached.Locker != storage.Locker {
		t.Fatalf("expected the locker to be shared")
	}
}

func TestNewJobService_RequiresToken(t *testing.T) {
	storage, err := OpenStorage(context.Background(), memoryConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	if _, err := NewJobService(memoryConfig(), storage, logging.NewNop()); err == nil {
		t.Fatalf("expected error without CLASH_API_TOKEN")
	}

	cfg := memoryConfig()
	cfg.ClashAPIToken = "token"
	jobs, err := NewJobService(cfg, storage, logging.NewNop())
	if err != nil || jobs == nil {
		t.Fatalf("expected job service with token: jobs=%v err=%v", jobs, err)
	}
}

func TestNewHTTPServer(t *testing.T) {
	cfg := memoryConfig()
	cfg.CacheEnabled = true
	storage, err := OpenStorage(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	srv, err := NewHTTPServer(cfg, storage, logging.NewNop())
	if err != nil {
		t.Fatalf("new http server: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/players", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/ingest", nil)
	req.Header.Set("X-Internal-Job-Token", "anything")
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("job route without tokens: got=%d want=%d", rec.Code, http.StatusServiceUnavailable)
	}

	cfg.HTTPAddr = ""
	if _, err := NewHTTPServer(cfg, storage, logging.NewNop()); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
