package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/domain/card"
	"github.com/riskibarqy/clan-battles/internal/domain/player"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const defaultStatsWorkers = 4

// CardCatalogSource lists the cards known to the deployment.
type CardCatalogSource interface {
	Catalog(ctx context.Context) (card.Catalog, error)
}

type StatsConfig struct {
	Workers int
}

type RecomputeResult struct {
	PlayerCount  int                      `json:"player_count"`
	UpdatedCount int                      `json:"updated_count"`
	FailedCount  int                      `json:"failed_count"`
	WorkerCount  int                      `json:"worker_count"`
	DurationMs   int64                    `json:"duration_ms"`
	Failures     []RecomputePlayerFailure `json:"failures,omitempty"`
}

type RecomputePlayerFailure struct {
	PlayerTag string `json:"player_tag"`
	Message   string `json:"message"`
}

// HeadToHead is a player's record against one opponent, or against everyone
// when OpponentTag is empty.
type HeadToHead struct {
	PlayerTag          string  `json:"player_tag"`
	OpponentTag        string  `json:"opponent_tag,omitempty"`
	GameMode           string  `json:"game_mode"`
	BattleCount        int     `json:"battle_count"`
	WinCount           int     `json:"win_count"`
	ThreeCrownWinCount int     `json:"three_crown_win_count"`
	WinRate            float64 `json:"win_rate"`
}

// StatsService derives counters from stored battles. It never calls upstream.
type StatsService struct {
	players player.Repository
	battles battle.Repository
	cards   CardCatalogSource
	cfg     StatsConfig
	logger  *logging.Logger
}

func NewStatsService(
	players player.Repository,
	battles battle.Repository,
	cards CardCatalogSource,
	cfg StatsConfig,
	logger *logging.Logger,
) *StatsService {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultStatsWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsService{
		players: players,
		battles: battles,
		cards:   cards,
		cfg:     cfg,
		logger:  logger.Named("stats"),
	}
}

// RecomputePlayerStats replaces every player's stored counters with a full
// recount of their battles. Players are recounted in parallel.
func (s *StatsService) RecomputePlayerStats(ctx context.Context) (RecomputeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsService.RecomputePlayerStats")
	defer span.End()

	start := time.Now()
	items, err := s.players.List(ctx)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("list players: %w", err)
	}

	workerCount := s.cfg.Workers
	if workerCount > len(items) {
		workerCount = len(items)
	}
	result := RecomputeResult{PlayerCount: len(items), WorkerCount: workerCount}
	if len(items) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var updated atomic.Int32
	failures := make(chan RecomputePlayerFailure, len(items))

	err = submitEach(pool, items, func(item player.Player) {
		if err := s.recomputePlayer(ctx, item); err != nil {
			s.logger.ErrorContext(ctx, "recompute player stats failed", "player_tag", item.Tag, "error", err)
			failures <- RecomputePlayerFailure{PlayerTag: item.Tag, Message: err.Error()}
			return
		}
		updated.Add(1)
	})
	close(failures)
	if err != nil {
		return RecomputeResult{}, err
	}

	for failure := range failures {
		result.Failures = append(result.Failures, failure)
	}
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].PlayerTag < result.Failures[j].PlayerTag
	})

	result.UpdatedCount = int(updated.Load())
	result.FailedCount = len(result.Failures)
	result.DurationMs = time.Since(start).Milliseconds()
	s.logger.InfoContext(ctx, "player stats recomputed",
		"players", result.PlayerCount,
		"updated", result.UpdatedCount,
		"failed", result.FailedCount,
		"workers", result.WorkerCount,
	)
	return result, nil
}

type taskSubmitter interface {
	Submit(task func()) error
}

// submitEach runs fn for every item on pool and returns once every
// submitted task has finished, including when a submit fails midway.
func submitEach[T any](pool taskSubmitter, items []T, fn func(T)) error {
	var workers sync.WaitGroup
	defer workers.Wait()

	for _, item := range items {
		item := item
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			fn(item)
		}); err != nil {
			workers.Done()
			return fmt.Errorf("submit task to worker pool: %w", err)
		}
	}
	return nil
}

func (s *StatsService) recomputePlayer(ctx context.Context, item player.Player) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	records, err := s.battles.List(ctx, battle.Filter{PlayerTag: item.Tag})
	if err != nil {
		return fmt.Errorf("list battles: %w", err)
	}
	stats := battle.CountFromPerspective(records).Stats()
	if err := s.players.UpdateStats(ctx, item.ID, stats); err != nil {
		return fmt.Errorf("update stats: %w", err)
	}
	return nil
}

func (s *StatsService) HeadToHead(ctx context.Context, playerTag, opponentTag, gameMode string) (HeadToHead, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsService.HeadToHead",
		attribute.String("player.tag", playerTag),
		attribute.String("opponent.tag", opponentTag),
	)
	defer span.End()

	playerTag = strings.TrimSpace(playerTag)
	opponentTag = strings.TrimSpace(opponentTag)
	gameMode, err := normalizeGameModeFilter(gameMode)
	if err != nil {
		return HeadToHead{}, err
	}
	if playerTag == "" {
		return HeadToHead{}, fmt.Errorf("%w: player tag is required", ErrInvalidInput)
	}
	if playerTag == opponentTag {
		return HeadToHead{}, fmt.Errorf("%w: player and opponent must differ", ErrInvalidInput)
	}

	for _, tag := range []string{playerTag, opponentTag} {
		if tag == "" {
			continue
		}
		if _, found, err := s.players.GetByTag(ctx, tag); err != nil {
			return HeadToHead{}, fmt.Errorf("get player by tag %s: %w", tag, err)
		} else if !found {
			return HeadToHead{}, fmt.Errorf("%w: player tag=%s", ErrNotFound, tag)
		}
	}

	records, err := s.battles.List(ctx, battle.Filter{
		PlayerTag:   playerTag,
		OpponentTag: opponentTag,
		GameMode:    gameMode,
	})
	if err != nil {
		return HeadToHead{}, fmt.Errorf("list battles: %w", err)
	}

	counters := battle.CountFromPerspective(records)
	return HeadToHead{
		PlayerTag:          playerTag,
		OpponentTag:        opponentTag,
		GameMode:           gameMode,
		BattleCount:        counters.BattleCount,
		WinCount:           counters.WinCount,
		ThreeCrownWinCount: counters.ThreeCrownWinCount,
		WinRate:            counters.WinRate(),
	}, nil
}

// CardStats tallies every known card over all stored battles of a mode.
// Without a catalog source the catalog is the set of cards seen in those battles.
func (s *StatsService) CardStats(ctx context.Context, gameMode string) ([]card.Stat, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsService.CardStats")
	defer span.End()

	gameMode, err := normalizeGameModeFilter(gameMode)
	if err != nil {
		return nil, err
	}

	records, err := s.battles.List(ctx, battle.Filter{GameMode: gameMode})
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}

	var catalog card.Catalog
	if s.cards != nil {
		catalog, err = s.cards.Catalog(ctx)
		if err != nil {
			return nil, fmt.Errorf("load card catalog: %w", err)
		}
	}
	if catalog.Len() == 0 {
		decks := make([][]string, 0, len(records)*2)
		for _, record := range records {
			decks = append(decks, record.Sides[0].Deck, record.Sides[1].Deck)
		}
		catalog = card.CatalogFromDecks(decks...)
	}

	return card.Tally(records, catalog), nil
}

func normalizeGameModeFilter(gameMode string) (string, error) {
	gameMode = strings.TrimSpace(gameMode)
	if gameMode == "" {
		return battle.GameModeAll, nil
	}
	if !battle.IsKnownGameMode(gameMode) {
		return "", fmt.Errorf("%w: unknown game mode %q", ErrInvalidInput, gameMode)
	}
	return gameMode, nil
}
