package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/domain/player"
	"github.com/riskibarqy/clan-battles/internal/platform/id"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
)

const (
	ingestStatusSuccess = "success"
	ingestStatusFailed  = "failed"
	ingestStatusSkipped = "skipped"
)

type ingestOutcome string

const (
	outcomeInserted    ingestOutcome = "inserted"
	outcomeDuplicate   ingestOutcome = "duplicate"
	outcomeFiltered    ingestOutcome = "filtered"
	outcomeUnknown     ingestOutcome = "unknown_participant"
	outcomeCheckFailed ingestOutcome = "check_failed"
	outcomeConflict    ingestOutcome = "conflict"
	outcomeFailed      ingestOutcome = "failed"
)

// IngestionCounts tallies record outcomes for one player or a whole run.
type IngestionCounts struct {
	Fetched     int `json:"fetched"`
	Inserted    int `json:"inserted"`
	Duplicate   int `json:"duplicate"`
	Filtered    int `json:"filtered"`
	Unknown     int `json:"unknown_participant"`
	CheckFailed int `json:"check_failed"`
	Conflict    int `json:"conflict"`
	Failed      int `json:"failed"`
}

func (c *IngestionCounts) add(outcome ingestOutcome) {
	switch outcome {
	case outcomeInserted:
		c.Inserted++
	case outcomeDuplicate:
		c.Duplicate++
	case outcomeFiltered:
		c.Filtered++
	case outcomeUnknown:
		c.Unknown++
	case outcomeCheckFailed:
		c.CheckFailed++
	case outcomeConflict:
		c.Conflict++
	default:
		c.Failed++
	}
}

func (c *IngestionCounts) merge(other IngestionCounts) {
	c.Fetched += other.Fetched
	c.Inserted += other.Inserted
	c.Duplicate += other.Duplicate
	c.Filtered += other.Filtered
	c.Unknown += other.Unknown
	c.CheckFailed += other.CheckFailed
	c.Conflict += other.Conflict
	c.Failed += other.Failed
}

type IngestionResult struct {
	RunID       string                  `json:"run_id"`
	PlayerCount int                     `json:"player_count"`
	FailedCount int                     `json:"failed_count"`
	Totals      IngestionCounts         `json:"totals"`
	Players     []IngestionPlayerResult `json:"players"`
	DurationMs  int64                   `json:"duration_ms"`
	StartedAt   time.Time               `json:"started_at"`
	Interrupted bool                    `json:"interrupted,omitempty"`
}

type IngestionPlayerResult struct {
	PlayerTag  string          `json:"player_tag"`
	Status     string          `json:"status"`
	Counts     IngestionCounts `json:"counts"`
	DurationMs int64           `json:"duration_ms"`
	Message    string          `json:"message,omitempty"`
}

// IngestionService pulls every tracked player's battle log and stores each
// real match once.
type IngestionService struct {
	players  player.Repository
	battles  battle.Repository
	provider BattleLogProvider
	detector *DuplicateDetector
	ids      id.Generator
	logger   *logging.Logger
	now      func() time.Time
}

func NewIngestionService(
	players player.Repository,
	battles battle.Repository,
	provider BattleLogProvider,
	ids id.Generator,
	logger *logging.Logger,
) *IngestionService {
	if ids == nil {
		ids = id.NewNanoGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		players:  players,
		battles:  battles,
		provider: provider,
		detector: NewDuplicateDetector(battles),
		ids:      ids,
		logger:   logger.Named("ingestion"),
		now:      time.Now,
	}
}

// Run ingests players one at a time. A failure on one record or one player
// never stops the run; only context cancellation does.
func (s *IngestionService) Run(ctx context.Context) (IngestionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Run")
	defer span.End()

	if s.provider == nil {
		return IngestionResult{}, fmt.Errorf("%w: battle log provider is not configured", ErrDependencyUnavailable)
	}

	runID, err := s.ids.NewID()
	if err != nil {
		return IngestionResult{}, fmt.Errorf("generate run id: %w", err)
	}
	started := s.now()
	logger := s.logger.With("run_id", runID)

	tags, err := s.players.ListTags(ctx)
	if err != nil {
		return IngestionResult{}, fmt.Errorf("list player tags: %w", err)
	}

	result := IngestionResult{
		RunID:       runID,
		PlayerCount: len(tags),
		StartedAt:   started.UTC(),
		Players:     make([]IngestionPlayerResult, 0, len(tags)),
	}
	resolver := newParticipantResolver(s.players)

	for _, tag := range tags {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		row := s.ingestPlayer(ctx, logger, resolver, tag)
		if row.Status == ingestStatusFailed {
			result.FailedCount++
		}
		result.Totals.merge(row.Counts)
		result.Players = append(result.Players, row)
	}

	result.DurationMs = s.now().Sub(started).Milliseconds()
	logger.InfoContext(ctx, "ingestion run finished",
		"players", result.PlayerCount,
		"inserted", result.Totals.Inserted,
		"duplicate", result.Totals.Duplicate,
		"filtered", result.Totals.Filtered,
		"unknown_participant", result.Totals.Unknown,
		"check_failed", result.Totals.CheckFailed,
		"conflict", result.Totals.Conflict,
		"failed", result.Totals.Failed,
		"failed_players", result.FailedCount,
		"duration_ms", result.DurationMs,
	)

	if result.Interrupted {
		return result, fmt.Errorf("ingestion interrupted: %w", ctx.Err())
	}
	return result, nil
}

func (s *IngestionService) ingestPlayer(ctx context.Context, logger *logging.Logger, resolver *participantResolver, tag string) IngestionPlayerResult {
	start := s.now()
	row := IngestionPlayerResult{PlayerTag: tag}
	logger = logger.With("player_tag", tag)

	raws, err := s.provider.FetchBattleLog(ctx, tag)
	if err != nil {
		logger.ErrorContext(ctx, "fetch battle log failed", "error", err)
		row.Status = ingestStatusFailed
		row.Message = err.Error()
		row.DurationMs = s.now().Sub(start).Milliseconds()
		return row
	}

	row.Counts.Fetched = len(raws)
	for _, raw := range raws {
		if ctx.Err() != nil {
			break
		}
		row.Counts.add(s.ingestRecord(ctx, logger, resolver, raw))
	}

	row.Status = ingestStatusSuccess
	if row.Counts.Fetched == 0 {
		row.Status = ingestStatusSkipped
		row.Message = "battle log is empty"
	}
	row.DurationMs = s.now().Sub(start).Milliseconds()
	return row
}

func (s *IngestionService) ingestRecord(ctx context.Context, logger *logging.Logger, resolver *participantResolver, raw ExternalBattle) ingestOutcome {
	canonical, ok, err := NormalizeBattle(raw)
	if err != nil {
		logger.WarnContext(ctx, "malformed battle record", "battle_time", raw.BattleTime, "error", err)
		return outcomeFailed
	}
	if !ok {
		logger.DebugContext(ctx, "battle filtered", "battle_time", raw.BattleTime, "type", raw.Type, "game_mode", raw.GameMode)
		return outcomeFiltered
	}
	logger = logger.With("battle_time", canonical.Time.Format(time.RFC3339), "game_mode", canonical.GameMode)

	var ids [2]int64
	for idx, side := range canonical.Sides {
		resolved, err := resolver.resolve(ctx, side)
		if errors.Is(err, ErrUnknownParticipant) {
			logger.InfoContext(ctx, "battle skipped", "reason", "unknown participant", "participant_tag", side.Tag, "participant_name", side.Name)
			return outcomeUnknown
		}
		if err != nil {
			logger.ErrorContext(ctx, "resolve participant failed", "participant_tag", side.Tag, "error", err)
			return outcomeFailed
		}
		ids[idx] = resolved.ID
	}
	if ids[0] == ids[1] {
		logger.WarnContext(ctx, "battle skipped", "reason", "both sides resolve to one player", "player_id", ids[0])
		return outcomeFailed
	}

	duplicate, err := s.detector.IsDuplicate(ctx, canonical.Time, ids[0], ids[1])
	if err != nil {
		logger.ErrorContext(ctx, "duplicate check failed, battle not inserted", "error", err)
		return outcomeCheckFailed
	}
	if duplicate {
		logger.DebugContext(ctx, "battle already stored")
		return outcomeDuplicate
	}

	record := battle.Battle{Time: canonical.Time, Type: canonical.Type, GameMode: canonical.GameMode}
	scores := [2]battle.Score{
		battle.ScoreFor(canonical.Sides[0], ids[0]),
		battle.ScoreFor(canonical.Sides[1], ids[1]),
	}
	battleID, err := s.battles.InsertWithScores(ctx, record, scores)
	if errors.Is(err, battle.ErrConflict) {
		logger.ErrorContext(ctx, "battle insert conflicted, rolled back", "error", err)
		return outcomeConflict
	}
	if err != nil {
		logger.ErrorContext(ctx, "battle insert failed", "error", err)
		return outcomeFailed
	}

	logger.InfoContext(ctx, "battle inserted", "battle_id", battleID, "player_a_id", ids[0], "player_b_id", ids[1])
	return outcomeInserted
}

type resolvedPlayer struct {
	player player.Player
	found  bool
}

// participantResolver maps battle participants to stored players, by tag first
// and by name as a fallback. Lookups, including misses, are cached for one run.
type participantResolver struct {
	players player.Repository
	byTag   map[string]resolvedPlayer
	byName  map[string]resolvedPlayer
}

func newParticipantResolver(players player.Repository) *participantResolver {
	return &participantResolver{
		players: players,
		byTag:   make(map[string]resolvedPlayer),
		byName:  make(map[string]resolvedPlayer),
	}
}

func (r *participantResolver) resolve(ctx context.Context, side battle.Participant) (player.Player, error) {
	tag := strings.TrimSpace(side.Tag)
	if tag != "" {
		hit, err := r.lookup(ctx, r.byTag, tag, r.players.GetByTag)
		if err != nil {
			return player.Player{}, fmt.Errorf("get player by tag %s: %w", tag, err)
		}
		if hit.found {
			return hit.player, nil
		}
	}

	name := strings.TrimSpace(side.Name)
	if name != "" {
		hit, err := r.lookup(ctx, r.byName, name, r.players.GetByName)
		if err != nil {
			return player.Player{}, fmt.Errorf("get player by name %s: %w", name, err)
		}
		if hit.found {
			return hit.player, nil
		}
	}

	return player.Player{}, fmt.Errorf("%w: tag=%q name=%q", ErrUnknownParticipant, tag, name)
}

func (r *participantResolver) lookup(
	ctx context.Context,
	cache map[string]resolvedPlayer,
	key string,
	load func(context.Context, string) (player.Player, bool, error),
) (resolvedPlayer, error) {
	if hit, ok := cache[key]; ok {
		return hit, nil
	}
	item, found, err := load(ctx, key)
	if err != nil {
		return resolvedPlayer{}, err
	}
	hit := resolvedPlayer{player: item, found: found}
	cache[key] = hit
	return hit, nil
}
