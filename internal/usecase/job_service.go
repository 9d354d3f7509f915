package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/clan-battles/internal/platform/logging"
)

// WriterLockName guards every job that mutates battles or player counters.
const WriterLockName = "clan-battles-writer"

// RunLocker hands out a named, non-blocking, process-spanning lock.
type RunLocker interface {
	TryLock(ctx context.Context, name string) (release func(context.Context) error, acquired bool, err error)
}

type JobOptions struct {
	SyncMembers    bool `json:"sync_members"`
	RecomputeStats bool `json:"recompute_stats"`
}

type JobResult struct {
	Members      *MemberSyncResult `json:"members,omitempty"`
	MembersError string            `json:"members_error,omitempty"`
	Ingestion    IngestionResult   `json:"ingestion"`
	Stats        *RecomputeResult  `json:"stats,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
}

type JobConfig struct {
	ClanTag string
}

// JobService runs the writer pipeline under the run-level lock: optional member
// sync, then ingestion, then optional stats recompute.
type JobService struct {
	locker    RunLocker
	members   *MemberSyncService
	ingestion *IngestionService
	stats     *StatsService
	cfg       JobConfig
	logger    *logging.Logger
}

func NewJobService(
	locker RunLocker,
	members *MemberSyncService,
	ingestion *IngestionService,
	stats *StatsService,
	cfg JobConfig,
	logger *logging.Logger,
) *JobService {
	if logger == nil {
		logger = logging.Default()
	}
	return &JobService{
		locker:    locker,
		members:   members,
		ingestion: ingestion,
		stats:     stats,
		cfg:       cfg,
		logger:    logger.Named("job"),
	}
}

func (s *JobService) Run(ctx context.Context, opts JobOptions) (JobResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobService.Run")
	defer span.End()

	if s.locker == nil || s.ingestion == nil {
		return JobResult{}, fmt.Errorf("%w: job runner is not fully configured", ErrDependencyUnavailable)
	}
	if opts.SyncMembers && s.members == nil {
		return JobResult{}, fmt.Errorf("%w: member sync is not configured", ErrDependencyUnavailable)
	}
	if opts.RecomputeStats && s.stats == nil {
		return JobResult{}, fmt.Errorf("%w: stats recompute is not configured", ErrDependencyUnavailable)
	}

	release, acquired, err := s.locker.TryLock(ctx, WriterLockName)
	if err != nil {
		return JobResult{}, fmt.Errorf("acquire %s lock: %w", WriterLockName, err)
	}
	if !acquired {
		return JobResult{}, fmt.Errorf("%w: %s lock is held", ErrJobAlreadyRunning, WriterLockName)
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.logger.ErrorContext(ctx, "release writer lock failed", "lock", WriterLockName, "error", err)
		}
	}()

	start := time.Now()
	var result JobResult

	if opts.SyncMembers {
		members, err := s.members.Sync(ctx, s.cfg.ClanTag)
		if err != nil {
			s.logger.ErrorContext(ctx, "member sync failed, ingesting known players", "clan_tag", s.cfg.ClanTag, "error", err)
			result.MembersError = err.Error()
		} else {
			result.Members = &members
		}
	}

	ingestion, err := s.ingestion.Run(ctx)
	result.Ingestion = ingestion
	if err != nil {
		result.DurationMs = time.Since(start).Milliseconds()
		return result, fmt.Errorf("run ingestion: %w", err)
	}

	if opts.RecomputeStats {
		stats, err := s.stats.RecomputePlayerStats(ctx)
		if err != nil {
			result.DurationMs = time.Since(start).Milliseconds()
			return result, fmt.Errorf("recompute player stats: %w", err)
		}
		result.Stats = &stats
	}

	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}
