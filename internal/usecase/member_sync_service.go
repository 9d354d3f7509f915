package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/clan-battles/internal/domain/player"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type MemberSyncResult struct {
	ClanTag   string `json:"clan_tag"`
	Fetched   int    `json:"fetched"`
	Inserted  int    `json:"inserted"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// MemberSyncService mirrors the upstream clan roster into the players table.
type MemberSyncService struct {
	players  player.Repository
	provider ClanRosterProvider
	logger   *logging.Logger
}

func NewMemberSyncService(players player.Repository, provider ClanRosterProvider, logger *logging.Logger) *MemberSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MemberSyncService{
		players:  players,
		provider: provider,
		logger:   logger.Named("member_sync"),
	}
}

// Sync upserts each roster row on its own. A row whose name already belongs to
// another tag is skipped and the loop continues.
func (s *MemberSyncService) Sync(ctx context.Context, clanTag string) (MemberSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MemberSyncService.Sync", attribute.String("clan.tag", clanTag))
	defer span.End()

	clanTag = strings.TrimSpace(clanTag)
	if !strings.HasPrefix(clanTag, "#") || len(clanTag) < 2 {
		return MemberSyncResult{}, fmt.Errorf("%w: clan tag must look like #TAG, got %q", ErrInvalidInput, clanTag)
	}
	if s.provider == nil {
		return MemberSyncResult{}, fmt.Errorf("%w: clan roster provider is not configured", ErrDependencyUnavailable)
	}

	members, err := s.provider.FetchClanMembers(ctx, clanTag)
	if err != nil {
		return MemberSyncResult{}, fmt.Errorf("fetch clan members: %w", err)
	}

	result := MemberSyncResult{ClanTag: clanTag, Fetched: len(members)}
	for _, raw := range members {
		member := player.Member{Tag: strings.TrimSpace(raw.Tag), Name: strings.TrimSpace(raw.Name)}
		if err := member.Validate(); err != nil {
			s.logger.WarnContext(ctx, "clan member skipped", "member_tag", member.Tag, "error", err)
			result.Skipped++
			continue
		}

		outcome, err := s.players.UpsertMember(ctx, member)
		if err != nil {
			s.logger.ErrorContext(ctx, "upsert clan member failed", "member_tag", member.Tag, "error", err)
			result.Failed++
			continue
		}

		switch outcome {
		case player.UpsertInserted:
			result.Inserted++
		case player.UpsertUpdated:
			result.Updated++
		case player.UpsertUnchanged:
			result.Unchanged++
		default:
			s.logger.WarnContext(ctx, "clan member skipped", "member_tag", member.Tag, "member_name", member.Name, "reason", "name belongs to another tag")
			result.Skipped++
		}
	}

	s.logger.InfoContext(ctx, "clan members synced",
		"clan_tag", clanTag,
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}
