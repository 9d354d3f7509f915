package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/domain/card"
	"github.com/riskibarqy/clan-battles/internal/domain/player"
)

// BattleSideView is one side of a listed battle with deck image paths.
type BattleSideView struct {
	PlayerTag        string   `json:"player_tag"`
	PlayerName       string   `json:"player_name"`
	Crowns           int      `json:"crowns"`
	KingTowerHP      int      `json:"king_tower_hp"`
	PrincessTower1HP int      `json:"princess_tower_1_hp"`
	PrincessTower2HP int      `json:"princess_tower_2_hp"`
	ElixirLeaked     float64  `json:"elixir_leaked"`
	Deck             []string `json:"deck"`
	DeckImages       []string `json:"deck_images"`
}

type BattleView struct {
	ID       int64             `json:"id"`
	Time     time.Time         `json:"time"`
	Type     string            `json:"type"`
	GameMode string            `json:"game_mode"`
	Sides    [2]BattleSideView `json:"sides"`
}

type PlayerProfile struct {
	Tag                string  `json:"tag"`
	Name               string  `json:"name"`
	BattleCount        int     `json:"battle_count"`
	WinCount           int     `json:"win_count"`
	ThreeCrownWinCount int     `json:"three_crown_win_count"`
	WinRate            float64 `json:"win_rate"`
}

// BattleService serves read-only battle and player views.
type BattleService struct {
	players player.Repository
	battles battle.Repository
}

func NewBattleService(players player.Repository, battles battle.Repository) *BattleService {
	return &BattleService{players: players, battles: battles}
}

// List returns battles newest first. A zero Limit means no bound; callers
// paging through history set Before to the oldest time already shown.
func (s *BattleService) List(ctx context.Context, filter battle.Filter) ([]BattleView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BattleService.List")
	defer span.End()

	filter.PlayerTag = strings.TrimSpace(filter.PlayerTag)
	filter.OpponentTag = strings.TrimSpace(filter.OpponentTag)
	gameMode, err := normalizeGameModeFilter(filter.GameMode)
	if err != nil {
		return nil, err
	}
	filter.GameMode = gameMode
	if filter.OpponentTag != "" && filter.PlayerTag == "" {
		return nil, fmt.Errorf("%w: opponent tag requires a player tag", ErrInvalidInput)
	}
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0", ErrInvalidInput)
	}
	if !filter.Before.IsZero() {
		filter.Before = filter.Before.UTC()
	}

	records, err := s.battles.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}

	out := make([]BattleView, 0, len(records))
	for _, record := range records {
		out = append(out, battleView(record))
	}
	return out, nil
}

func (s *BattleService) Players(ctx context.Context) ([]PlayerProfile, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BattleService.Players")
	defer span.End()

	items, err := s.players.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	out := make([]PlayerProfile, 0, len(items))
	for _, item := range items {
		out = append(out, playerProfile(item))
	}
	return out, nil
}

func (s *BattleService) Player(ctx context.Context, tag string) (PlayerProfile, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BattleService.Player")
	defer span.End()

	tag = strings.TrimSpace(tag)
	if tag == "" {
		return PlayerProfile{}, fmt.Errorf("%w: player tag is required", ErrInvalidInput)
	}
	item, found, err := s.players.GetByTag(ctx, tag)
	if err != nil {
		return PlayerProfile{}, fmt.Errorf("get player by tag: %w", err)
	}
	if !found {
		return PlayerProfile{}, fmt.Errorf("%w: player tag=%s", ErrNotFound, tag)
	}
	return playerProfile(item), nil
}

func playerProfile(item player.Player) PlayerProfile {
	return PlayerProfile{
		Tag:                item.Tag,
		Name:               item.Name,
		BattleCount:        item.BattleCount,
		WinCount:           item.WinCount,
		ThreeCrownWinCount: item.ThreeCrownWinCount,
		WinRate:            item.WinRate(),
	}
}

func battleView(record battle.Record) BattleView {
	view := BattleView{
		ID:       record.ID,
		Time:     record.Time.UTC(),
		Type:     record.Type,
		GameMode: record.GameMode,
	}
	for idx, side := range record.Sides {
		view.Sides[idx] = BattleSideView{
			PlayerTag:        side.PlayerTag,
			PlayerName:       side.PlayerName,
			Crowns:           side.Crowns,
			KingTowerHP:      side.KingTowerHP,
			PrincessTower1HP: side.PrincessTower1HP,
			PrincessTower2HP: side.PrincessTower2HP,
			ElixirLeaked:     side.ElixirLeaked,
			Deck:             append([]string(nil), side.Deck...),
			DeckImages:       card.ImagePaths(side.Deck),
		}
	}
	return view
}
