package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	"github.com/riskibarqy/clan-battles/internal/infrastructure/repository/memory"
)

const (
	tagRaue  = "#2J200GLG8"
	tagSamca = "#8QYQ0PU"
	tagKrone = "#PL9VY2R0"
)

var noon = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type staticIDGenerator string

func (g staticIDGenerator) NewID() (string, error) {
	return string(g), nil
}

type stubBattleLogProvider struct {
	mu    sync.Mutex
	logs  map[string][]ExternalBattle
	errs  map[string]error
	calls []string
}

func (p *stubBattleLogProvider) FetchBattleLog(_ context.Context, playerTag string) ([]ExternalBattle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, playerTag)
	if err := p.errs[playerTag]; err != nil {
		return nil, err
	}
	return p.logs[playerTag], nil
}

type stubRosterProvider struct {
	members []ExternalMember
	err     error
}

func (p stubRosterProvider) FetchClanMembers(context.Context, string) ([]ExternalMember, error) {
	return p.members, p.err
}

func upstreamTime(at time.Time) string {
	return at.UTC().Format(BattleTimeLayout)
}

func participant(tag, name string, crowns int) ExternalParticipant {
	return ExternalParticipant{
		Tag:                     tag,
		Name:                    name,
		Crowns:                  crowns,
		ElixirLeaked:            1.25,
		KingTowerHitPoints:      4008,
		PrincessTowersHitPoints: []int{2534},
		Cards:                   []string{"Knight", "Zap", "Hog Rider", "Fireball", "Skeletons", "Ice Spirit", "Cannon", "Musketeer"},
	}
}

func clanBattle(at time.Time, mode string, team, opponent ExternalParticipant) ExternalBattle {
	return ExternalBattle{
		BattleTime: upstreamTime(at),
		Type:       battle.AllowedType,
		GameMode:   mode,
		Team:       []ExternalParticipant{team},
		Opponent:   []ExternalParticipant{opponent},
	}
}

// mirrored returns the same match as seen from the opponent's battle log.
func mirrored(raw ExternalBattle, skew time.Duration) ExternalBattle {
	at, _ := time.Parse(BattleTimeLayout, raw.BattleTime)
	return ExternalBattle{
		BattleTime: upstreamTime(at.Add(skew)),
		Type:       raw.Type,
		GameMode:   raw.GameMode,
		Team:       raw.Opponent,
		Opponent:   raw.Team,
	}
}

type storeFixture struct {
	players *memory.PlayerRepository
	battles *memory.BattleRepository
}

func newStoreFixture(t *testing.T) storeFixture {
	t.Helper()
	players := memory.NewPlayerRepository(memory.SeedPlayers())
	return storeFixture{players: players, battles: memory.NewBattleRepository(players)}
}
