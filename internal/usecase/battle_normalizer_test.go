package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/clan-battles/internal/domain/battle"
)

func TestNormalizeBattle_Allowlist(t *testing.T) {
	t.Parallel()

	base := clanBattle(noon, battle.GameModeDraftCompetitive, participant(tagRaue, "Raue Hände", 1), participant(tagSamca, "Samca", 0))

	tests := []struct {
		name   string
		mutate func(*ExternalBattle)
		wantOK bool
	}{
		{name: "clan mate draft competitive", mutate: func(*ExternalBattle) {}, wantOK: true},
		{name: "ladder is never kept", mutate: func(b *ExternalBattle) { b.Type = "ladder" }, wantOK: false},
		{name: "clan mate 2v2 blitz", mutate: func(b *ExternalBattle) { b.GameMode = "2v2_Blitz" }, wantOK: false},
		{name: "clan mate duel", mutate: func(b *ExternalBattle) { b.GameMode = battle.GameModeDuel1v1Friendly }, wantOK: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			raw := base
			tc.mutate(&raw)
			_, ok, err := NormalizeBattle(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tc.wantOK {
				t.Fatalf("unexpected ok: got=%v want=%v", ok, tc.wantOK)
			}
		})
	}
}

func TestNormalizeBattle_PrincessTowers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hp    []int
		want1 int
		want2 int
	}{
		{hp: nil, want1: 0, want2: 0},
		{hp: []int{}, want1: 0, want2: 0},
		{hp: []int{2400}, want1: 2400, want2: 0},
		{hp: []int{1800, 2400}, want1: 1800, want2: 2400},
	}

	for _, tc := range tests {
		team := participant(tagRaue, "Raue Hände", 2)
		team.PrincessTowersHitPoints = tc.hp
		got, ok, err := NormalizeBattle(clanBattle(noon, battle.GameModePickMode, team, participant(tagSamca, "Samca", 1)))
		if err != nil || !ok {
			t.Fatalf("normalize %v: ok=%v err=%v", tc.hp, ok, err)
		}
		side := got.Sides[0]
		if side.PrincessTower1HP != tc.want1 || side.PrincessTower2HP != tc.want2 {
			t.Fatalf("towers %v: got=(%d,%d) want=(%d,%d)", tc.hp, side.PrincessTower1HP, side.PrincessTower2HP, tc.want1, tc.want2)
		}
	}
}

func TestNormalizeBattle_Fields(t *testing.T) {
	t.Parallel()

	raw := clanBattle(noon, battle.GameModePickMode, participant(tagRaue, " Raue Hände ", 3), participant(tagSamca, "Samca", 0))
	raw.BattleTime = "20240301T120000.750Z"

	got, ok, err := NormalizeBattle(raw)
	if err != nil || !ok {
		t.Fatalf("normalize: ok=%v err=%v", ok, err)
	}
	if !got.Time.Equal(noon) || got.Time.Location() != time.UTC {
		t.Fatalf("unexpected time: %s", got.Time)
	}
	if got.Sides[0].Name != "Raue Hände" || got.Sides[1].Tag != tagSamca {
		t.Fatalf("unexpected sides: %+v", got.Sides)
	}
	if got.Sides[0].Crowns != 3 || got.Sides[0].KingTowerHP != 4008 || got.Sides[0].ElixirLeaked != 1.25 {
		t.Fatalf("unexpected side stats: %+v", got.Sides[0])
	}
	if len(got.Sides[1].Deck) != battle.DeckSize || got.Sides[1].Deck[2] != "Hog Rider" {
		t.Fatalf("unexpected deck: %+v", got.Sides[1].Deck)
	}
}

func TestNormalizeBattle_Malformed(t *testing.T) {
	t.Parallel()

	valid := clanBattle(noon, battle.GameModePickMode, participant(tagRaue, "Raue Hände", 1), participant(tagSamca, "Samca", 0))

	badTime := valid
	badTime.BattleTime = "2024-03-01 12:00:00"
	noTeam := valid
	noTeam.Team = nil
	noOpponent := valid
	noOpponent.Opponent = []ExternalParticipant{}

	for name, raw := range map[string]ExternalBattle{"bad time": badTime, "no team": noTeam, "no opponent": noOpponent} {
		if _, _, err := NormalizeBattle(raw); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}

	filteredBadTime := badTime
	filteredBadTime.Type = "ladder"
	if _, ok, err := NormalizeBattle(filteredBadTime); ok || err != nil {
		t.Fatalf("filtered records are not parsed: ok=%v err=%v", ok, err)
	}
}
