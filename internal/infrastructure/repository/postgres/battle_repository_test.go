package postgres

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/riskibarqy/clan-battles/internal/domain/battle"
)

func TestBuildListQuery(t *testing.T) {
	t.Parallel()

	before := time.Date(2024, 3, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600))
	base := "SELECT " + strings.Join(battleRecordColumns, ", ") +
		" FROM battles AS b JOIN scores AS s1 ON s1.battle_id = b.id" +
		" JOIN scores AS s2 ON s2.battle_id = b.id AND s2.player_id <> s1.player_id" +
		" JOIN players AS p1 ON p1.id = s1.player_id" +
		" JOIN players AS p2 ON p2.id = s2.player_id"

	tests := []struct {
		name      string
		filter    battle.Filter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "no filter lists each battle once",
			filter:    battle.Filter{},
			wantWhere: " WHERE s1.player_id < s2.player_id ORDER BY b.time DESC",
		},
		{
			name:      "no filter with limit",
			filter:    battle.Filter{Limit: battle.DefaultPageSize},
			wantWhere: " WHERE s1.player_id < s2.player_id ORDER BY b.time DESC LIMIT 10",
		},
		{
			name:      "ALL mode adds no condition",
			filter:    battle.Filter{GameMode: battle.GameModeAll},
			wantWhere: " WHERE s1.player_id < s2.player_id ORDER BY b.time DESC",
		},
		{
			name:      "game mode",
			filter:    battle.Filter{GameMode: battle.GameModePickMode},
			wantWhere: " WHERE s1.player_id < s2.player_id AND b.game_mode = $1 ORDER BY b.time DESC",
			wantArgs:  []any{battle.GameModePickMode},
		},
		{
			name:      "game mode with limit",
			filter:    battle.Filter{GameMode: battle.GameModePickMode, Limit: 25},
			wantWhere: " WHERE s1.player_id < s2.player_id AND b.game_mode = $1 ORDER BY b.time DESC LIMIT 25",
			wantArgs:  []any{battle.GameModePickMode},
		},
		{
			name:      "player",
			filter:    battle.Filter{PlayerTag: " #2J200GLG8 "},
			wantWhere: " WHERE p1.tag = $1 ORDER BY b.time DESC",
			wantArgs:  []any{"#2J200GLG8"},
		},
		{
			name:      "player with limit",
			filter:    battle.Filter{PlayerTag: "#2J200GLG8", GameMode: battle.GameModeAll, Limit: 10},
			wantWhere: " WHERE p1.tag = $1 ORDER BY b.time DESC LIMIT 10",
			wantArgs:  []any{"#2J200GLG8"},
		},
		{
			name:      "player and game mode",
			filter:    battle.Filter{PlayerTag: "#2J200GLG8", GameMode: battle.GameModeDraftCompetitive},
			wantWhere: " WHERE p1.tag = $1 AND b.game_mode = $2 ORDER BY b.time DESC",
			wantArgs:  []any{"#2J200GLG8", battle.GameModeDraftCompetitive},
		},
		{
			name:      "player and game mode with limit",
			filter:    battle.Filter{PlayerTag: "#2J200GLG8", GameMode: battle.GameModeDraftCompetitive, Limit: 10},
			wantWhere: " WHERE p1.tag = $1 AND b.game_mode = $2 ORDER BY b.time DESC LIMIT 10",
			wantArgs:  []any{"#2J200GLG8", battle.GameModeDraftCompetitive},
		},
		{
			name:      "player and opponent",
			filter:    battle.Filter{PlayerTag: "#2J200GLG8", OpponentTag: "#8QYQ0PU", GameMode: battle.GameModeAll},
			wantWhere: " WHERE p1.tag = $1 AND p2.tag = $2 ORDER BY b.time DESC",
			wantArgs:  []any{"#2J200GLG8", "#8QYQ0PU"},
		},
		{
			name:      "player and opponent with limit",
			filter:    battle.Filter{PlayerTag: "#2J200GLG8", OpponentTag: "#8QYQ0PU", Limit: 10},
			wantWhere: " WHERE p1.tag = $1 AND p2.tag = $2 ORDER BY b.time DESC LIMIT 10",
			wantArgs:  []any{"#2J200GLG8", "#8QYQ0PU"},
		},
		{
			name:      "player, opponent and game mode",
			filter:    battle.Filter{PlayerTag: "#2J200GLG8", OpponentTag: "#8QYQ0PU", GameMode: battle.GameModePickMode},
			wantWhere: " WHERE p1.tag = $1 AND p2.tag = $2 AND b.game_mode = $3 ORDER BY b.time DESC",
			wantArgs:  []any{"#2J200GLG8", "#8QYQ0PU", battle.GameModePickMode},
		},
		{
			name:      "player, opponent and game mode with limit",
			filter:    battle.Filter{PlayerTag: "#2J200GLG8", OpponentTag: "#8QYQ0PU", GameMode: battle.GameModePickMode, Limit: 10},
			wantWhere: " WHERE p1.tag = $1 AND p2.tag = $2 AND b.game_mode = $3 ORDER BY b.time DESC LIMIT 10",
			wantArgs:  []any{"#2J200GLG8", "#8QYQ0PU", battle.GameModePickMode},
		},
		{
			name:      "before with page size",
			filter:    battle.Filter{Before: before, Limit: battle.DefaultPageSize},
			wantWhere: " WHERE s1.player_id < s2.player_id AND b.time < $1 ORDER BY b.time DESC LIMIT 10",
			wantArgs:  []any{before.UTC()},
		},
		{
			name:      "opponent without player is ignored",
			filter:    battle.Filter{OpponentTag: "#8QYQ0PU"},
			wantWhere: " WHERE s1.player_id < s2.player_id ORDER BY b.time DESC",
		},
		{
			name: "every field",
			filter: battle.Filter{
				Before:      before,
				GameMode:    battle.GameModeDraftCompetitive,
				PlayerTag:   "#2J200GLG8",
				OpponentTag: "#8QYQ0PU",
				Limit:       10,
			},
			wantWhere: " WHERE p1.tag = $1 AND p2.tag = $2 AND b.game_mode = $3 AND b.time < $4 ORDER BY b.time DESC LIMIT 10",
			wantArgs:  []any{"#2J200GLG8", "#8QYQ0PU", battle.GameModeDraftCompetitive, before.UTC()},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			query, args, err := buildListQuery(tc.filter)
			if err != nil {
				t.Fatalf("build list query: %v", err)
			}
			if want := base + tc.wantWhere; query != want {
				t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
			}
			if len(args) != len(tc.wantArgs) || (len(args) > 0 && !reflect.DeepEqual(args, tc.wantArgs)) {
				t.Fatalf("unexpected args: got=%+v want=%+v", args, tc.wantArgs)
			}
		})
	}
}

func TestBuildFindDuplicateQuery(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	query, args, err := buildFindDuplicateQuery(at.Add(-battle.DuplicateWindow), at.Add(battle.DuplicateWindow), 1, 2)
	if err != nil {
		t.Fatalf("build find duplicate query: %v", err)
	}

	want := "SELECT b.id FROM battles AS b JOIN scores AS s1 ON s1.battle_id = b.id " +
		"JOIN scores AS s2 ON s2.battle_id = b.id " +
		"WHERE b.time BETWEEN $1 AND $2 AND s1.player_id = $3 AND s2.player_id = $4 ORDER BY b.id LIMIT 1"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 4 {
		t.Fatalf("unexpected args count: got=%d want=4", len(args))
	}
	if args[0] != at.Add(-time.Second) || args[1] != at.Add(time.Second) {
		t.Fatalf("unexpected window args: %+v", args[:2])
	}
	if args[2] != int64(1) || args[3] != int64(2) {
		t.Fatalf("unexpected player args: %+v", args[2:])
	}
}

func TestBuildInsertQueries(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 0, 0, 400_000_000, time.UTC)
	query, args, err := buildInsertBattleQuery(battle.Battle{Time: at, Type: "clanMate", GameMode: battle.GameModePickMode})
	if err != nil {
		t.Fatalf("build insert battle query: %v", err)
	}
	if query != "INSERT INTO battles (time, type, game_mode) VALUES ($1, $2, $3) RETURNING id" {
		t.Fatalf("unexpected battle query: %s", query)
	}
	if args[0] != at.Truncate(time.Second) {
		t.Fatalf("expected battle time truncated to the second, got %v", args[0])
	}

	deck := []string{"Knight", "Archers"}
	query, args, err = buildInsertScoreQuery(7, battle.Score{PlayerID: 2, Crowns: 3, ElixirLeaked: 1.25, Deck: deck})
	if err != nil {
		t.Fatalf("build insert score query: %v", err)
	}
	want := "INSERT INTO scores (battle_id, player_id, crowns, king_tower_hp, princess_tower_1_hp, " +
		"princess_tower_2_hp, elixir_leaked, deck) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"
	if query != want {
		t.Fatalf("unexpected score query:\nwant: %s\ngot:  %s", want, query)
	}
	if args[0] != int64(7) || args[1] != int64(2) {
		t.Fatalf("unexpected score ids: %+v", args[:2])
	}
	if got, ok := args[7].(pq.StringArray); !ok || !reflect.DeepEqual([]string(got), deck) {
		t.Fatalf("expected deck as pq.StringArray, got %#v", args[7])
	}
}

func TestRecordFromRow(t *testing.T) {
	t.Parallel()

	row := battleRecordRow{
		ID:           9,
		Time:         time.Date(2024, 3, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600)),
		GameMode:     battle.GameModePickMode,
		S1PlayerTag:  "#2J200GLG8",
		S1Crowns:     2,
		S1Deck:       pq.StringArray{"Knight"},
		S2PlayerTag:  "#8QYQ0PU",
		S2Crowns:     1,
		S2PlayerName: "Samca",
	}

	record := recordFromRow(row)
	if record.Time.Location() != time.UTC {
		t.Fatalf("expected UTC time, got %v", record.Time.Location())
	}
	if record.Sides[0].PlayerTag != "#2J200GLG8" || record.Sides[1].PlayerName != "Samca" {
		t.Fatalf("unexpected sides: %+v", record.Sides)
	}
	if record.Winner() != 0 {
		t.Fatalf("expected first side to win, got %d", record.Winner())
	}
}
