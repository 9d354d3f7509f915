package postgres

import (
	"time"

	"github.com/lib/pq"
)

type battleInsertModel struct {
	Time     time.Time `db:"time"`
	Type     string    `db:"type"`
	GameMode string    `db:"game_mode"`
}

type scoreInsertModel struct {
	BattleID         int64          `db:"battle_id"`
	PlayerID         int64          `db:"player_id"`
	Crowns           int            `db:"crowns"`
	KingTowerHP      int            `db:"king_tower_hp"`
	PrincessTower1HP int            `db:"princess_tower_1_hp"`
	PrincessTower2HP int            `db:"princess_tower_2_hp"`
	ElixirLeaked     float64        `db:"elixir_leaked"`
	Deck             pq.StringArray `db:"deck"`
}

// battleRecordRow is one battle joined with both scores; columns prefixed
// s1_/s2_ hold the perspective side and the opponent side.
type battleRecordRow struct {
	ID       int64     `db:"id"`
	Time     time.Time `db:"time"`
	Type     string    `db:"type"`
	GameMode string    `db:"game_mode"`

	S1PlayerID         int64          `db:"s1_player_id"`
	S1PlayerTag        string         `db:"s1_player_tag"`
	S1PlayerName       string         `db:"s1_player_name"`
	S1Crowns           int            `db:"s1_crowns"`
	S1KingTowerHP      int            `db:"s1_king_tower_hp"`
	S1PrincessTower1HP int            `db:"s1_princess_tower_1_hp"`
	S1PrincessTower2HP int            `db:"s1_princess_tower_2_hp"`
	S1ElixirLeaked     float64        `db:"s1_elixir_leaked"`
	S1Deck             pq.StringArray `db:"s1_deck"`

	S2PlayerID         int64          `db:"s2_player_id"`
	S2PlayerTag        string         `db:"s2_player_tag"`
	S2PlayerName       string         `db:"s2_player_name"`
	S2Crowns           int            `db:"s2_crowns"`
	S2KingTowerHP      int            `db:"s2_king_tower_hp"`
	S2PrincessTower1HP int            `db:"s2_princess_tower_1_hp"`
	S2PrincessTower2HP int            `db:"s2_princess_tower_2_hp"`
	S2ElixirLeaked     float64        `db:"s2_elixir_leaked"`
	S2Deck             pq.StringArray `db:"s2_deck"`
}
