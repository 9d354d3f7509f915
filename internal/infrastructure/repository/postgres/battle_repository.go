package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/clan-battles/internal/domain/battle"
	qb "github.com/riskibarqy/clan-battles/internal/platform/querybuilder"
)

type BattleRepository struct {
	db *sqlx.DB
}

var battleRecordColumns = []string{
	"b.id",
	"b.time",
	"b.type",
	"b.game_mode",
	"s1.player_id AS s1_player_id",
	"p1.tag AS s1_player_tag",
	"p1.name AS s1_player_name",
	"s1.crowns AS s1_crowns",
	"s1.king_tower_hp AS s1_king_tower_hp",
	"s1.princess_tower_1_hp AS s1_princess_tower_1_hp",
	"s1.princess_tower_2_hp AS s1_princess_tower_2_hp",
	"s1.elixir_leaked AS s1_elixir_leaked",
	"s1.deck AS s1_deck",
	"s2.player_id AS s2_player_id",
	"p2.tag AS s2_player_tag",
	"p2.name AS s2_player_name",
	"s2.crowns AS s2_crowns",
	"s2.king_tower_hp AS s2_king_tower_hp",
	"s2.princess_tower_1_hp AS s2_princess_tower_1_hp",
	"s2.princess_tower_2_hp AS s2_princess_tower_2_hp",
	"s2.elixir_leaked AS s2_elixir_leaked",
	"s2.deck AS s2_deck",
}

func NewBattleRepository(db *sqlx.DB) *BattleRepository {
	return &BattleRepository{db: db}
}

func (r *BattleRepository) FindDuplicate(ctx context.Context, from, to time.Time, playerA, playerB int64) (int64, bool, error) {
	query, args, err := buildFindDuplicateQuery(from, to, playerA, playerB)
	if err != nil {
		return 0, false, fmt.Errorf("build select duplicate battle query: %w", err)
	}

	var id int64
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("select duplicate battle: %w", err)
	}
	return id, true, nil
}

// InsertWithScores writes the battle row and both score rows in one transaction.
func (r *BattleRepository) InsertWithScores(ctx context.Context, b battle.Battle, scores [2]battle.Score) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, fmt.Errorf("validate battle: %w", err)
	}
	if err := battle.ValidateScores(scores); err != nil {
		return 0, fmt.Errorf("validate scores: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx insert battle: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	battleQuery, battleArgs, err := buildInsertBattleQuery(b)
	if err != nil {
		return 0, fmt.Errorf("build insert battle query: %w", err)
	}
	var battleID int64
	if err := tx.GetContext(ctx, &battleID, battleQuery, battleArgs...); err != nil {
		return 0, fmt.Errorf("insert battle: %w", mapWriteError(err))
	}

	for idx, score := range scores {
		scoreQuery, scoreArgs, err := buildInsertScoreQuery(battleID, score)
		if err != nil {
			return 0, fmt.Errorf("build insert score %d query: %w", idx+1, err)
		}
		if _, err := tx.ExecContext(ctx, scoreQuery, scoreArgs...); err != nil {
			return 0, fmt.Errorf("insert score %d: %w", idx+1, mapWriteError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert battle tx: %w", err)
	}
	return battleID, nil
}

func (r *BattleRepository) List(ctx context.Context, filter battle.Filter) ([]battle.Record, error) {
	query, args, err := buildListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build select battles query: %w", err)
	}

	var rows []battleRecordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select battles: %w", err)
	}

	out := make([]battle.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, recordFromRow(row))
	}
	return out, nil
}

func buildFindDuplicateQuery(from, to time.Time, playerA, playerB int64) (string, []any, error) {
	return qb.Select("b.id").From("battles AS b").
		Join("scores AS s1 ON s1.battle_id = b.id").
		Join("scores AS s2 ON s2.battle_id = b.id").
		Where(
			qb.Between("b.time", from.UTC(), to.UTC()),
			qb.Eq("s1.player_id", playerA),
			qb.Eq("s2.player_id", playerB),
		).
		OrderBy("b.id").
		Limit(1).
		ToSQL()
}

func buildInsertBattleQuery(b battle.Battle) (string, []any, error) {
	return qb.InsertModel("battles", battleInsertModel{
		Time:     b.Time.UTC().Truncate(time.Second),
		Type:     b.Type,
		GameMode: b.GameMode,
	}, "RETURNING id")
}

func buildInsertScoreQuery(battleID int64, s battle.Score) (string, []any, error) {
	return qb.InsertModel("scores", scoreInsertModel{
		BattleID:         battleID,
		PlayerID:         s.PlayerID,
		Crowns:           s.Crowns,
		KingTowerHP:      s.KingTowerHP,
		PrincessTower1HP: s.PrincessTower1HP,
		PrincessTower2HP: s.PrincessTower2HP,
		ElixirLeaked:     s.ElixirLeaked,
		Deck:             pq.StringArray(s.Deck),
	}, "")
}

// buildListQuery compiles every combination of the optional filter fields.
// With a player tag the s1 side is that player; without one each battle is
// returned once, lower player id first.
func buildListQuery(filter battle.Filter) (string, []any, error) {
	builder := qb.Select(battleRecordColumns...).From("battles AS b").
		Join("scores AS s1 ON s1.battle_id = b.id").
		Join("scores AS s2 ON s2.battle_id = b.id AND s2.player_id <> s1.player_id").
		Join("players AS p1 ON p1.id = s1.player_id").
		Join("players AS p2 ON p2.id = s2.player_id")

	playerTag := strings.TrimSpace(filter.PlayerTag)
	if playerTag == "" {
		builder.Where(qb.Expr("s1.player_id < s2.player_id"))
	} else {
		builder.Where(qb.Eq("p1.tag", playerTag))
		if opponentTag := strings.TrimSpace(filter.OpponentTag); opponentTag != "" {
			builder.Where(qb.Eq("p2.tag", opponentTag))
		}
	}
	if filter.HasGameMode() {
		builder.Where(qb.Eq("b.game_mode", strings.TrimSpace(filter.GameMode)))
	}
	if !filter.Before.IsZero() {
		builder.Where(qb.Expr("b.time < ?", filter.Before.UTC()))
	}

	return builder.OrderBy("b.time DESC").Limit(filter.Limit).ToSQL()
}

func mapWriteError(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", battle.ErrConflict, err)
	}
	return err
}

func recordFromRow(row battleRecordRow) battle.Record {
	return battle.Record{
		ID:       row.ID,
		Time:     row.Time.UTC(),
		Type:     row.Type,
		GameMode: row.GameMode,
		Sides: [2]battle.Side{
			{
				PlayerID:         row.S1PlayerID,
				PlayerTag:        row.S1PlayerTag,
				PlayerName:       row.S1PlayerName,
				Crowns:           row.S1Crowns,
				KingTowerHP:      row.S1KingTowerHP,
				PrincessTower1HP: row.S1PrincessTower1HP,
				PrincessTower2HP: row.S1PrincessTower2HP,
				ElixirLeaked:     row.S1ElixirLeaked,
				Deck:             []string(row.S1Deck),
			},
			{
				PlayerID:         row.S2PlayerID,
				PlayerTag:        row.S2PlayerTag,
				PlayerName:       row.S2PlayerName,
				Crowns:           row.S2Crowns,
				KingTowerHP:      row.S2KingTowerHP,
				PrincessTower1HP: row.S2PrincessTower1HP,
				PrincessTower2HP: row.S2PrincessTower2HP,
				ElixirLeaked:     row.S2ElixirLeaked,
				Deck:             []string(row.S2Deck),
			},
		},
	}
}
