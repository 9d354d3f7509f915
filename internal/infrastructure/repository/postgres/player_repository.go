package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/clan-battles/internal/domain/player"
	qb "github.com/riskibarqy/clan-battles/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

var playerSelectColumns = []string{
	"id",
	"tag",
	"name",
	"battle_count",
	"win_count",
	"three_crown_win_count",
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		OrderBy("LOWER(name)", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerFromRow(row))
	}
	return out, nil
}

func (r *PlayerRepository) ListTags(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("tag").From("players").OrderBy("tag").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select player tags query: %w", err)
	}

	var tags []string
	if err := r.db.SelectContext(ctx, &tags, query, args...); err != nil {
		return nil, fmt.Errorf("select player tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func (r *PlayerRepository) GetByTag(ctx context.Context, tag string) (player.Player, bool, error) {
	return r.getOne(ctx, "tag", tag)
}

func (r *PlayerRepository) GetByName(ctx context.Context, name string) (player.Player, bool, error) {
	return r.getOne(ctx, "name", name)
}

func (r *PlayerRepository) getOne(ctx context.Context, column, value string) (player.Player, bool, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(qb.Eq(column, value)).
		Limit(1).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player by %s query: %w", column, err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("select player by %s: %w", column, err)
	}
	return playerFromRow(row), true, nil
}

// UpsertMember inserts a new tag, renames a known tag, and skips the row when
// the name already belongs to a different tag.
func (r *PlayerRepository) UpsertMember(ctx context.Context, member player.Member) (player.UpsertOutcome, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx upsert member: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	ownerQuery, ownerArgs, err := qb.Select("COUNT(1)").From("players").
		Where(
			qb.Eq("name", member.Name),
			qb.Expr("tag <> ?", member.Tag),
		).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("build select member name owner query: %w", err)
	}
	var owners int
	if err := tx.GetContext(ctx, &owners, ownerQuery, ownerArgs...); err != nil {
		return "", fmt.Errorf("select member name owner: %w", err)
	}
	if owners > 0 {
		return player.UpsertSkipped, nil
	}

	currentQuery, currentArgs, err := qb.Select("name").From("players").
		Where(qb.Eq("tag", member.Tag)).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("build select member by tag query: %w", err)
	}
	var currentName string
	err = tx.GetContext(ctx, &currentName, currentQuery+" FOR UPDATE", currentArgs...)
	switch {
	case isNotFound(err):
		insertQuery, insertArgs, buildErr := qb.InsertModel("players", playerInsertModel{
			Tag:  member.Tag,
			Name: member.Name,
		}, "")
		if buildErr != nil {
			return "", fmt.Errorf("build insert member query: %w", buildErr)
		}
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
			if isUniqueViolation(err) {
				return player.UpsertSkipped, nil
			}
			return "", fmt.Errorf("insert member %s: %w", member.Tag, err)
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("commit upsert member tx: %w", err)
		}
		return player.UpsertInserted, nil
	case err != nil:
		return "", fmt.Errorf("select member by tag: %w", err)
	}

	if currentName == member.Name {
		return player.UpsertUnchanged, nil
	}

	updateQuery, updateArgs, err := qb.Update("players").
		Set("name", member.Name).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("tag", member.Tag)).
		ToSQL()
	if err != nil {
		return "", fmt.Errorf("build update member name query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
		if isUniqueViolation(err) {
			return player.UpsertSkipped, nil
		}
		return "", fmt.Errorf("update member name %s: %w", member.Tag, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit upsert member tx: %w", err)
	}
	return player.UpsertUpdated, nil
}

func (r *PlayerRepository) UpdateStats(ctx context.Context, playerID int64, stats player.Stats) error {
	query, args, err := qb.Update("players").
		Set("battle_count", stats.BattleCount).
		Set("win_count", stats.WinCount).
		Set("three_crown_win_count", stats.ThreeCrownWinCount).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", playerID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update player stats query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update player stats: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected update player stats: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update player stats: player id=%d not found", playerID)
	}
	return nil
}

func playerFromRow(row playerTableModel) player.Player {
	return player.Player{
		ID:                 row.ID,
		Tag:                row.Tag,
		Name:               row.Name,
		BattleCount:        row.BattleCount,
		WinCount:           row.WinCount,
		ThreeCrownWinCount: row.ThreeCrownWinCount,
	}
}
