package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/clan-battles/internal/domain/player"
	"github.com/riskibarqy/clan-battles/internal/infrastructure/repository/memory"
)

const seedPlayersQuery = `
INSERT INTO players (tag, name)
SELECT tag, name FROM unnest($1::text[], $2::text[]) AS seed(tag, name)
WHERE NOT EXISTS (SELECT 1 FROM players)
ON CONFLICT DO NOTHING`

// BootstrapSeed loads the dev roster into an empty players table in one
// statement and reports how many rows it inserted. A table that already has
// rows is left alone.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) (int64, error) {
	tags, names := seedColumns(memory.SeedPlayers())

	result, err := db.ExecContext(ctx, seedPlayersQuery, pq.StringArray(tags), pq.StringArray(names))
	if err != nil {
		return 0, fmt.Errorf("seed players: %w", err)
	}
	return result.RowsAffected()
}

func seedColumns(players []player.Player) (tags, names []string) {
	tags = make([]string, len(players))
	names = make([]string, len(players))
	for i, p := range players {
		tags[i], names[i] = p.Tag, p.Name
	}
	return tags, names
}
