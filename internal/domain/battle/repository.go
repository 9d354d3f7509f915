package battle

import (
	"context"
	"time"
)

// Repository describes battle persistence needs from use cases.
type Repository interface {
	// FindDuplicate looks for a stored battle between exactly playerA and playerB
	// whose time lies within [from, to].
	FindDuplicate(ctx context.Context, from, to time.Time, playerA, playerB int64) (int64, bool, error)
	// InsertWithScores stores the battle and both scores as one unit and returns the battle id.
	InsertWithScores(ctx context.Context, b Battle, scores [2]Score) (int64, error)
	List(ctx context.Context, filter Filter) ([]Record, error)
}
