package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/clan-battles/internal/domain/battle"
)

// DuplicateDetector reports whether a match between two players is already
// stored within the skew window around its time.
type DuplicateDetector struct {
	battles battle.Repository
	window  time.Duration
}

func NewDuplicateDetector(battles battle.Repository) *DuplicateDetector {
	return &DuplicateDetector{
		battles: battles,
		window:  battle.DuplicateWindow,
	}
}

// IsDuplicate errors with ErrDuplicateCheckIndeterminate when storage cannot
// answer. Callers must not insert in that case.
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, at time.Time, playerA, playerB int64) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DuplicateDetector.IsDuplicate")
	defer span.End()

	if playerA <= 0 || playerB <= 0 || playerA == playerB {
		return false, fmt.Errorf("%w: duplicate check needs two distinct player ids, got %d and %d", ErrInvalidInput, playerA, playerB)
	}

	at = at.UTC()
	_, found, err := d.battles.FindDuplicate(ctx, at.Add(-d.window), at.Add(d.window), playerA, playerB)
	if err != nil {
		return false, fmt.Errorf("%w: find battle near %s: %v", ErrDuplicateCheckIndeterminate, at.Format(time.RFC3339), err)
	}
	return found, nil
}
