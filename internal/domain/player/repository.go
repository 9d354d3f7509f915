package player

import "context"

// UpsertOutcome reports what UpsertMember did with a roster row.
type UpsertOutcome string

const (
	UpsertInserted  UpsertOutcome = "inserted"
	UpsertUpdated   UpsertOutcome = "updated"
	UpsertUnchanged UpsertOutcome = "unchanged"
	UpsertSkipped   UpsertOutcome = "skipped"
)

// Repository describes player persistence needs from use cases.
type Repository interface {
	List(ctx context.Context) ([]Player, error)
	ListTags(ctx context.Context) ([]string, error)
	GetByTag(ctx context.Context, tag string) (Player, bool, error)
	GetByName(ctx context.Context, name string) (Player, bool, error)
	UpsertMember(ctx context.Context, member Member) (UpsertOutcome, error)
	UpdateStats(ctx context.Context, playerID int64, stats Stats) error
}
