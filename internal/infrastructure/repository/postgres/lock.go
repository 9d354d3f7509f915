package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

const (
	tryAdvisoryLockQuery = `SELECT pg_try_advisory_lock(hashtext($1))`
	advisoryUnlockQuery  = `SELECT pg_advisory_unlock(hashtext($1))`
)

// AdvisoryLocker holds session-level advisory locks on a dedicated
// connection, so two job processes against one database never write at once.
type AdvisoryLocker struct {
	db *sqlx.DB
}

func NewAdvisoryLocker(db *sqlx.DB) *AdvisoryLocker {
	return &AdvisoryLocker{db: db}
}

func (l *AdvisoryLocker) TryLock(ctx context.Context, name string) (func(context.Context) error, bool, error) {
	conn, err := l.db.Connx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("open advisory lock connection: %w", err)
	}

	var acquired bool
	if err := conn.GetContext(ctx, &acquired, tryAdvisoryLockQuery, name); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("try advisory lock %s: %w", name, err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	var (
		once       sync.Once
		releaseErr error
	)
	release := func(ctx context.Context) error {
		once.Do(func() {
			defer func() {
				_ = conn.Close()
			}()
			var released bool
			if err := conn.GetContext(ctx, &released, advisoryUnlockQuery, name); err != nil {
				releaseErr = fmt.Errorf("advisory unlock %s: %w", name, err)
				return
			}
			if !released {
				releaseErr = fmt.Errorf("advisory unlock %s: lock was not held", name)
			}
		})
		return releaseErr
	}
	return release, true, nil
}
