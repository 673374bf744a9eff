package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// busyRetries is how many times RunTx and Exec retry on SQLITE_BUSY.
const busyRetries = 5

// IsBusy reports whether err looks like an SQLite busy/locked condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// RunTx runs fn inside a transaction, committing on nil return and rolling
// back otherwise. Busy errors on begin/commit are retried with backoff.
func RunTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt <= busyRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			lastErr = err
			if IsBusy(err) {
				continue
			}
			return fmt.Errorf("dbopen: begin tx: %w", err)
		}

		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			lastErr = err
			if IsBusy(err) {
				continue
			}
			return fmt.Errorf("dbopen: commit: %w", err)
		}
		return nil
	}
	return fmt.Errorf("dbopen: tx still busy after %d retries: %w", busyRetries, lastErr)
}

// Exec runs a single statement with busy retries.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= busyRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
		res, err := db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !IsBusy(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("dbopen: exec still busy after %d retries: %w", busyRetries, lastErr)
}
