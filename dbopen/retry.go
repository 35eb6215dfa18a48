package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const busyAttempts = 3

// ErrRetriesExhausted is returned when every attempt hit SQLITE_BUSY.
var ErrRetriesExhausted = errors.New("dbopen: busy retries exhausted")

// IsBusy reports whether err is an SQLite lock contention error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{"SQLITE_BUSY", "database is locked", "database table is locked"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// RunTx runs fn in a transaction. fn's error rolls the transaction back and
// is returned unchanged. Busy errors are retried with a linear backoff.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return retry(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("dbopen: begin: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("dbopen: commit: %w", err)
		}
		return nil
	})
}

// Exec runs a single statement with the same busy retry as RunTx.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retry(ctx, func() error {
		r, err := db.ExecContext(ctx, query, args...)
		res = r
		return err
	})
	return res, err
}

func retry(ctx context.Context, op func() error) error {
	for attempt := 1; attempt <= busyAttempts; attempt++ {
		err := op()
		if err == nil || !IsBusy(err) {
			return err
		}
		if attempt == busyAttempts {
			return fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
		}
		t := time.NewTimer(time.Duration(attempt) * 100 * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("dbopen: retry interrupted: %w", ctx.Err())
		case <-t.C:
		}
	}
	return ErrRetriesExhausted
}
