package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	maxAttempts    = 3
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = time.Second
)

// TxStarter is satisfied by *pgxpool.Pool and makes transaction helpers mockable.
type TxStarter interface {
	Begin(context.Context) (pgx.Tx, error)
}

// WithTx runs fn inside a transaction and retries on transient failures
// (serialization conflicts, deadlocks, dropped connections). Every mutating
// ride or wallet operation goes through here so the read-modify-write unit
// either commits as a whole or leaves no trace.
func WithTx(ctx context.Context, pool TxStarter, fn func(pgx.Tx) error) error {
	backoff := initialBackoff
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = runTx(ctx, pool, fn)
		if err == nil || !isPostgresRetryable(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return err
}

func runTx(ctx context.Context, pool TxStarter, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// RetryableExec executes a command with retry logic for transient failures
func RetryableExec(ctx context.Context, pool interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
}, query string, args ...interface{}) (pgconn.CommandTag, error) {
	backoff := initialBackoff
	var tag pgconn.CommandTag
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tag, err = pool.Exec(ctx, query, args...)
		if err == nil || !isPostgresRetryable(err) {
			return tag, err
		}

		select {
		case <-ctx.Done():
			return pgconn.CommandTag{}, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return tag, err
}

// isPostgresRetryable determines if a PostgreSQL error should be retried
func isPostgresRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03", // lock_not_available
			"53300", // too_many_connections
			"08000", "08003", "08006", // connection_exception
			"57P01", "57P02", "57P03": // server shutdown / cannot connect
			return true
		}
		// Constraint violations, data exceptions and syntax errors never heal
		// on retry.
		return false
	}

	errMsg := strings.ToLower(err.Error())
	for _, msg := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"server closed",
		"unexpected eof",
	} {
		if strings.Contains(errMsg, msg) {
			return true
		}
	}

	return false
}
