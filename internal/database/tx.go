package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so store functions can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
	MaxRetries     int
	// OnRetry, when set, is told about every failed attempt that will be
	// retried.
	OnRetry func(attempt int, err error)
}

func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		ReadOnly:       false,
		MaxRetries:     3,
	}
}

// RetryLogger returns an OnRetry hook that logs each retried conflict.
func RetryLogger(logger *zap.Logger) func(attempt int, err error) {
	return func(attempt int, err error) {
		logger.Warn("transaction conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
}

func WithTransaction(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.IsolationLevel,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// WithRetry runs fn in a fresh transaction, retrying with jittered
// exponential backoff while the failure is a lock timeout, deadlock or
// serialization failure. fn must not keep state across attempts.
func WithRetry(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	var lastErr error
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := WithTransaction(ctx, db, opts, fn)
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return err
		}

		if attempt == opts.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", opts.MaxRetries, err)
		}

		lastErr = err
		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, err)
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
	}

	return lastErr
}

func sleepWithJitter(ctx context.Context, backoff time.Duration) error {
	jitter := time.Duration(rand.Int63n(int64(backoff / 4)))

	select {
	case <-time.After(backoff + jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
