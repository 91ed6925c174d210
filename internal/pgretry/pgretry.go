// Package pgretry retries transactions that lose a serialization or deadlock
// race. Postgres rolls the loser back cleanly, so re-running the whole
// transaction is safe.
package pgretry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConcurrencyConflict is surfaced after the retry budget is spent.
var ErrConcurrencyConflict = errors.New("concurrent update conflict")

const (
	maxAttempts = 3
	baseDelay   = 25 * time.Millisecond
	jitter      = 10 * time.Millisecond
)

// Do runs fn, retrying up to maxAttempts with jittered backoff while the
// error is a retryable Postgres conflict. Any other error returns immediately.
func Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt)*baseDelay + time.Duration(rand.Int63n(int64(jitter)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		err = fn()
		if err == nil || !Retryable(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
}

// Retryable reports whether err is a serialization failure (40001) or a
// deadlock (40P01).
func Retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
