package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUnknownSource       = errors.New("unknown ledger source")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// AppendTx inserts a ledger entry and moves the cached balance inside the
// caller's transaction. The caller must already hold the user's row lock.
// A charging debit that would drive the balance negative fails with
// ErrInsufficientCredits and leaves nothing written.
func (r *Repository) AppendTx(ctx context.Context, tx *sqlx.Tx, entry *Entry) error {
	if !entry.Source.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSource, entry.Source)
	}

	if entry.Delta < 0 && entry.Source.OriginatesCharge() {
		res, err := tx.ExecContext(ctx, debitBalanceQuery, -entry.Delta, entry.UserID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInsufficientCredits
		}
	} else {
		if _, err := tx.ExecContext(ctx, adjustBalanceQuery, entry.Delta, entry.UserID); err != nil {
			return err
		}
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return tx.GetContext(ctx, &entry.CreatedAt, insertEntryQuery,
		entry.ID, entry.UserID, entry.RideID, entry.Delta, entry.Source)
}

const debitBalanceQuery = `
UPDATE users SET credits_balance = credits_balance - $1
WHERE id = $2 AND credits_balance >= $1
`

const adjustBalanceQuery = `UPDATE users SET credits_balance = credits_balance + $1 WHERE id = $2`

const insertEntryQuery = `
INSERT INTO credit_ledger (id, user_id, ride_id, delta, source, created_at)
VALUES ($1, $2, $3, $4, $5, now())
RETURNING created_at
`

// BalanceOf returns the cached balance.
func (r *Repository) BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance, balanceQuery, userID)
	return balance, err
}

// BalanceOfTx reads the cached balance inside a transaction, after the
// transaction's own writes.
func (r *Repository) BalanceOfTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.GetContext(ctx, &balance, balanceQuery, userID)
	return balance, err
}

const balanceQuery = `SELECT credits_balance FROM users WHERE id = $1`

// LedgerSum recomputes the balance from the ledger. Reconciliation and tests
// only; the cache is the fast path.
func (r *Repository) LedgerSum(ctx context.Context, userID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.GetContext(ctx, &sum, ledgerSumQuery, userID)
	return sum, err
}

const ledgerSumQuery = `SELECT COALESCE(SUM(delta), 0) FROM credit_ledger WHERE user_id = $1`

// EntriesForUser returns a user's ledger entries, newest first.
func (r *Repository) EntriesForUser(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	var entries []Entry
	err := r.db.SelectContext(ctx, &entries, entriesForUserQuery, userID)
	return entries, err
}

const entriesForUserQuery = `
SELECT * FROM credit_ledger WHERE user_id = $1 ORDER BY created_at DESC, id
`
