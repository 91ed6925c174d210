package ride

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound         = errors.New("ride not found")
	ErrSeatsUnavailable = errors.New("seats unavailable")
	ErrNotOwner         = errors.New("ride does not belong to driver")
	ErrNotCancellable   = errors.New("ride can no longer be cancelled")
	ErrPayoutNotDue     = errors.New("ride payout is not due")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Ride, error) {
	var rd Ride
	err := r.db.GetContext(ctx, &rd, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Ride{}, ErrNotFound
	}
	return rd, err
}

const getByIDQuery = `SELECT * FROM rides WHERE id = $1`

// GetForUpdateTx loads the ride under its row lock. Every seat or status
// mutation starts here; the ride lock is always taken before any user lock.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (Ride, error) {
	var rd Ride
	err := tx.GetContext(ctx, &rd, getForUpdateQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Ride{}, ErrNotFound
	}
	return rd, err
}

const getForUpdateQuery = `SELECT * FROM rides WHERE id = $1 FOR UPDATE`

func (r *Repository) InsertTx(ctx context.Context, tx *sqlx.Tx, rd *Ride) error {
	return tx.GetContext(ctx, rd, insertQuery,
		rd.ID, rd.DriverID, rd.VehicleID, rd.FromCity, rd.ToCity,
		rd.StartAt, rd.EndAt, rd.Price, rd.SeatsTotal, rd.SeatsLeft,
		rd.AllowSmoker, rd.AllowAnimals, rd.MusicStyle)
}

const insertQuery = `
INSERT INTO rides (id, driver_id, vehicle_id, from_city, to_city, start_at, end_at,
                   price, seats_total, seats_left, allow_smoker, allow_animals, music_style)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING *
`

// DecrementSeatsTx takes n seats off a locked, open ride. Reaching zero flips
// the ride to full. The caller must hold the ride's row lock via
// GetForUpdateTx; rd is updated in place.
func (r *Repository) DecrementSeatsTx(ctx context.Context, tx *sqlx.Tx, rd *Ride, n int) error {
	if rd.Status != Open || rd.SeatsLeft < n {
		return ErrSeatsUnavailable
	}

	rd.SeatsLeft -= n
	if rd.SeatsLeft == 0 {
		rd.Status = Full
	}
	return r.updateSeatsTx(ctx, tx, rd)
}

// RestoreSeatsTx returns n seats to a locked, non-cancelled ride, capped at
// seats_total. A full ride reopens.
func (r *Repository) RestoreSeatsTx(ctx context.Context, tx *sqlx.Tx, rd *Ride, n int) error {
	if rd.Status == Cancelled {
		return ErrSeatsUnavailable
	}

	rd.SeatsLeft += n
	if rd.SeatsLeft > rd.SeatsTotal {
		rd.SeatsLeft = rd.SeatsTotal
	}
	if rd.Status == Full && rd.SeatsLeft > 0 {
		rd.Status = Open
	}
	return r.updateSeatsTx(ctx, tx, rd)
}

func (r *Repository) updateSeatsTx(ctx context.Context, tx *sqlx.Tx, rd *Ride) error {
	return tx.GetContext(ctx, &rd.UpdatedAt, updateSeatsQuery, rd.SeatsLeft, rd.Status, rd.ID)
}

const updateSeatsQuery = `
UPDATE rides SET seats_left = $1, status = $2, updated_at = now()
WHERE id = $3
RETURNING updated_at
`

// CancelTx marks a locked ride cancelled. Terminal.
func (r *Repository) CancelTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, cancelQuery, id)
	return err
}

const cancelQuery = `
UPDATE rides SET status = 'cancelled', updated_at = now() WHERE id = $1
`

// ReleasePayoutTx stamps payout_released_at and persists the completed status.
// The IS NULL guard makes a raced or retried release a no-op: it reports
// released=false and the caller appends no payout entry.
func (r *Repository) ReleasePayoutTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, releasePayoutQuery, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const releasePayoutQuery = `
UPDATE rides SET status = 'completed', payout_released_at = $1, updated_at = now()
WHERE id = $2 AND payout_released_at IS NULL
`

// ListOpen returns upcoming open rides, optionally filtered by route.
func (r *Repository) ListOpen(ctx context.Context, fromCity, toCity string, now time.Time) ([]Ride, error) {
	var rides []Ride
	err := r.db.SelectContext(ctx, &rides, listOpenQuery, now,
		sql.NullString{String: fromCity, Valid: fromCity != ""},
		sql.NullString{String: toCity, Valid: toCity != ""})
	return rides, err
}

const listOpenQuery = `
SELECT * FROM rides
WHERE status = 'open'
  AND start_at > $1
  AND ($2::text IS NULL OR from_city = $2)
  AND ($3::text IS NULL OR to_city = $3)
ORDER BY start_at ASC
`

// ListForDriver returns a driver's rides, newest first.
func (r *Repository) ListForDriver(ctx context.Context, driverID uuid.UUID) ([]Ride, error) {
	var rides []Ride
	err := r.db.SelectContext(ctx, &rides, listForDriverQuery, driverID)
	return rides, err
}

const listForDriverQuery = `SELECT * FROM rides WHERE driver_id = $1 ORDER BY start_at DESC`

// DueForPayout lists rides whose end has passed with payout still unreleased.
// The payout sweep uses it to catch rides whose scheduled release was lost.
func (r *Repository) DueForPayout(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, dueForPayoutQuery, now, limit)
	return ids, err
}

const dueForPayoutQuery = `
SELECT id FROM rides
WHERE payout_released_at IS NULL
  AND status <> 'cancelled'
  AND end_at <= $1
ORDER BY end_at ASC
LIMIT $2
`
