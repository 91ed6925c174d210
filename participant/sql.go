package participant

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound       = errors.New("no active booking")
	ErrAlreadyBooked  = errors.New("user already has an active booking on this ride")
	ErrFeedbackClosed = errors.New("feedback already submitted")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Participant, error) {
	var p Participant
	err := r.db.GetContext(ctx, &p, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Participant{}, ErrNotFound
	}
	return p, err
}

const getByIDQuery = `SELECT * FROM ride_participants WHERE id = $1`

// ActiveByRideUserTx fetches the live booking for a (ride, user) pair under
// its row lock. At most one such row exists.
func (r *Repository) ActiveByRideUserTx(ctx context.Context, tx *sqlx.Tx, rideID, userID uuid.UUID) (*Participant, error) {
	var p Participant
	err := tx.GetContext(ctx, &p, activeByRideUserQuery, rideID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const activeByRideUserQuery = `
SELECT * FROM ride_participants
WHERE ride_id = $1 AND user_id = $2 AND status <> 'cancelled'
FOR UPDATE
`

// ActiveByRideTx locks and returns every live booking on a ride, ordered by
// user id so concurrent ride-wide operations take user locks in one order.
func (r *Repository) ActiveByRideTx(ctx context.Context, tx *sqlx.Tx, rideID uuid.UUID) ([]Participant, error) {
	var ps []Participant
	err := tx.SelectContext(ctx, &ps, activeByRideQuery, rideID)
	return ps, err
}

const activeByRideQuery = `
SELECT * FROM ride_participants
WHERE ride_id = $1 AND status <> 'cancelled'
ORDER BY user_id
FOR UPDATE
`

// InsertTx writes a confirmed booking. The partial unique index backs up the
// in-transaction existence check: a racing insert surfaces as ErrAlreadyBooked.
func (r *Repository) InsertTx(ctx context.Context, tx *sqlx.Tx, p *Participant) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := tx.GetContext(ctx, p, insertQuery,
		p.ID, p.RideID, p.UserID, p.SeatsBooked, p.CreditsUsed,
		p.Status, p.RequestedAt, p.ConfirmedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyBooked
	}
	return err
}

const insertQuery = `
INSERT INTO ride_participants (id, ride_id, user_id, seats_booked, credits_used,
                               status, requested_at, confirmed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING *
`

// CancelTx marks a booking cancelled. Terminal; a later re-booking creates a
// fresh row.
func (r *Repository) CancelTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, now time.Time) error {
	_, err := tx.ExecContext(ctx, cancelQuery, now, id)
	return err
}

const cancelQuery = `
UPDATE ride_participants SET status = 'cancelled', cancelled_at = $1 WHERE id = $2
`

// ConfirmedCreditsTx sums the credits of confirmed bookings on a ride, the
// base of the driver's payout.
func (r *Repository) ConfirmedCreditsTx(ctx context.Context, tx *sqlx.Tx, rideID uuid.UUID) (int64, error) {
	var sum int64
	err := tx.GetContext(ctx, &sum, confirmedCreditsQuery, rideID)
	return sum, err
}

const confirmedCreditsQuery = `
SELECT COALESCE(SUM(credits_used), 0) FROM ride_participants
WHERE ride_id = $1 AND status = 'confirmed'
`

// SubmitFeedback sets the feedback sub-state. The pending guard in the WHERE
// clause makes a second submission fail instead of overwriting the first.
func (r *Repository) SubmitFeedback(ctx context.Context, id uuid.UUID, status FeedbackStatus, note string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, submitFeedbackQuery,
		status, now, sql.NullString{String: note, Valid: note != ""}, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFeedbackClosed
	}
	return nil
}

const submitFeedbackQuery = `
UPDATE ride_participants
SET feedback_status = $1, feedback_at = $2, feedback_note = $3
WHERE id = $4 AND feedback_status = 'pending'
`

// ListForUser returns a user's bookings, upcoming first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Participant, error) {
	var ps []Participant
	err := r.db.SelectContext(ctx, &ps, listForUserQuery, userID)
	return ps, err
}

const listForUserQuery = `
SELECT p.* FROM ride_participants p
JOIN rides r ON p.ride_id = r.id
WHERE p.user_id = $1
ORDER BY r.start_at DESC
`

// IssueReports returns issue feedback joined with ride and identity context
// for the moderation collaborator.
func (r *Repository) IssueReports(ctx context.Context) ([]IssueReport, error) {
	var reports []IssueReport
	err := r.db.SelectContext(ctx, &reports, issueReportsQuery)
	return reports, err
}

const issueReportsQuery = `
SELECT p.id            AS participant_id,
       p.ride_id       AS ride_id,
       r.from_city     AS from_city,
       r.to_city       AS to_city,
       r.start_at      AS start_at,
       r.driver_id     AS driver_id,
       d.email         AS driver_email,
       p.user_id       AS passenger_id,
       u.email         AS passenger_email,
       p.feedback_at   AS feedback_at,
       p.feedback_note AS feedback_note
FROM ride_participants p
JOIN rides r ON p.ride_id = r.id
JOIN users d ON r.driver_id = d.id
JOIN users u ON p.user_id = u.id
WHERE p.feedback_status = 'issue'
ORDER BY p.feedback_at DESC
`
