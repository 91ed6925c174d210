// Package participant tracks a passenger's booking on a ride: seats held,
// credits frozen at booking time, and the post-ride feedback sub-state.
package participant

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusRequested Status = "requested"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type FeedbackStatus string

const (
	FeedbackPending FeedbackStatus = "pending"
	FeedbackOK      FeedbackStatus = "ok"
	FeedbackIssue   FeedbackStatus = "issue"
)

func (s FeedbackStatus) Valid() bool {
	switch s {
	case FeedbackPending, FeedbackOK, FeedbackIssue:
		return true
	}
	return false
}

type Participant struct {
	ID             uuid.UUID      `db:"id"`
	RideID         uuid.UUID      `db:"ride_id"`
	UserID         uuid.UUID      `db:"user_id"`
	SeatsBooked    int            `db:"seats_booked"`
	CreditsUsed    int64          `db:"credits_used"`
	Status         Status         `db:"status"`
	RequestedAt    time.Time      `db:"requested_at"`
	ConfirmedAt    sql.NullTime   `db:"confirmed_at"`
	CancelledAt    sql.NullTime   `db:"cancelled_at"`
	FeedbackStatus FeedbackStatus `db:"feedback_status"`
	FeedbackAt     sql.NullTime   `db:"feedback_at"`
	FeedbackNote   sql.NullString `db:"feedback_note"`
}

// Active reports whether the row counts against the one-live-booking rule.
func (p Participant) Active() bool {
	return p.Status != StatusCancelled
}

// IssueReport is the moderation read surface: an issue feedback joined with
// ride and identity context. Read-only; moderation never mutates the core.
type IssueReport struct {
	ParticipantID  uuid.UUID      `db:"participant_id"`
	RideID         uuid.UUID      `db:"ride_id"`
	FromCity       string         `db:"from_city"`
	ToCity         string         `db:"to_city"`
	StartAt        time.Time      `db:"start_at"`
	DriverID       uuid.UUID      `db:"driver_id"`
	DriverEmail    sql.NullString `db:"driver_email"`
	PassengerID    uuid.UUID      `db:"passenger_id"`
	PassengerEmail sql.NullString `db:"passenger_email"`
	FeedbackAt     sql.NullTime   `db:"feedback_at"`
	FeedbackNote   sql.NullString `db:"feedback_note"`
}
