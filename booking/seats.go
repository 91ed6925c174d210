package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kantonirina02/ecoride-backend/credit"
	"github.com/kantonirina02/ecoride-backend/participant"
	"github.com/kantonirina02/ecoride-backend/ride"
)

// BookingResult reports the state a passenger cares about after a booking
// operation commits.
type BookingResult struct {
	Participant  participant.Participant
	SeatsLeft    int
	BalanceAfter int64
}

// BookSeats books seats on a ride for a passenger. Seat decrement, credit
// debit and the participant insert are one transaction: a failure at any step
// leaves no trace of the others.
func (s *Service) BookSeats(ctx context.Context, rideID, userID uuid.UUID, seats int) (BookingResult, error) {
	if seats < 1 {
		return BookingResult{}, fmt.Errorf("%w: seats must be at least 1", ErrInvalidRequest)
	}
	now := s.now()

	var result BookingResult
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		rd, err := s.rides.GetForUpdateTx(ctx, tx, rideID)
		if err != nil {
			return err
		}
		if rd.DriverID == userID {
			return ErrSelfBooking
		}
		if rd.EffectiveStatusAt(now) != ride.Open {
			return ride.ErrSeatsUnavailable
		}

		if err := s.users.LockTx(ctx, tx, userID); err != nil {
			return err
		}
		existing, err := s.participants.ActiveByRideUserTx(ctx, tx, rideID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return participant.ErrAlreadyBooked
		}

		if err := s.rides.DecrementSeatsTx(ctx, tx, &rd, seats); err != nil {
			return err
		}

		cost := int64(seats) * rd.Price
		if err := s.credits.AppendTx(ctx, tx, &credit.Entry{
			UserID: userID,
			RideID: &rideID,
			Delta:  -cost,
			Source: credit.SourceBookingDebit,
		}); err != nil {
			return err
		}

		p := &participant.Participant{
			RideID:      rideID,
			UserID:      userID,
			SeatsBooked: seats,
			CreditsUsed: cost,
			Status:      participant.StatusConfirmed,
			RequestedAt: now,
			ConfirmedAt: sql.NullTime{Time: now, Valid: true},
		}
		if err := s.participants.InsertTx(ctx, tx, p); err != nil {
			return err
		}

		result.Participant = *p
		result.SeatsLeft = rd.SeatsLeft
		result.BalanceAfter, err = s.credits.BalanceOfTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, ride.ErrSeatsUnavailable) || errors.Is(err, credit.ErrInsufficientCredits) {
			bookingConflictsTotal.Inc()
		}
		return BookingResult{}, err
	}

	bookingsTotal.Inc()
	return result, nil
}

// CancelBooking reverses a booking: seats go back to the ride and the debit
// is compensated with a refund entry — history is appended to, never erased.
// Once the driver has been paid out the booking can no longer be cancelled.
func (s *Service) CancelBooking(ctx context.Context, rideID, userID uuid.UUID) (int64, error) {
	now := s.now()

	var balanceAfter int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		rd, err := s.rides.GetForUpdateTx(ctx, tx, rideID)
		if err != nil {
			return err
		}
		if err := s.users.LockTx(ctx, tx, userID); err != nil {
			return err
		}

		p, err := s.participants.ActiveByRideUserTx(ctx, tx, rideID, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return participant.ErrNotFound
		}
		if rd.PayoutReleasedAt != nil {
			return ErrTooLateToCancel
		}

		if err := s.rides.RestoreSeatsTx(ctx, tx, &rd, p.SeatsBooked); err != nil {
			return err
		}
		if err := s.credits.AppendTx(ctx, tx, &credit.Entry{
			UserID: userID,
			RideID: &rideID,
			Delta:  p.CreditsUsed,
			Source: credit.SourceBookingRefund,
		}); err != nil {
			return err
		}
		if err := s.participants.CancelTx(ctx, tx, p.ID, now); err != nil {
			return err
		}

		balanceAfter, err = s.credits.BalanceOfTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balanceAfter, nil
}

// SubmitFeedback records the passenger's post-ride outcome. Only the booking's
// own user, only once, only after the ride has finished. An issue outcome is a
// signal for moderation; it moves no credits and no seats.
func (s *Service) SubmitFeedback(ctx context.Context, participantID, userID uuid.UUID, status participant.FeedbackStatus, note string) error {
	if status != participant.FeedbackOK && status != participant.FeedbackIssue {
		return fmt.Errorf("%w: feedback status must be ok or issue", ErrInvalidRequest)
	}

	p, err := s.participants.GetByID(ctx, participantID)
	if err != nil {
		return err
	}
	if p.UserID != userID || p.Status != participant.StatusConfirmed {
		return participant.ErrNotFound
	}

	rd, err := s.rides.GetByID(ctx, p.RideID)
	if err != nil {
		return err
	}
	now := s.now()
	if rd.EndAt.After(now) {
		return ErrRideNotFinished
	}

	return s.participants.SubmitFeedback(ctx, participantID, status, note, now)
}
