// Package booking is the orchestrator over rides, participants and the credit
// ledger. Every mutating operation is one bounded transaction: it locks the
// ride row first, then any user rows, mutates seat inventory, appends ledger
// entries and commits — or rolls back leaving nothing applied.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kantonirina02/ecoride-backend/credit"
	"github.com/kantonirina02/ecoride-backend/internal/pgretry"
	"github.com/kantonirina02/ecoride-backend/participant"
	"github.com/kantonirina02/ecoride-backend/ride"
	"github.com/kantonirina02/ecoride-backend/user"
	"github.com/kantonirina02/ecoride-backend/vehicle"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrSelfBooking     = errors.New("drivers cannot book their own ride")
	ErrTooLateToCancel = errors.New("booking can no longer be cancelled")
	ErrRideNotFinished = errors.New("ride has not finished")
)

// Config carries the marketplace policy knobs.
type Config struct {
	// PlatformFee is debited from the driver at ride creation.
	PlatformFee int64
	// TakeRatePercent is withheld from the driver payout.
	TakeRatePercent int64
	// SignupBonus is granted to new users through the ledger.
	SignupBonus int64
}

// PayoutScheduler enqueues a payout release for a ride at the given time.
// Scheduling is best-effort; the periodic sweep catches anything lost.
type PayoutScheduler func(ctx context.Context, rideID uuid.UUID, at time.Time) error

type Service struct {
	db           *sqlx.DB
	rides        *ride.Repository
	participants *participant.Repository
	credits      *credit.Repository
	users        *user.Repository
	vehicles     *vehicle.Repository

	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	schedulePayout PayoutScheduler
}

type Option func(*Service)

// WithClock overrides the service clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	db *sqlx.DB,
	rides *ride.Repository,
	participants *participant.Repository,
	credits *credit.Repository,
	users *user.Repository,
	vehicles *vehicle.Repository,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		db:           db,
		rides:        rides,
		participants: participants,
		credits:      credits,
		users:        users,
		vehicles:     vehicles,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPayoutScheduler wires the job queue in after both sides exist.
func (s *Service) SetPayoutScheduler(fn PayoutScheduler) {
	s.schedulePayout = fn
}

// inTx runs fn in a transaction, retrying serialization and deadlock losers
// with backoff before surfacing pgretry.ErrConcurrencyConflict.
func (s *Service) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return pgretry.Do(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

var (
	bookingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ecoride_bookings_total",
		Help: "Confirmed seat bookings",
	})
	bookingConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ecoride_booking_conflicts_total",
		Help: "Bookings lost to seat or credit contention",
	})
	payoutsReleasedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ecoride_payouts_released_total",
		Help: "Driver payouts released",
	})
)

// RegisterMetrics registers the orchestrator's counters.
func RegisterMetrics(reg *prometheus.Registry) {
	reg.MustRegister(bookingsTotal, bookingConflictsTotal, payoutsReleasedTotal)
}
