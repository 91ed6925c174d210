// Package payout releases driver proceeds in the background. A release job is
// scheduled at the ride's end time when the ride is created; a periodic sweep
// catches rides whose scheduled job was lost. Both paths go through the
// orchestrator's idempotent ReleasePayout, so overlap cannot double-pay.
package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/kantonirina02/ecoride-backend/ride"
)

type ReleaseArgs struct {
	RideID uuid.UUID `json:"ride_id"`
}

func (ReleaseArgs) Kind() string { return "payout_release" }

func (ReleaseArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{UniqueOpts: river.UniqueOpts{ByArgs: true}}
}

type SweepArgs struct{}

func (SweepArgs) Kind() string { return "payout_sweep" }

// Releaser is the slice of the orchestrator the workers need.
type Releaser interface {
	ReleasePayout(ctx context.Context, rideID uuid.UUID) (int64, bool, error)
}

// DueLister finds rides overdue for payout.
type DueLister interface {
	DueForPayout(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type ReleaseWorker struct {
	river.WorkerDefaults[ReleaseArgs]
	svc    Releaser
	logger *slog.Logger
}

func NewReleaseWorker(svc Releaser, logger *slog.Logger) *ReleaseWorker {
	return &ReleaseWorker{svc: svc, logger: logger}
}

func (w *ReleaseWorker) Work(ctx context.Context, job *river.Job[ReleaseArgs]) error {
	return release(ctx, w.svc, w.logger, job.Args.RideID)
}

func release(ctx context.Context, svc Releaser, logger *slog.Logger, rideID uuid.UUID) error {
	amount, released, err := svc.ReleasePayout(ctx, rideID)
	switch {
	case errors.Is(err, ride.ErrPayoutNotDue), errors.Is(err, ride.ErrNotFound):
		// Cancelled or deleted since scheduling; nothing to pay.
		return nil
	case err != nil:
		return err
	}
	if released {
		logger.InfoContext(ctx, "scheduled payout released", "ride_id", rideID, "amount", amount)
	}
	return nil
}

const sweepBatchSize = 100

type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]
	svc    Releaser
	rides  DueLister
	logger *slog.Logger
}

func NewSweepWorker(svc Releaser, rides DueLister, logger *slog.Logger) *SweepWorker {
	return &SweepWorker{svc: svc, rides: rides, logger: logger}
}

func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepArgs]) error {
	ids, err := w.rides.DueForPayout(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		return err
	}

	var failed int
	for _, id := range ids {
		if err := release(ctx, w.svc, w.logger, id); err != nil {
			failed++
			w.logger.ErrorContext(ctx, "payout sweep: release failed", "ride_id", id, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("payout sweep: %d of %d releases failed", failed, len(ids))
	}
	return nil
}
