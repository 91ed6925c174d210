package booking

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kantonirina02/ecoride-backend/credit"
	"github.com/kantonirina02/ecoride-backend/ride"
	"github.com/kantonirina02/ecoride-backend/vehicle"
)

// VehicleSpec describes a vehicle to register inline with ride creation.
type VehicleSpec struct {
	Brand      string
	Model      string
	Plate      string
	Color      string
	Seats      int
	IsElectric bool
}

// RideSpec is the driver's ride offer. Exactly one of VehicleID and
// NewVehicle must be set.
type RideSpec struct {
	VehicleID    *uuid.UUID
	NewVehicle   *VehicleSpec
	FromCity     string
	ToCity       string
	StartAt      time.Time
	EndAt        time.Time
	Price        int64
	SeatsTotal   int
	AllowSmoker  bool
	AllowAnimals bool
	MusicStyle   string
}

func (spec RideSpec) validate(now time.Time, platformFee int64) error {
	switch {
	case strings.TrimSpace(spec.FromCity) == "" || strings.TrimSpace(spec.ToCity) == "":
		return fmt.Errorf("%w: fromCity and toCity are required", ErrInvalidRequest)
	case spec.SeatsTotal < 1:
		return fmt.Errorf("%w: seatsTotal must be at least 1", ErrInvalidRequest)
	case spec.Price <= platformFee:
		return fmt.Errorf("%w: price must exceed the platform fee of %d credits", ErrInvalidRequest, platformFee)
	case !spec.StartAt.After(now):
		return fmt.Errorf("%w: startAt must be in the future", ErrInvalidRequest)
	case !spec.EndAt.After(spec.StartAt):
		return fmt.Errorf("%w: endAt must be after startAt", ErrInvalidRequest)
	case (spec.VehicleID == nil) == (spec.NewVehicle == nil):
		return fmt.Errorf("%w: provide either vehicleId or a new vehicle", ErrInvalidRequest)
	}
	if v := spec.NewVehicle; v != nil {
		if strings.TrimSpace(v.Brand) == "" || strings.TrimSpace(v.Model) == "" || strings.TrimSpace(v.Plate) == "" {
			return fmt.Errorf("%w: vehicle brand, model and plate are required", ErrInvalidRequest)
		}
		if v.Seats < 1 {
			return fmt.Errorf("%w: vehicle must have at least 1 seat", ErrInvalidRequest)
		}
	}
	return nil
}

// CreateRide publishes a ride and debits the driver the platform fee. The
// ride insert, the fee ledger entry and the balance move commit together.
func (s *Service) CreateRide(ctx context.Context, driverID uuid.UUID, spec RideSpec) (*ride.Ride, int64, error) {
	now := s.now()
	if err := spec.validate(now, s.cfg.PlatformFee); err != nil {
		return nil, 0, err
	}

	veh, err := s.resolveVehicle(ctx, driverID, spec)
	if err != nil {
		return nil, 0, err
	}

	rd := &ride.Ride{
		ID:           uuid.New(),
		DriverID:     driverID,
		VehicleID:    veh.ID,
		FromCity:     spec.FromCity,
		ToCity:       spec.ToCity,
		StartAt:      spec.StartAt,
		EndAt:        spec.EndAt,
		Price:        spec.Price,
		SeatsTotal:   spec.SeatsTotal,
		SeatsLeft:    spec.SeatsTotal,
		AllowSmoker:  spec.AllowSmoker,
		AllowAnimals: spec.AllowAnimals,
	}
	if spec.MusicStyle != "" {
		rd.MusicStyle = &spec.MusicStyle
	}

	var balanceAfter int64
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.LockTx(ctx, tx, driverID); err != nil {
			return err
		}
		if err := s.rides.InsertTx(ctx, tx, rd); err != nil {
			return err
		}
		if err := s.credits.AppendTx(ctx, tx, &credit.Entry{
			UserID: driverID,
			RideID: &rd.ID,
			Delta:  -s.cfg.PlatformFee,
			Source: credit.SourceRideCreationFee,
		}); err != nil {
			return err
		}
		balanceAfter, err = s.credits.BalanceOfTx(ctx, tx, driverID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	if s.schedulePayout != nil {
		if err := s.schedulePayout(ctx, rd.ID, rd.EndAt); err != nil {
			// The periodic sweep releases anything that slips through.
			s.logger.WarnContext(ctx, "failed to schedule payout release",
				"ride_id", rd.ID, "error", err)
		}
	}

	return rd, balanceAfter, nil
}

func (s *Service) resolveVehicle(ctx context.Context, driverID uuid.UUID, spec RideSpec) (vehicle.Vehicle, error) {
	if spec.VehicleID != nil {
		return s.vehicles.GetForOwner(ctx, *spec.VehicleID, driverID)
	}

	v := &vehicle.Vehicle{
		OwnerID:    driverID,
		Model:      spec.NewVehicle.Model,
		Plate:      spec.NewVehicle.Plate,
		Color:      sql.NullString{String: spec.NewVehicle.Color, Valid: spec.NewVehicle.Color != ""},
		Seats:      spec.NewVehicle.Seats,
		IsElectric: spec.NewVehicle.IsElectric,
	}
	if err := s.vehicles.Create(ctx, v, spec.NewVehicle.Brand); err != nil {
		return vehicle.Vehicle{}, err
	}
	return *v, nil
}

// CancelRide cancels a whole ride: every live booking is refunded in full and
// marked cancelled, then the ride goes terminal. The driver's creation fee is
// not refunded.
func (s *Service) CancelRide(ctx context.Context, rideID, driverID uuid.UUID) error {
	now := s.now()
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		rd, err := s.rides.GetForUpdateTx(ctx, tx, rideID)
		if err != nil {
			return err
		}
		if rd.DriverID != driverID {
			return ride.ErrNotOwner
		}
		if st := rd.EffectiveStatusAt(now); st != ride.Open && st != ride.Full {
			return ride.ErrNotCancellable
		}

		// Participants come back ordered by user id, so the user locks below
		// are taken in a stable order.
		ps, err := s.participants.ActiveByRideTx(ctx, tx, rideID)
		if err != nil {
			return err
		}
		for _, p := range ps {
			if err := s.users.LockTx(ctx, tx, p.UserID); err != nil {
				return err
			}
			if err := s.credits.AppendTx(ctx, tx, &credit.Entry{
				UserID: p.UserID,
				RideID: &rideID,
				Delta:  p.CreditsUsed,
				Source: credit.SourceBookingRefund,
			}); err != nil {
				return err
			}
			if err := s.participants.CancelTx(ctx, tx, p.ID, now); err != nil {
				return err
			}
		}

		return s.rides.CancelTx(ctx, tx, rideID)
	})
}

// payoutAmount is the driver's share of the confirmed booking credits after
// the platform take. Integer division rounds the take down, in the driver's
// favour.
func payoutAmount(proceeds, takeRatePercent int64) int64 {
	return proceeds - proceeds*takeRatePercent/100
}

// ReleasePayout pays the driver for a completed ride: confirmed booking
// credits minus the take rate. The payout_released_at null-check makes a
// second call a no-op success, never a double payout. The amount is returned
// either way.
func (s *Service) ReleasePayout(ctx context.Context, rideID uuid.UUID) (int64, bool, error) {
	now := s.now()

	var (
		amount   int64
		released bool
	)
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		amount, released = 0, false

		rd, err := s.rides.GetForUpdateTx(ctx, tx, rideID)
		if err != nil {
			return err
		}
		if rd.Status == ride.Cancelled || rd.EffectiveStatusAt(now) != ride.Completed {
			return ride.ErrPayoutNotDue
		}

		proceeds, err := s.participants.ConfirmedCreditsTx(ctx, tx, rideID)
		if err != nil {
			return err
		}
		amount = payoutAmount(proceeds, s.cfg.TakeRatePercent)

		if rd.PayoutReleasedAt != nil {
			return nil
		}

		if err := s.users.LockTx(ctx, tx, rd.DriverID); err != nil {
			return err
		}
		released, err = s.rides.ReleasePayoutTx(ctx, tx, rideID, now)
		if err != nil || !released {
			return err
		}
		if amount > 0 {
			if err := s.credits.AppendTx(ctx, tx, &credit.Entry{
				UserID: rd.DriverID,
				RideID: &rideID,
				Delta:  amount,
				Source: credit.SourceDriverPayout,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	if released {
		payoutsReleasedTotal.Inc()
		s.logger.InfoContext(ctx, "payout released", "ride_id", rideID, "amount", amount)
	}
	return amount, released, nil
}
