// Package ride owns the ride row: its seat inventory, its status machine and
// the payout release flag. Seat counters are only ever mutated under the
// ride's row lock.
package ride

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Status int

const (
	Open Status = iota
	Full
	Cancelled
	Completed
)

func (s Status) String() string {
	return [...]string{"open", "full", "cancelled", "completed"}[s]
}

// Terminal reports whether no transition leaves this status.
func (s Status) Terminal() bool {
	return s == Cancelled || s == Completed
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) Scan(i any) error {
	v, ok := i.(string)
	if !ok {
		return fmt.Errorf("ride status: cannot scan %T", i)
	}
	switch v {
	case "open":
		*s = Open
	case "full":
		*s = Full
	case "cancelled":
		*s = Cancelled
	case "completed":
		*s = Completed
	default:
		return fmt.Errorf("ride status: unknown value %q", v)
	}
	return nil
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

type Ride struct {
	ID               uuid.UUID  `db:"id"`
	DriverID         uuid.UUID  `db:"driver_id"`
	VehicleID        uuid.UUID  `db:"vehicle_id"`
	FromCity         string     `db:"from_city"`
	ToCity           string     `db:"to_city"`
	StartAt          time.Time  `db:"start_at"`
	EndAt            time.Time  `db:"end_at"`
	Price            int64      `db:"price"`
	SeatsTotal       int        `db:"seats_total"`
	SeatsLeft        int        `db:"seats_left"`
	Status           Status     `db:"status"`
	AllowSmoker      bool       `db:"allow_smoker"`
	AllowAnimals     bool       `db:"allow_animals"`
	MusicStyle       *string    `db:"music_style"`
	PayoutReleasedAt *time.Time `db:"payout_released_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// EffectiveStatusAt derives the status at a given time: a ride whose end has
// passed without a cancellation reads as completed even before the payout
// sweep persists the transition.
func (r Ride) EffectiveStatusAt(now time.Time) Status {
	if r.Status.Terminal() {
		return r.Status
	}
	if r.EndAt.Before(now) {
		return Completed
	}
	return r.Status
}

// PayoutDue reports whether the ride is eligible for payout release at now.
func (r Ride) PayoutDue(now time.Time) bool {
	return r.EffectiveStatusAt(now) == Completed && r.PayoutReleasedAt == nil
}
