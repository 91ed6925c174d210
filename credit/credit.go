// Package credit holds the append-only ledger of credit movements. The sum of
// a user's deltas is the authoritative balance; users.credits_balance is a
// cache maintained in the same transaction as every append.
package credit

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies the business event a ledger entry settles.
type Source string

const (
	SourceRideCreationFee Source = "ride_creation_fee"
	SourceBookingDebit    Source = "booking_debit"
	SourceBookingRefund   Source = "booking_refund"
	SourceDriverPayout    Source = "driver_payout"
	SourceAdminAdjustment Source = "admin_adjustment"
	SourceSignupBonus     Source = "signup_bonus"
)

func (s Source) Valid() bool {
	switch s {
	case SourceRideCreationFee, SourceBookingDebit, SourceBookingRefund,
		SourceDriverPayout, SourceAdminAdjustment, SourceSignupBonus:
		return true
	}
	return false
}

// OriginatesCharge reports whether a negative delta from this source opens a
// new charge and is therefore subject to the balance non-negativity check.
// Refunds and payouts correct a prior debit and are exempt.
func (s Source) OriginatesCharge() bool {
	switch s {
	case SourceBookingRefund, SourceDriverPayout, SourceSignupBonus:
		return false
	}
	return true
}

type Entry struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	RideID    *uuid.UUID `db:"ride_id"`
	Delta     int64      `db:"delta"`
	Source    Source     `db:"source"`
	CreatedAt time.Time  `db:"created_at"`
}
