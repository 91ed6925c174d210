package acceptance

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

// Test POST /rides/:rideId/bookings

func TestBookSeats_DebitsCreditsAndSeats(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	passenger := ts.CreateUser(t, "passenger-1", 50)
	rideID := ts.CreateRide(t, "driver-1", 25, 4)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var resp struct {
		SeatsLeft    int   `json:"seatsLeft"`
		BalanceAfter int64 `json:"balanceAfter"`
		Booking      struct {
			Status      string `json:"status"`
			SeatsBooked int    `json:"seatsBooked"`
			CreditsUsed int64  `json:"creditsUsed"`
		} `json:"booking"`
	}
	decodeJSON(t, w, &resp)

	if resp.SeatsLeft != 3 {
		t.Errorf("expected 3 seats left, got %d", resp.SeatsLeft)
	}
	if resp.BalanceAfter != 25 {
		t.Errorf("expected balance 25, got %d", resp.BalanceAfter)
	}
	if resp.Booking.Status != "confirmed" {
		t.Errorf("expected booking status confirmed, got %s", resp.Booking.Status)
	}
	if resp.Booking.CreditsUsed != 25 {
		t.Errorf("expected 25 credits used, got %d", resp.Booking.CreditsUsed)
	}
	if got := ts.Balance(t, passenger.ID); got != 25 {
		t.Errorf("expected persisted balance 25, got %d", got)
	}
	ts.assertLedgerInvariant(t)
}

func TestBookSeats_SelfBooking(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	rideID := ts.CreateRide(t, "driver-1", 10, 3)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("driver-1"))

	assertErrorCode(t, w, http.StatusConflict, "SELF_BOOKING")
}

func TestBookSeats_AlreadyBooked(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	ts.CreateUser(t, "passenger-1", 50)
	rideID := ts.CreateRide(t, "driver-1", 10, 3)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to book: %s", w.Body.String())
	}

	w = ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))

	assertErrorCode(t, w, http.StatusConflict, "ALREADY_BOOKED")
}

func TestBookSeats_InsufficientCredits_NoPartialEffects(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	passenger := ts.CreateUser(t, "passenger-1", 5)
	rideID := ts.CreateRide(t, "driver-1", 10, 3)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))

	assertErrorCode(t, w, http.StatusConflict, "INSUFFICIENT_CREDITS")

	// Rolled back as a unit: seats untouched, no participant row, balance intact.
	if got := ts.SeatsLeft(t, rideID); got != 3 {
		t.Errorf("expected 3 seats left, got %d", got)
	}
	var count int
	if err := ts.DB.Get(&count, `SELECT count(*) FROM ride_participants WHERE ride_id = $1`, rideID); err != nil {
		t.Fatalf("failed to count participants: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no participant rows, got %d", count)
	}
	if got := ts.Balance(t, passenger.ID); got != 5 {
		t.Errorf("expected balance 5, got %d", got)
	}
}

func TestBookSeats_MoreThanAvailable(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	ts.CreateUser(t, "passenger-1", 100)
	rideID := ts.CreateRide(t, "driver-1", 10, 2)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 3}, asUser("passenger-1"))

	assertErrorCode(t, w, http.StatusConflict, "SEATS_UNAVAILABLE")
}

func TestBookSeats_FullRide(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	ts.CreateUser(t, "passenger-1", 50)
	ts.CreateUser(t, "passenger-2", 50)
	rideID := ts.CreateRide(t, "driver-1", 10, 1)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to book last seat: %s", w.Body.String())
	}

	w = ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-2"))

	assertErrorCode(t, w, http.StatusConflict, "SEATS_UNAVAILABLE")
}

func TestBookSeats_RideNotFound(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "passenger-1", 50)

	w := ts.POST("/rides/"+uuid.New().String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))

	assertErrorCode(t, w, http.StatusNotFound, "RIDE_NOT_FOUND")
}

func TestBookSeats_Returns401WithoutAuth(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	w := ts.POST("/rides/"+uuid.New().String()+"/bookings", map[string]int{"seats": 1}, nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

// Test POST /rides/:rideId/bookings/cancel

func TestCancelBooking_RefundsAndRestoresSeats(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	passenger := ts.CreateUser(t, "passenger-1", 50)
	rideID := ts.CreateRide(t, "driver-1", 10, 1)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to book: %s", w.Body.String())
	}

	w = ts.POST("/rides/"+rideID.String()+"/bookings/cancel", nil, asUser("passenger-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp struct {
		BalanceAfter int64 `json:"balanceAfter"`
	}
	decodeJSON(t, w, &resp)
	if resp.BalanceAfter != 50 {
		t.Errorf("expected balance 50 after refund, got %d", resp.BalanceAfter)
	}
	if got := ts.SeatsLeft(t, rideID); got != 1 {
		t.Errorf("expected seat restored, got %d left", got)
	}
	if got := ts.Balance(t, passenger.ID); got != 50 {
		t.Errorf("expected persisted balance 50, got %d", got)
	}

	// The freed seat reopens the ride for someone else.
	ts.CreateUser(t, "passenger-2", 50)
	w = ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-2"))
	if w.Code != http.StatusCreated {
		t.Errorf("expected freed seat to be bookable, got %d: %s", w.Code, w.Body.String())
	}
	ts.assertLedgerInvariant(t)
}

func TestCancelBooking_AfterPayout(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	ts.CreateUser(t, "passenger-1", 50)
	rideID := ts.CreateRide(t, "driver-1", 10, 3)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to book: %s", w.Body.String())
	}

	ts.FinishRide(t, rideID)
	w = ts.POST("/rides/"+rideID.String()+"/payout", nil, asUser("driver-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("failed to release payout: %s", w.Body.String())
	}

	w = ts.POST("/rides/"+rideID.String()+"/bookings/cancel", nil, asUser("passenger-1"))

	assertErrorCode(t, w, http.StatusConflict, "TOO_LATE_TO_CANCEL")
}

func TestCancelBooking_NoActiveBooking(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	ts.CreateUser(t, "passenger-1", 50)
	rideID := ts.CreateRide(t, "driver-1", 10, 3)

	w := ts.POST("/rides/"+rideID.String()+"/bookings/cancel", nil, asUser("passenger-1"))

	assertErrorCode(t, w, http.StatusNotFound, "BOOKING_NOT_FOUND")
}

func TestBookSeats_RebookAfterCancel(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	passenger := ts.CreateUser(t, "passenger-1", 50)
	rideID := ts.CreateRide(t, "driver-1", 10, 3)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to book: %s", w.Body.String())
	}
	w = ts.POST("/rides/"+rideID.String()+"/bookings/cancel", nil, asUser("passenger-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("failed to cancel: %s", w.Body.String())
	}

	// Cancellation is terminal for the row, not the pair: a fresh booking works.
	w = ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 2}, asUser("passenger-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected rebooking to succeed, got %d: %s", w.Code, w.Body.String())
	}

	var count int
	if err := ts.DB.Get(&count, `SELECT count(*) FROM ride_participants WHERE user_id = $1`, passenger.ID); err != nil {
		t.Fatalf("failed to count participants: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 participant rows (cancelled + confirmed), got %d", count)
	}
	ts.assertLedgerInvariant(t)
}

// Test GET /me/bookings

func TestMyBookings_ListsOwnBookings(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	ts.CreateUser(t, "passenger-1", 50)
	ts.CreateUser(t, "passenger-2", 50)
	rideID := ts.CreateRide(t, "driver-1", 10, 3)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to book: %s", w.Body.String())
	}
	w = ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-2"))
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to book: %s", w.Body.String())
	}

	w = ts.GET("/me/bookings", asUser("passenger-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var bookings []struct {
		RideID uuid.UUID `json:"rideId"`
		Status string    `json:"status"`
	}
	decodeJSON(t, w, &bookings)
	if len(bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(bookings))
	}
	if bookings[0].RideID != rideID {
		t.Errorf("expected booking on ride %s, got %s", rideID, bookings[0].RideID)
	}
}
