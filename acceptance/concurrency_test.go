package acceptance

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
)

// Eight passengers race for three seats. Exactly three bookings may win and
// every loser must leave no trace: no seat drift, no stray debits.
func TestBookSeats_ConcurrentNoOverbooking(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)

	const passengers = 8
	const seats = 3
	for i := 0; i < passengers; i++ {
		ts.CreateUser(t, fmt.Sprintf("racer-%d", i), 50)
	}
	rideID := ts.CreateRide(t, "driver-1", 10, seats)

	codes := make([]int, passengers)
	var wg sync.WaitGroup
	for i := 0; i < passengers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := ts.POST("/rides/"+rideID.String()+"/bookings",
				map[string]int{"seats": 1}, asUser(fmt.Sprintf("racer-%d", i)))
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	var won, lost int
	for i, code := range codes {
		switch code {
		case http.StatusCreated:
			won++
		case http.StatusConflict:
			lost++
		default:
			t.Errorf("racer %d got unexpected status %d", i, code)
		}
	}
	if won != seats {
		t.Errorf("expected exactly %d winning bookings, got %d", seats, won)
	}
	if lost != passengers-seats {
		t.Errorf("expected %d losing bookings, got %d", passengers-seats, lost)
	}

	if got := ts.SeatsLeft(t, rideID); got != 0 {
		t.Errorf("expected 0 seats left, got %d", got)
	}

	var booked int
	if err := ts.DB.Get(&booked, `
		SELECT COALESCE(SUM(seats_booked), 0) FROM ride_participants
		WHERE ride_id = $1 AND status = 'confirmed'`, rideID); err != nil {
		t.Fatalf("failed to sum booked seats: %v", err)
	}
	if booked != seats {
		t.Errorf("expected %d seats booked in total, got %d", seats, booked)
	}

	ts.assertLedgerInvariant(t)
}

// Two drivers cancelling and a passenger booking at once must serialize on the
// ride row; whatever interleaving wins, balances stay consistent.
func TestCancelRide_RacesWithBooking(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	passenger := ts.CreateUser(t, "passenger-1", 50)
	rideID := ts.CreateRide(t, "driver-1", 10, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 1}, asUser("passenger-1"))
	}()
	go func() {
		defer wg.Done()
		ts.POST("/rides/"+rideID.String()+"/cancel", nil, asUser("driver-1"))
	}()
	wg.Wait()

	// Either order ends with the ride cancelled; if the booking won the race
	// the cancellation refunded it.
	var status string
	if err := ts.DB.Get(&status, `SELECT status FROM rides WHERE id = $1`, rideID); err != nil {
		t.Fatalf("failed to read ride status: %v", err)
	}
	if status != "cancelled" {
		t.Errorf("expected ride cancelled, got %s", status)
	}

	var active int
	if err := ts.DB.Get(&active, `
		SELECT count(*) FROM ride_participants
		WHERE ride_id = $1 AND status <> 'cancelled'`, rideID); err != nil {
		t.Fatalf("failed to count active participants: %v", err)
	}
	if active != 0 {
		t.Errorf("expected no active participants on a cancelled ride, got %d", active)
	}
	if got := ts.Balance(t, passenger.ID); got != 50 {
		t.Errorf("expected passenger made whole, balance %d", got)
	}
	ts.assertLedgerInvariant(t)
}
