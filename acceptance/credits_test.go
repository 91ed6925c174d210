package acceptance

import (
	"net/http"
	"testing"

	"github.com/kantonirina02/ecoride-backend/booking"
)

// Test GET /me/credits

func TestMyCredits_BalanceEqualsLedger(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	ts.CreateUser(t, "passenger-1", 50)
	rideID := ts.CreateRide(t, "driver-1", 10, 3)

	w := ts.POST("/rides/"+rideID.String()+"/bookings", map[string]int{"seats": 2}, asUser("passenger-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to book: %s", w.Body.String())
	}

	w = ts.GET("/me/credits", asUser("passenger-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp struct {
		Balance int64 `json:"balance"`
		Entries []struct {
			Delta  int64  `json:"delta"`
			Source string `json:"source"`
		} `json:"entries"`
	}
	decodeJSON(t, w, &resp)

	if resp.Balance != 30 {
		t.Errorf("expected balance 30, got %d", resp.Balance)
	}
	// admin_adjustment grant + booking_debit
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(resp.Entries))
	}
	var sum int64
	for _, e := range resp.Entries {
		sum += e.Delta
	}
	if sum != resp.Balance {
		t.Errorf("ledger sum %d does not match balance %d", sum, resp.Balance)
	}
}

// Test POST /users/:userId/adjustments

func TestAdminAdjust_GrantsCredits(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	target := ts.CreateUser(t, "target-1", 0)
	ts.CreateUser(t, "admin-1", 0)

	w := ts.POST("/users/"+target.ID.String()+"/adjustments", map[string]int64{"delta": 15}, asUser("admin-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp struct {
		BalanceAfter int64 `json:"balanceAfter"`
	}
	decodeJSON(t, w, &resp)
	if resp.BalanceAfter != 15 {
		t.Errorf("expected balance 15, got %d", resp.BalanceAfter)
	}
	ts.assertLedgerInvariant(t)
}

func TestAdminAdjust_CannotDriveBalanceNegative(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	target := ts.CreateUser(t, "target-1", 10)
	ts.CreateUser(t, "admin-1", 0)

	w := ts.POST("/users/"+target.ID.String()+"/adjustments", map[string]int64{"delta": -25}, asUser("admin-1"))

	assertErrorCode(t, w, http.StatusConflict, "INSUFFICIENT_CREDITS")

	if got := ts.Balance(t, target.ID); got != 10 {
		t.Errorf("expected balance 10, got %d", got)
	}
}

// Signup bonus

func TestProvisionUser_GrantsSignupBonus(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.SignupBonus = 20
	ts := NewTestServerConfig(t, cfg)
	defer ts.Close()

	// First authenticated request provisions the user with the bonus.
	w := ts.GET("/me/credits", asUser("fresh-user"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp struct {
		Balance int64 `json:"balance"`
		Entries []struct {
			Source string `json:"source"`
		} `json:"entries"`
	}
	decodeJSON(t, w, &resp)
	if resp.Balance != 20 {
		t.Errorf("expected signup bonus balance 20, got %d", resp.Balance)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Source != "signup_bonus" {
		t.Errorf("expected a single signup_bonus entry, got %+v", resp.Entries)
	}
	ts.assertLedgerInvariant(t)
}

func TestProvisionUser_BonusGrantedOnce(t *testing.T) {
	cfg := booking.Config{PlatformFee: 2, TakeRatePercent: 10, SignupBonus: 20}
	ts := NewTestServerConfig(t, cfg)
	defer ts.Close()

	for i := 0; i < 3; i++ {
		w := ts.GET("/me/credits", asUser("fresh-user"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d failed: %s", i, w.Body.String())
		}
	}

	var resp struct {
		Balance int64 `json:"balance"`
	}
	w := ts.GET("/me/credits", asUser("fresh-user"))
	decodeJSON(t, w, &resp)
	if resp.Balance != 20 {
		t.Errorf("expected bonus granted exactly once, balance %d", resp.Balance)
	}
}

// Test GET /me/vehicles

func TestMyVehicles_ListsRegisteredVehicles(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateUser(t, "driver-1", 100)
	ts.CreateRide(t, "driver-1", 10, 3) // registers a vehicle inline

	w := ts.GET("/me/vehicles", asUser("driver-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var vehicles []struct {
		Brand string `json:"brand"`
		Model string `json:"model"`
	}
	decodeJSON(t, w, &vehicles)
	if len(vehicles) != 1 {
		t.Fatalf("expected 1 vehicle, got %d", len(vehicles))
	}
	if vehicles[0].Brand != "Renault" || vehicles[0].Model != "Zoe" {
		t.Errorf("unexpected vehicle: %+v", vehicles[0])
	}
}
