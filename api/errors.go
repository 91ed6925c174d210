package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kantonirina02/ecoride-backend/booking"
	"github.com/kantonirina02/ecoride-backend/credit"
	"github.com/kantonirina02/ecoride-backend/internal/middleware"
	"github.com/kantonirina02/ecoride-backend/internal/pgretry"
	"github.com/kantonirina02/ecoride-backend/participant"
	"github.com/kantonirina02/ecoride-backend/ride"
	"github.com/kantonirina02/ecoride-backend/user"
	"github.com/kantonirina02/ecoride-backend/vehicle"
)

type domainError struct {
	err    error
	status int
	code   string
}

// Domain-rule violations surface as 4xx with no side effects; lock contention
// that outlived its retry budget is a 503 the client may retry.
var domainErrors = []domainError{
	{booking.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{ride.ErrNotFound, http.StatusNotFound, "RIDE_NOT_FOUND"},
	{participant.ErrNotFound, http.StatusNotFound, "BOOKING_NOT_FOUND"},
	{vehicle.ErrNotFound, http.StatusNotFound, "VEHICLE_NOT_FOUND"},
	{user.ErrNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ride.ErrNotOwner, http.StatusForbidden, "NOT_RIDE_OWNER"},
	{vehicle.ErrNotOwner, http.StatusForbidden, "NOT_VEHICLE_OWNER"},
	{ride.ErrSeatsUnavailable, http.StatusConflict, "SEATS_UNAVAILABLE"},
	{credit.ErrInsufficientCredits, http.StatusConflict, "INSUFFICIENT_CREDITS"},
	{participant.ErrAlreadyBooked, http.StatusConflict, "ALREADY_BOOKED"},
	{booking.ErrSelfBooking, http.StatusConflict, "SELF_BOOKING"},
	{booking.ErrTooLateToCancel, http.StatusConflict, "TOO_LATE_TO_CANCEL"},
	{booking.ErrRideNotFinished, http.StatusConflict, "RIDE_NOT_FINISHED"},
	{participant.ErrFeedbackClosed, http.StatusConflict, "FEEDBACK_CLOSED"},
	{ride.ErrNotCancellable, http.StatusConflict, "RIDE_NOT_CANCELLABLE"},
	{ride.ErrPayoutNotDue, http.StatusConflict, "PAYOUT_NOT_DUE"},
	{pgretry.ErrConcurrencyConflict, http.StatusServiceUnavailable, "CONCURRENCY_CONFLICT"},
}

// writeError renders err. Unmatched errors are internal: logged and masked.
func writeError(c *gin.Context, err error) {
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			c.JSON(de.status, gin.H{"code": de.code, "message": err.Error()})
			return
		}
	}

	middleware.GetLogger(c).ErrorContext(c, "request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
