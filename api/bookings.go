package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kantonirina02/ecoride-backend/internal/middleware"
	"github.com/kantonirina02/ecoride-backend/participant"
)

type bookingResponse struct {
	ID             uuid.UUID                  `json:"id"`
	RideID         uuid.UUID                  `json:"rideId"`
	UserID         uuid.UUID                  `json:"userId"`
	SeatsBooked    int                        `json:"seatsBooked"`
	CreditsUsed    int64                      `json:"creditsUsed"`
	Status         participant.Status         `json:"status"`
	RequestedAt    time.Time                  `json:"requestedAt"`
	ConfirmedAt    *time.Time                 `json:"confirmedAt,omitempty"`
	CancelledAt    *time.Time                 `json:"cancelledAt,omitempty"`
	FeedbackStatus participant.FeedbackStatus `json:"feedbackStatus"`
}

func toBookingResponse(p participant.Participant) bookingResponse {
	resp := bookingResponse{
		ID:             p.ID,
		RideID:         p.RideID,
		UserID:         p.UserID,
		SeatsBooked:    p.SeatsBooked,
		CreditsUsed:    p.CreditsUsed,
		Status:         p.Status,
		RequestedAt:    p.RequestedAt,
		FeedbackStatus: p.FeedbackStatus,
	}
	if p.ConfirmedAt.Valid {
		t := p.ConfirmedAt.Time
		resp.ConfirmedAt = &t
	}
	if p.CancelledAt.Valid {
		t := p.CancelledAt.Time
		resp.CancelledAt = &t
	}
	return resp
}

type bookSeatsRequest struct {
	Seats int `json:"seats" binding:"required"`
}

type bookSeatsResponse struct {
	OK           bool            `json:"ok"`
	RideID       uuid.UUID       `json:"rideId"`
	SeatsLeft    int             `json:"seatsLeft"`
	BalanceAfter int64           `json:"balanceAfter"`
	Booking      bookingResponse `json:"booking"`
}

func (a *API) bookSeatsHandler(c *gin.Context) {
	u, ok := a.currentUser(c)
	if !ok {
		return
	}

	rideID, err := uuid.Parse(c.Param("rideId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid rideId"})
		return
	}

	var req bookSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	result, err := a.svc.BookSeats(c, rideID, u.ID, req.Seats)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.GetLogger(c).InfoContext(c, "seats booked",
		"ride_id", rideID, "user_id", u.ID, "seats", req.Seats)
	c.JSON(http.StatusCreated, bookSeatsResponse{
		OK:           true,
		RideID:       rideID,
		SeatsLeft:    result.SeatsLeft,
		BalanceAfter: result.BalanceAfter,
		Booking:      toBookingResponse(result.Participant),
	})
}

type cancelBookingResponse struct {
	OK           bool      `json:"ok"`
	RideID       uuid.UUID `json:"rideId"`
	BalanceAfter int64     `json:"balanceAfter"`
}

func (a *API) cancelBookingHandler(c *gin.Context) {
	u, ok := a.currentUser(c)
	if !ok {
		return
	}

	rideID, err := uuid.Parse(c.Param("rideId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid rideId"})
		return
	}

	balanceAfter, err := a.svc.CancelBooking(c, rideID, u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cancelBookingResponse{OK: true, RideID: rideID, BalanceAfter: balanceAfter})
}

func (a *API) myBookingsHandler(c *gin.Context) {
	u, ok := a.currentUser(c)
	if !ok {
		return
	}

	bookings, err := a.pr.ListForUser(c, u.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	responses := make([]bookingResponse, 0, len(bookings))
	for _, p := range bookings {
		responses = append(responses, toBookingResponse(p))
	}
	c.JSON(http.StatusOK, responses)
}

type feedbackRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

func (a *API) submitFeedbackHandler(c *gin.Context) {
	u, ok := a.currentUser(c)
	if !ok {
		return
	}

	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid bookingId"})
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	err = a.svc.SubmitFeedback(c, bookingID, u.ID, participant.FeedbackStatus(req.Status), req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
