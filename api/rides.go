package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kantonirina02/ecoride-backend/booking"
	"github.com/kantonirina02/ecoride-backend/internal/middleware"
	"github.com/kantonirina02/ecoride-backend/ride"
)

type rideResponse struct {
	ID           uuid.UUID   `json:"id"`
	DriverID     uuid.UUID   `json:"driverId"`
	VehicleID    uuid.UUID   `json:"vehicleId"`
	FromCity     string      `json:"fromCity"`
	ToCity       string      `json:"toCity"`
	StartAt      time.Time   `json:"startAt"`
	EndAt        time.Time   `json:"endAt"`
	Price        int64       `json:"price"`
	SeatsTotal   int         `json:"seatsTotal"`
	SeatsLeft    int         `json:"seatsLeft"`
	Status       ride.Status `json:"status"`
	AllowSmoker  bool        `json:"allowSmoker"`
	AllowAnimals bool        `json:"allowAnimals"`
	MusicStyle   *string     `json:"musicStyle,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func toRideResponse(rd ride.Ride, now time.Time) rideResponse {
	return rideResponse{
		ID:           rd.ID,
		DriverID:     rd.DriverID,
		VehicleID:    rd.VehicleID,
		FromCity:     rd.FromCity,
		ToCity:       rd.ToCity,
		StartAt:      rd.StartAt,
		EndAt:        rd.EndAt,
		Price:        rd.Price,
		SeatsTotal:   rd.SeatsTotal,
		SeatsLeft:    rd.SeatsLeft,
		Status:       rd.EffectiveStatusAt(now),
		AllowSmoker:  rd.AllowSmoker,
		AllowAnimals: rd.AllowAnimals,
		MusicStyle:   rd.MusicStyle,
		CreatedAt:    rd.CreatedAt,
	}
}

func (a *API) listRidesHandler(c *gin.Context) {
	rides, err := a.rr.ListOpen(c, c.Query("from"), c.Query("to"), time.Now())
	if err != nil {
		writeError(c, err)
		return
	}

	now := time.Now()
	responses := make([]rideResponse, 0, len(rides))
	for _, rd := range rides {
		responses = append(responses, toRideResponse(rd, now))
	}
	c.JSON(http.StatusOK, responses)
}

func (a *API) getRideHandler(c *gin.Context) {
	rideID, err := uuid.Parse(c.Param("rideId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid rideId"})
		return
	}

	rd, err := a.rr.GetByID(c, rideID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRideResponse(rd, time.Now()))
}

type newVehicleRequest struct {
	Brand      string `json:"brand" binding:"required"`
	Model      string `json:"model" binding:"required"`
	Plate      string `json:"plate" binding:"required"`
	Color      string `json:"color"`
	Seats      int    `json:"seats" binding:"required"`
	IsElectric bool   `json:"isElectric"`
}

type createRideRequest struct {
	VehicleID    *uuid.UUID         `json:"vehicleId"`
	NewVehicle   *newVehicleRequest `json:"newVehicle"`
	FromCity     string             `json:"fromCity" binding:"required"`
	ToCity       string             `json:"toCity" binding:"required"`
	StartAt      time.Time          `json:"startAt" binding:"required"`
	EndAt        time.Time          `json:"endAt" binding:"required"`
	Price        int64              `json:"price" binding:"required"`
	SeatsTotal   int                `json:"seatsTotal" binding:"required"`
	AllowSmoker  bool               `json:"allowSmoker"`
	AllowAnimals bool               `json:"allowAnimals"`
	MusicStyle   string             `json:"musicStyle"`
}

type createRideResponse struct {
	Ride         rideResponse `json:"ride"`
	BalanceAfter int64        `json:"balanceAfter"`
}

func (a *API) createRideHandler(c *gin.Context) {
	u, ok := a.currentUser(c)
	if !ok {
		return
	}

	var req createRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	spec := booking.RideSpec{
		VehicleID:    req.VehicleID,
		FromCity:     req.FromCity,
		ToCity:       req.ToCity,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		Price:        req.Price,
		SeatsTotal:   req.SeatsTotal,
		AllowSmoker:  req.AllowSmoker,
		AllowAnimals: req.AllowAnimals,
		MusicStyle:   req.MusicStyle,
	}
	if req.NewVehicle != nil {
		spec.NewVehicle = &booking.VehicleSpec{
			Brand:      req.NewVehicle.Brand,
			Model:      req.NewVehicle.Model,
			Plate:      req.NewVehicle.Plate,
			Color:      req.NewVehicle.Color,
			Seats:      req.NewVehicle.Seats,
			IsElectric: req.NewVehicle.IsElectric,
		}
	}

	rd, balanceAfter, err := a.svc.CreateRide(c, u.ID, spec)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.GetLogger(c).InfoContext(c, "ride created", "ride_id", rd.ID, "driver_id", u.ID)
	c.JSON(http.StatusCreated, createRideResponse{
		Ride:         toRideResponse(*rd, time.Now()),
		BalanceAfter: balanceAfter,
	})
}

func (a *API) cancelRideHandler(c *gin.Context) {
	u, ok := a.currentUser(c)
	if !ok {
		return
	}

	rideID, err := uuid.Parse(c.Param("rideId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid rideId"})
		return
	}

	if err := a.svc.CancelRide(c, rideID, u.ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) releasePayoutHandler(c *gin.Context) {
	if _, ok := a.currentUser(c); !ok {
		return
	}

	rideID, err := uuid.Parse(c.Param("rideId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid rideId"})
		return
	}

	amount, _, err := a.svc.ReleasePayout(c, rideID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "amount": amount})
}
