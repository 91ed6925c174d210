package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kantonirina02/ecoride-backend/credit"
	"github.com/kantonirina02/ecoride-backend/vehicle"
)

type ledgerEntryResponse struct {
	ID        uuid.UUID     `json:"id"`
	RideID    *uuid.UUID    `json:"rideId,omitempty"`
	Delta     int64         `json:"delta"`
	Source    credit.Source `json:"source"`
	CreatedAt time.Time     `json:"createdAt"`
}

type creditsResponse struct {
	Balance int64                 `json:"balance"`
	Entries []ledgerEntryResponse `json:"entries"`
}

func (a *API) myCreditsHandler(c *gin.Context) {
	u, ok := a.currentUser(c)
	if !ok {
		return
	}

	entries, err := a.cr.EntriesForUser(c, u.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	balance, err := a.cr.BalanceOf(c, u.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := creditsResponse{Balance: balance, Entries: make([]ledgerEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, ledgerEntryResponse{
			ID:        e.ID,
			RideID:    e.RideID,
			Delta:     e.Delta,
			Source:    e.Source,
			CreatedAt: e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

type vehicleResponse struct {
	ID         uuid.UUID `json:"id"`
	Brand      string    `json:"brand"`
	Model      string    `json:"model"`
	Plate      string    `json:"plate"`
	Color      string    `json:"color,omitempty"`
	Seats      int       `json:"seats"`
	IsElectric bool      `json:"isElectric"`
}

func toVehicleResponse(v vehicle.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:         v.ID,
		Brand:      v.BrandName,
		Model:      v.Model,
		Plate:      v.Plate,
		Color:      v.Color.String,
		Seats:      v.Seats,
		IsElectric: v.IsElectric,
	}
}

func (a *API) myVehiclesHandler(c *gin.Context) {
	u, ok := a.currentUser(c)
	if !ok {
		return
	}

	vehicles, err := a.vr.ListForOwner(c, u.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	responses := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		responses = append(responses, toVehicleResponse(v))
	}
	c.JSON(http.StatusOK, responses)
}

type adminAdjustRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

func (a *API) adminAdjustHandler(c *gin.Context) {
	if _, ok := a.currentUser(c); !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid userId"})
		return
	}

	var req adminAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	balanceAfter, err := a.svc.AdminAdjust(c, userID, req.Delta)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "balanceAfter": balanceAfter})
}
