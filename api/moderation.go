package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type issueReportResponse struct {
	BookingID      uuid.UUID  `json:"bookingId"`
	RideID         uuid.UUID  `json:"rideId"`
	FromCity       string     `json:"fromCity"`
	ToCity         string     `json:"toCity"`
	StartAt        time.Time  `json:"startAt"`
	DriverID       uuid.UUID  `json:"driverId"`
	DriverEmail    string     `json:"driverEmail,omitempty"`
	PassengerID    uuid.UUID  `json:"passengerId"`
	PassengerEmail string     `json:"passengerEmail,omitempty"`
	ReportedAt     *time.Time `json:"reportedAt,omitempty"`
	Note           string     `json:"note,omitempty"`
}

// moderationIssuesHandler is the reporting surface for the moderation
// collaborator: issue feedback joined with ride and identity context.
func (a *API) moderationIssuesHandler(c *gin.Context) {
	if _, ok := a.currentUser(c); !ok {
		return
	}

	reports, err := a.pr.IssueReports(c)
	if err != nil {
		writeError(c, err)
		return
	}

	responses := make([]issueReportResponse, 0, len(reports))
	for _, r := range reports {
		resp := issueReportResponse{
			BookingID:      r.ParticipantID,
			RideID:         r.RideID,
			FromCity:       r.FromCity,
			ToCity:         r.ToCity,
			StartAt:        r.StartAt,
			DriverID:       r.DriverID,
			DriverEmail:    r.DriverEmail.String,
			PassengerID:    r.PassengerID,
			PassengerEmail: r.PassengerEmail.String,
			Note:           r.FeedbackNote.String,
		}
		if r.FeedbackAt.Valid {
			t := r.FeedbackAt.Time
			resp.ReportedAt = &t
		}
		responses = append(responses, resp)
	}
	c.JSON(http.StatusOK, responses)
}
