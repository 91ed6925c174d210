package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kantonirina02/ecoride-backend/booking"
	"github.com/kantonirina02/ecoride-backend/credit"
	"github.com/kantonirina02/ecoride-backend/internal/auth0"
	"github.com/kantonirina02/ecoride-backend/internal/middleware"
	"github.com/kantonirina02/ecoride-backend/internal/o11y"
	"github.com/kantonirina02/ecoride-backend/participant"
	"github.com/kantonirina02/ecoride-backend/ride"
	"github.com/kantonirina02/ecoride-backend/user"
	"github.com/kantonirina02/ecoride-backend/vehicle"
)

// Config carries the wiring the router needs beyond the domain services.
type Config struct {
	// Auth authenticates requests and makes the caller's identity available
	// to middleware.GetAuth0ID. Tests inject a header-based fake.
	Auth gin.HandlerFunc
	// Identity optionally resolves profile details for newly seen users.
	Identity auth0.Client

	MetricsUsername string
	MetricsPassword string
}

type API struct {
	r   *gin.Engine
	svc *booking.Service

	rr  *ride.Repository
	pr  *participant.Repository
	cr  *credit.Repository
	ur  *user.Repository
	vr  *vehicle.Repository
	obs *o11y.Observability

	identity auth0.Client
}

func New(
	svc *booking.Service,
	rr *ride.Repository,
	pr *participant.Repository,
	cr *credit.Repository,
	ur *user.Repository,
	vr *vehicle.Repository,
	obs *o11y.Observability,
	cfg Config,
) *API {
	a := &API{
		r:        gin.New(),
		svc:      svc,
		rr:       rr,
		pr:       pr,
		cr:       cr,
		ur:       ur,
		vr:       vr,
		obs:      obs,
		identity: cfg.Identity,
	}

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	a.r.Use(middleware.Logging(obs.Logger))
	a.r.Use(middleware.Metrics(obs.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metrics := promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{})
	if cfg.MetricsUsername != "" {
		a.r.GET("/metrics",
			gin.BasicAuth(gin.Accounts{cfg.MetricsUsername: cfg.MetricsPassword}),
			gin.WrapH(metrics))
	} else {
		a.r.GET("/metrics", gin.WrapH(metrics))
	}

	protected := a.r.Group("/")
	if cfg.Auth != nil {
		protected.Use(cfg.Auth)
	}
	{
		protected.GET("/rides", a.listRidesHandler)
		protected.GET("/rides/:rideId", a.getRideHandler)
		protected.POST("/rides", a.createRideHandler)
		protected.POST("/rides/:rideId/cancel", a.cancelRideHandler)
		protected.POST("/rides/:rideId/payout", a.releasePayoutHandler)

		protected.POST("/rides/:rideId/bookings", a.bookSeatsHandler)
		protected.POST("/rides/:rideId/bookings/cancel", a.cancelBookingHandler)
		protected.GET("/me/bookings", a.myBookingsHandler)
		protected.POST("/bookings/:bookingId/feedback", a.submitFeedbackHandler)

		protected.GET("/me/credits", a.myCreditsHandler)
		protected.GET("/me/vehicles", a.myVehiclesHandler)
		protected.POST("/users/:userId/adjustments", a.adminAdjustHandler)

		protected.GET("/moderation/issues", a.moderationIssuesHandler)
	}

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}

// currentUser resolves the authenticated caller to a user row, provisioning
// it (with the signup bonus) on first sight. Profile details are filled in
// best-effort from the identity provider.
func (a *API) currentUser(c *gin.Context) (*user.User, bool) {
	auth0ID, ok := middleware.GetAuth0ID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return nil, false
	}

	u, err := a.ur.GetByAuth0ID(c, auth0ID)
	if err == nil {
		return u, true
	}

	logger := middleware.GetLogger(c)
	u, err = a.svc.ProvisionUser(c, auth0ID)
	if err != nil {
		logger.ErrorContext(c, "failed to provision user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}

	if a.identity != nil {
		if token, ok := middleware.GetAccessToken(c); ok {
			if info, err := a.identity.GetUserInfo(c, token); err == nil {
				if err := a.ur.UpdateProfile(c, auth0ID, info.Email, info.Name); err != nil {
					logger.WarnContext(c, "failed to update user profile", "error", err)
				}
			}
		}
	}

	return u, true
}
