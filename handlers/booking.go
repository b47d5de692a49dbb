package handlers

import (
	"net/http"

	"fixly/config"
	"fixly/middleware"
	"fixly/models"
	"fixly/services/matching"
	"fixly/utils"

	"github.com/gin-gonic/gin"
)

// CreateBooking creates a service booking for the calling customer. For
// instant bookings the provider search runs before the response, so the
// returned booking already reflects the search outcome.
func (hb *HandlerBundle) CreateBooking(c *gin.Context) {
	actorID, _ := middleware.Actor(c)

	var in models.CreateBookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	booking, err := hb.Bookings.Create(c.Request.Context(), actorID, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// MatchProviders runs a standalone matching query so clients can preview
// nearby providers before committing to a booking.
func (hb *HandlerBundle) MatchProviders(c *gin.Context) {
	var in models.MatchQueryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	cfg := config.AppConfig
	radius := in.MaxDistanceKm
	if radius <= 0 {
		radius = cfg.DefaultSearchRadiusKm
	}
	if cfg.MaxSearchRadiusKm > 0 && radius > cfg.MaxSearchRadiusKm {
		radius = cfg.MaxSearchRadiusKm
	}
	limit := in.MaxProviders
	if limit <= 0 {
		limit = cfg.MaxProvidersPerDispatch
	}
	bookingType := models.BookingType(in.BookingType)
	if bookingType == "" {
		bookingType = models.BookingTypeInstant
	}

	providers, err := hb.Matcher.FindCandidates(c.Request.Context(), matching.CandidateQuery{
		ServiceID:     in.ServiceID,
		Location:      in.Location,
		Urgency:       models.Urgency(in.Urgency),
		BookingType:   bookingType,
		MaxDistanceKm: radius,
		MaxProviders:  limit,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if providers == nil {
		providers = []models.ProviderCandidate{}
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

// CancelBooking cancels a booking on behalf of the caller. Cancelling also
// withdraws every open job offer.
func (hb *HandlerBundle) CancelBooking(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	bookingID := c.Param("id")

	var in struct {
		Reason string `json:"reason,omitempty"`
	}
	_ = c.ShouldBindJSON(&in)

	if err := hb.Bookings.Cancel(c.Request.Context(), bookingID, actorID, role, in.Reason); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(models.StatusCancelled)})
}

// AdvanceBookingStatus applies a role-gated lifecycle transition.
func (hb *HandlerBundle) AdvanceBookingStatus(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	bookingID := c.Param("id")

	var in models.AdvanceStatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	booking, err := hb.Bookings.AdvanceStatus(c.Request.Context(), bookingID, actorID, role, models.BookingStatus(in.Status))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// OrderProviderStatus reports the assignment state for customer polling
// while the search runs.
func (hb *HandlerBundle) OrderProviderStatus(c *gin.Context) {
	resp, err := hb.Bookings.ProviderStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
