package handlers

import (
	"errors"
	"net/http"

	jobRepo "fixly/database/repository/jobrequest"
	"fixly/middleware"
	"fixly/models"
	"fixly/utils"

	"github.com/gin-gonic/gin"
)

// loadOwnOffer resolves the job request addressed by the route and checks
// it belongs to the calling provider. Responding to someone else's offer is
// a 403 regardless of the offer state.
func (hb *HandlerBundle) loadOwnOffer(c *gin.Context) (*models.JobRequest, bool) {
	actorID, role := middleware.Actor(c)
	if role != models.RoleProvider {
		utils.RespondError(c, utils.NewForbiddenError("only providers may respond to job requests"))
		return nil, false
	}

	jr, err := hb.Offers.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, jobRepo.ErrNotFound) {
			utils.RespondError(c, utils.NewNotFoundError("job request %s not found", c.Param("id")))
			return nil, false
		}
		utils.RespondError(c, err)
		return nil, false
	}
	if jr.ProviderID != actorID {
		utils.RespondError(c, utils.NewForbiddenError("job request %s is not addressed to you", jr.ID))
		return nil, false
	}
	return jr, true
}

// AcceptJobRequest processes a provider's acceptance. Exactly one accept
// per booking wins; late accepts receive a 409.
func (hb *HandlerBundle) AcceptJobRequest(c *gin.Context) {
	jr, ok := hb.loadOwnOffer(c)
	if !ok {
		return
	}

	var in models.ProviderResponse
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
	}

	booking, err := hb.Resolver.Accept(c.Request.Context(), jr.BookingID, jr.ProviderID, in)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// DeclineJobRequest records a provider's decline. Declining a resolved
// offer is a harmless no-op.
func (hb *HandlerBundle) DeclineJobRequest(c *gin.Context) {
	jr, ok := hb.loadOwnOffer(c)
	if !ok {
		return
	}

	var in models.DeclineInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
			return
		}
	}

	if err := hb.Resolver.Decline(c.Request.Context(), jr.BookingID, jr.ProviderID, in.Reason); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "declined"})
}
