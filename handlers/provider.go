package handlers

import (
	"net/http"

	"fixly/middleware"
	"fixly/models"
	"fixly/utils"

	"github.com/gin-gonic/gin"
)

// ProviderHeartbeat refreshes the provider's liveness key. The provider
// app calls this on an interval while it is foregrounded; instant matching
// drops providers whose key has lapsed.
func (hb *HandlerBundle) ProviderHeartbeat(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	providerID := c.Param("id")

	if role != models.RoleProvider || actorID != providerID {
		utils.RespondError(c, utils.NewForbiddenError("heartbeat must come from the provider itself"))
		return
	}

	if err := hb.Presence.Heartbeat(c.Request.Context(), providerID); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "online"})
}
