package middleware

import (
	"net/http"

	"fixly/models"

	"github.com/gin-gonic/gin"
)

// Context keys set by ActorMiddleware and read by the handlers.
const (
	ActorIDKey   = "actorID"
	ActorRoleKey = "actorRole"
)

// ActorMiddleware extracts the caller identity propagated by the edge
// gateway. The gateway authenticates the session and forwards the subject
// in X-Actor-ID and X-Actor-Role; requests without them are rejected.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader("X-Actor-ID")
		if actorID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing actor identity"})
			return
		}
		role := models.Role(c.GetHeader("X-Actor-Role"))
		switch role {
		case models.RoleCustomer, models.RoleProvider, models.RoleAdmin:
		case "":
			role = models.RoleCustomer
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown actor role"})
			return
		}
		c.Set(ActorIDKey, actorID)
		c.Set(ActorRoleKey, role)
		c.Next()
	}
}

// Actor returns the caller identity stored by ActorMiddleware.
func Actor(c *gin.Context) (string, models.Role) {
	id, _ := c.Get(ActorIDKey)
	role, _ := c.Get(ActorRoleKey)
	actorID, _ := id.(string)
	actorRole, _ := role.(models.Role)
	return actorID, actorRole
}
