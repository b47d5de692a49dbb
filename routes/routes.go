package routes

import (
	"net/http"
	"time"

	"fixly/handlers"
	"fixly/middleware"
	"fixly/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes sets up the booking creation and lifecycle
// endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/service-bookings")
	{
		api.Use(middleware.ActorMiddleware())
		api.POST("", hb.CreateBooking)
		api.POST("/providers/match", hb.MatchProviders)
		api.POST("/:id/cancel", hb.CancelBooking)
		api.POST("/:id/status", hb.AdvanceBookingStatus)
	}
}

// RegisterJobRequestRoutes sets up the provider response endpoints.
func RegisterJobRequestRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/job-requests")
	{
		api.Use(middleware.ActorMiddleware())
		api.POST("/:id/accept", hb.AcceptJobRequest)
		api.POST("/:id/decline", hb.DeclineJobRequest)
	}
}

// RegisterOrderRoutes sets up the customer-facing order queries.
func RegisterOrderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/orders")
	{
		api.Use(middleware.ActorMiddleware())
		api.GET("/:id/provider-status", hb.OrderProviderStatus)
	}
}

// RegisterProviderRoutes sets up provider liveness endpoints.
func RegisterProviderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/providers")
	{
		api.Use(middleware.ActorMiddleware())
		api.POST("/:id/heartbeat", hb.ProviderHeartbeat)
	}
}

// RegisterHealthRoute registers a health-check endpoint serving the
// monitor's latest snapshot.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		health := utils.GetHealthStatus()
		status := http.StatusOK
		if !health.Mongo || !health.Redis {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	})
}

// RegisterRoutes centralizes registration of all endpoints and global
// middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, hb)
	RegisterJobRequestRoutes(r, hb)
	RegisterOrderRoutes(r, hb)
	RegisterProviderRoutes(r, hb)
}
