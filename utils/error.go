package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// RespondError maps a typed engine error to its HTTP status and writes the
// response. Unrecognized errors become a 500.
func RespondError(c *gin.Context, err error) {
	var (
		validationErr  *ValidationError
		notFoundErr    *NotFoundError
		conflictErr    *ConflictError
		forbiddenErr   *ForbiddenError
		noProvidersErr *NoProvidersAvailableError
	)
	switch {
	case errors.As(err, &validationErr):
		JSONError(c, http.StatusBadRequest, validationErr.Message, "")
	case errors.As(err, &notFoundErr):
		JSONError(c, http.StatusNotFound, notFoundErr.Message, "")
	case errors.As(err, &forbiddenErr):
		JSONError(c, http.StatusForbidden, forbiddenErr.Message, "")
	case errors.As(err, &conflictErr):
		// Expected race-loss outcome: tell the client to refresh, not retry blindly.
		JSONError(c, http.StatusConflict, conflictErr.Message, "Someone else got it. Refresh to see the latest state.")
	case errors.As(err, &noProvidersErr):
		JSONError(c, http.StatusUnprocessableEntity, noProvidersErr.Message, "")
	default:
		GetLogger().Error("request failed", zap.Error(err))
		JSONError(c, http.StatusInternalServerError, "Internal Server Error", "")
	}
}
