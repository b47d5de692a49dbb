package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogGateway writes events to the application log instead of delivering
// them. Used in development when no Firebase credentials are configured.
type LogGateway struct {
	Logger *zap.Logger
}

func (g *LogGateway) NotifyUser(_ context.Context, userID string, event Event) error {
	g.Logger.Info("notify user",
		zap.String("user_id", userID),
		zap.String("event", event.Type),
		zap.String("body", event.Body))
	return nil
}

func (g *LogGateway) NotifyProvider(_ context.Context, providerID string, event Event) error {
	g.Logger.Info("notify provider",
		zap.String("provider_id", providerID),
		zap.String("event", event.Type),
		zap.String("body", event.Body))
	return nil
}
