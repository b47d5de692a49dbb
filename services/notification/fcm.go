package notification

import (
	"context"
	"fmt"

	providerRepo "fixly/database/repository/provider"
	userRepo "fixly/database/repository/user"
	"fixly/utils"

	"firebase.google.com/go/v4/messaging"
)

// FCMGateway is the production Gateway: it looks up the recipient's FCM
// token and sends a push through Firebase Cloud Messaging.
type FCMGateway struct {
	Users     userRepo.Repository
	Providers providerRepo.Repository
}

func NewFCMGateway(users userRepo.Repository, providers providerRepo.Repository) (*FCMGateway, error) {
	if users == nil || providers == nil {
		return nil, fmt.Errorf("notification gateway initialization error: user or provider repository is nil")
	}
	return &FCMGateway{Users: users, Providers: providers}, nil
}

func (g *FCMGateway) NotifyUser(ctx context.Context, userID string, event Event) error {
	u, err := g.Users.GetByID(ctx, userID)
	if err != nil {
		return utils.NewDependencyError("notification", fmt.Errorf("could not find user %s: %w", userID, err))
	}
	if u.FCMToken == "" {
		return utils.NewDependencyError("notification", fmt.Errorf("user %s has no FCM token", userID))
	}
	return g.send(ctx, u.FCMToken, "user", event, nil)
}

func (g *FCMGateway) NotifyProvider(ctx context.Context, providerID string, event Event) error {
	p, err := g.Providers.GetByID(ctx, providerID)
	if err != nil {
		return utils.NewDependencyError("notification", fmt.Errorf("could not find provider %s: %w", providerID, err))
	}
	if p.FCMToken == "" {
		return utils.NewDependencyError("notification", fmt.Errorf("provider %s has no FCM token", providerID))
	}

	// Job offers are time-critical: raise delivery priority so the provider
	// app wakes up inside the response window.
	android := &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			ChannelID: "high_priority",
			Sound:     "default",
		},
	}
	return g.send(ctx, p.FCMToken, "provider", event, android)
}

func (g *FCMGateway) send(ctx context.Context, token, role string, event Event, android *messaging.AndroidConfig) error {
	data := map[string]string{"type": event.Type, "role": role}
	for k, v := range event.Data {
		data[k] = v
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: event.Title,
			Body:  event.Body,
		},
		Data:    data,
		Android: android,
	}
	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return utils.NewDependencyError("notification", fmt.Errorf("failed to send FCM message: %w", err))
	}
	return nil
}
