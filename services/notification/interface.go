package notification

import "context"

// Real-time event types emitted by the dispatch engine. The transport
// (push, WebSocket rooms) is owned by the gateway implementation.
const (
	EventAssignmentStarted = "order.assignment_started"
	EventProviderAssigned  = "order.provider_assigned"
	EventOrderCancelled    = "order.cancelled"
	EventJobOffer          = "job.offer"
	EventJobAccepted       = "job.accepted"
	EventJobDeclined       = "job.declined"
	EventJobOfferCancelled = "job.offer_cancelled"
)

// Event is one real-time message for a customer or provider channel.
type Event struct {
	Type  string            `json:"type"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Gateway delivers events to users and providers. Delivery failure is a
// degraded side effect: callers log it and never abort the owning state
// transition because of it.
type Gateway interface {
	NotifyUser(ctx context.Context, userID string, event Event) error
	NotifyProvider(ctx context.Context, providerID string, event Event) error
}
