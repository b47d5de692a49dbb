package models

import "time"

// CreateBookingInput is the request body for creating a service booking.
type CreateBookingInput struct {
	ServiceID   string     `json:"service_id" binding:"required"`
	BookingType string     `json:"booking_type" binding:"required"`
	Location    Location   `json:"location"`
	Urgency     string     `json:"urgency"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// MatchQueryInput is the request body for a standalone provider match.
type MatchQueryInput struct {
	ServiceID     string   `json:"service_id" binding:"required"`
	Location      Location `json:"location"`
	Urgency       string   `json:"urgency"`
	BookingType   string   `json:"booking_type"`
	MaxDistanceKm float64  `json:"max_distance_km"`
	MaxProviders  int      `json:"max_providers"`
}

// DeclineInput is the optional body for declining a job request.
type DeclineInput struct {
	Reason string `json:"reason,omitempty"`
}

// AdvanceStatusInput is the body for role-gated status advancement.
type AdvanceStatusInput struct {
	Status string `json:"status" binding:"required"`
}
