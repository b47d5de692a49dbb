package models

import "time"

// JobRequestStatus is the lifecycle state of a single provider offer.
type JobRequestStatus string

const (
	JobRequestSent      JobRequestStatus = "sent"
	JobRequestAccepted  JobRequestStatus = "accepted"
	JobRequestDeclined  JobRequestStatus = "declined"
	JobRequestExpired   JobRequestStatus = "expired"
	JobRequestCancelled JobRequestStatus = "cancelled"
)

// Terminal reports whether the offer can no longer be acted on.
func (s JobRequestStatus) Terminal() bool {
	return s != JobRequestSent
}

// JobRequest is one candidate offer for one booking. At most one job
// request per booking ever reaches the accepted state.
type JobRequest struct {
	ID                    string           `bson:"id" json:"id"`
	BookingID             string           `bson:"booking_id" json:"booking_id"`
	ProviderID            string           `bson:"provider_id" json:"provider_id"`
	Status                JobRequestStatus `bson:"status" json:"status"`
	SentAt                time.Time        `bson:"sent_at" json:"sent_at"`
	ExpiresAt             time.Time        `bson:"expires_at" json:"expires_at"`
	RespondedAt           *time.Time       `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
	QuotedPrice           *float64         `bson:"quoted_price,omitempty" json:"quoted_price,omitempty"`
	EstimatedArrival      *time.Time       `bson:"estimated_arrival,omitempty" json:"estimated_arrival,omitempty"`
	Notes                 string           `bson:"notes,omitempty" json:"notes,omitempty"`
	DeclineReason         string           `bson:"decline_reason,omitempty" json:"decline_reason,omitempty"`
	DistanceKm            float64          `bson:"distance_km" json:"distance_km"`
	EstimatedTravelTimeMin int             `bson:"estimated_travel_time_min" json:"estimated_travel_time_min"`
}

// ProviderResponse carries the optional fields a provider supplies when
// accepting a job request.
type ProviderResponse struct {
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
	QuotedPrice      *float64   `json:"quoted_price,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}
