package models

import "time"

// BookingType distinguishes immediate dispatch from future-slot bookings.
type BookingType string

const (
	BookingTypeInstant   BookingType = "instant"
	BookingTypeScheduled BookingType = "scheduled"
)

// Urgency influences candidate scoring and customer-facing messaging.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// AssignmentMethod records how a provider ended up on a booking.
type AssignmentMethod string

const (
	AssignmentAuto   AssignmentMethod = "auto"
	AssignmentManual AssignmentMethod = "manual"
)

// Location is the service address with coordinates used for matching.
type Location struct {
	Lat     float64 `bson:"lat" json:"lat"`
	Lon     float64 `bson:"lon" json:"lon"`
	Address string  `bson:"address,omitempty" json:"address,omitempty"`
}

// Booking represents one service request from a customer.
type Booking struct {
	ID                 string           `bson:"id" json:"id"`
	CustomerID         string           `bson:"customer_id" json:"customer_id"`
	ServiceID          string           `bson:"service_id" json:"service_id"`
	BookingType        BookingType      `bson:"booking_type" json:"booking_type"`
	Status             BookingStatus    `bson:"status" json:"status"`
	Location           Location         `bson:"location" json:"location"`
	Urgency            Urgency          `bson:"urgency" json:"urgency"`
	ScheduledAt        *time.Time       `bson:"scheduled_at,omitempty" json:"scheduled_at,omitempty"`
	AssignedProviderID string           `bson:"assigned_provider_id,omitempty" json:"assigned_provider_id,omitempty"`
	AssignedAt         *time.Time       `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	AssignmentMethod   AssignmentMethod `bson:"assignment_method,omitempty" json:"assignment_method,omitempty"`
	RetryCount         int              `bson:"retry_count" json:"retry_count"`
	CancelReason       string           `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	TotalAmount        float64          `bson:"total_amount" json:"total_amount"`
	CreatedAt          time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `bson:"updated_at" json:"updated_at"`
}

// Assigned reports whether a provider is currently bound to this booking.
func (b *Booking) Assigned() bool {
	return b.AssignedProviderID != ""
}
