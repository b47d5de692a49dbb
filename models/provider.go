package models

import "time"

// GeoPoint represents a GeoJSON Point.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`               // Always "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

// NewGeoPoint builds a GeoJSON point from latitude and longitude.
func NewGeoPoint(lat, lon float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}

// Lat returns the latitude, or 0 when the point is malformed.
func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Lon returns the longitude, or 0 when the point is malformed.
func (p GeoPoint) Lon() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

// CalendarSlot is an open availability window on a provider's calendar,
// consulted when matching scheduled bookings.
type CalendarSlot struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

// Covers reports whether t falls inside the slot.
func (s CalendarSlot) Covers(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// Provider is a service professional registered on the platform. Only the
// fields the dispatch engine consults are modelled here; account management
// lives in a separate system.
type Provider struct {
	ID                string         `bson:"id" json:"id"`
	Name              string         `bson:"name" json:"name"`
	Email             string         `bson:"email,omitempty" json:"email,omitempty"`
	PhoneNumber       string         `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	ServiceCategories []string       `bson:"service_categories" json:"service_categories"`
	Status            string         `bson:"status" json:"status"` // "online" | "offline"
	Available         bool           `bson:"available" json:"available"`
	Rating            float64        `bson:"rating" json:"rating"` // 0..5
	CompletedJobs     int            `bson:"completed_jobs" json:"completed_jobs"`
	AvgResponseSec    float64        `bson:"avg_response_sec" json:"avg_response_sec"`
	LocationGeo       GeoPoint       `bson:"location_geo" json:"location_geo"`
	OpenSlots         []CalendarSlot `bson:"open_slots,omitempty" json:"open_slots,omitempty"`
	FCMToken          string         `bson:"fcm_token,omitempty" json:"-"`
	CreatedAt         time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `bson:"updated_at" json:"updated_at"`
}

// HasOpenSlotAt reports whether any calendar slot covers t.
func (p *Provider) HasOpenSlotAt(t time.Time) bool {
	for _, s := range p.OpenSlots {
		if s.Covers(t) {
			return true
		}
	}
	return false
}

// ProviderCandidate is the ephemeral result of a matching run. It is
// produced by the matching engine and consumed by the dispatcher; it is
// never persisted.
type ProviderCandidate struct {
	ProviderID             string  `json:"provider_id"`
	Name                   string  `json:"name"`
	DistanceKm             float64 `json:"distance_km"`
	EstimatedTravelTimeMin int     `json:"estimated_travel_time_min,omitempty"`
	Rating                 float64 `json:"rating"`
	Score                  float64 `json:"score"`
	IsOnline               bool    `json:"is_online"`
	IsAvailable            bool    `json:"is_available"`
}

// ProviderSummary is the public projection returned on status queries.
type ProviderSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	PhoneNumber string  `json:"phone_number,omitempty"`
	Rating      float64 `json:"rating"`
}

// Summary projects the provider's public fields.
func (p *Provider) Summary() ProviderSummary {
	return ProviderSummary{
		ID:          p.ID,
		Name:        p.Name,
		PhoneNumber: p.PhoneNumber,
		Rating:      p.Rating,
	}
}
