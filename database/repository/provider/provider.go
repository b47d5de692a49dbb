package providerRepo

import (
	"context"
	"errors"
	"time"

	"fixly/models"
)

// ErrNotFound means no provider exists with the given id.
var ErrNotFound = errors.New("provider not found")

// SearchCriteria defines an eligibility search feeding the matching engine.
type SearchCriteria struct {
	Category      string
	BookingType   models.BookingType
	ScheduledAt   *time.Time
	Center        models.GeoPoint
	MaxDistanceKm float64
	ExcludeIDs    []string
	Limit         int64
}

// Repository defines read access to providers for matching and status
// queries. Provider account management lives elsewhere.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Provider, error)
	// SearchEligible returns providers matching the criteria; an empty slice
	// is a valid result, not an error.
	SearchEligible(ctx context.Context, criteria SearchCriteria) ([]models.Provider, error)
}
