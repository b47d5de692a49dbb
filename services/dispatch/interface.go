package dispatch

import (
	"context"
	"time"

	"fixly/models"
)

// Config carries the dispatch engine tuning knobs, loaded from the app
// configuration at startup.
type Config struct {
	DefaultSearchRadiusKm   float64
	MaxSearchRadiusKm       float64
	MaxProvidersPerDispatch int
	ResponseWindow          time.Duration
	MaxRetries              int
	RetryRadiusFactor       float64
	DeclineGrace            time.Duration
	ScheduledLeadTime       time.Duration
}

// DispatchService materializes job offers for matched candidates.
type DispatchService interface {
	Dispatch(ctx context.Context, booking *models.Booking, candidates []models.ProviderCandidate, window time.Duration) ([]models.JobRequest, error)
}

// ResolverService processes provider responses with single-winner
// semantics.
type ResolverService interface {
	Accept(ctx context.Context, bookingID, providerID string, response models.ProviderResponse) (*models.Booking, error)
	Decline(ctx context.Context, bookingID, providerID, reason string) error
}

// EscalationService reacts to expired response windows and exhausted
// offers.
type EscalationService interface {
	Escalate(ctx context.Context, bookingID string) error
}

// BookingService owns booking creation, search kickoff, cancellation and
// role-gated lifecycle advancement.
type BookingService interface {
	Create(ctx context.Context, customerID string, in models.CreateBookingInput) (*models.Booking, error)
	StartSearch(ctx context.Context, bookingID string) error
	Cancel(ctx context.Context, bookingID, actorID string, role models.Role, reason string) error
	AdvanceStatus(ctx context.Context, bookingID, actorID string, role models.Role, to models.BookingStatus) (*models.Booking, error)
	ProviderStatus(ctx context.Context, bookingID string) (*models.ProviderStatusResponse, error)
}
