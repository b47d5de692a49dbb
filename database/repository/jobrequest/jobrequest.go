package jobRepo

import (
	"context"
	"errors"
	"time"

	"fixly/models"
)

var (
	// ErrNotFound means no job request exists with the given id.
	ErrNotFound = errors.New("job request not found")
	// ErrAlreadyResolved means a guarded mutation matched no sent offer.
	ErrAlreadyResolved = errors.New("job request already resolved")
	// ErrDuplicateActive means the provider already holds a sent offer for
	// the booking.
	ErrDuplicateActive = errors.New("provider already holds an active offer for this booking")
)

// AcceptDetails carries the winner's response onto the accepted offer.
type AcceptDetails struct {
	QuotedPrice      *float64
	EstimatedArrival *time.Time
	Notes            string
}

// Repository defines data access for job requests. Offers are created only
// by the dispatcher and resolved only by the race resolver or the
// escalation sweep.
type Repository interface {
	Create(ctx context.Context, jr *models.JobRequest) error
	GetByID(ctx context.Context, id string) (*models.JobRequest, error)
	// GetActive returns the sent offer for (bookingID, providerID), if any.
	GetActive(ctx context.Context, bookingID, providerID string) (*models.JobRequest, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.JobRequest, error)
	// MarkAccepted resolves a sent offer as accepted; ErrAlreadyResolved when
	// it is no longer sent.
	MarkAccepted(ctx context.Context, id string, at time.Time, details AcceptDetails) error
	// MarkDeclined resolves a sent offer as declined.
	MarkDeclined(ctx context.Context, id string, at time.Time, reason string) error
	// CancelAllSent cancels every sent offer for the booking except exceptID
	// (empty cancels all). Returns the ids of the cancelled offers.
	CancelAllSent(ctx context.Context, bookingID, exceptID string, at time.Time) ([]string, error)
	// ExpireDue moves sent offers whose expiry has passed to expired and
	// returns how many changed. Running it repeatedly is a no-op once all
	// offers are resolved.
	ExpireDue(ctx context.Context, bookingID string, now time.Time) (int64, error)
	CountSent(ctx context.Context, bookingID string) (int64, error)
	// TerminalProviderIDs lists providers holding a declined, expired or
	// cancelled offer for the booking; escalation excludes them.
	TerminalProviderIDs(ctx context.Context, bookingID string) ([]string, error)
}
