package bookingRepo

import (
	"context"
	"errors"
	"time"

	"fixly/models"
)

var (
	// ErrNotFound means no booking exists with the given id.
	ErrNotFound = errors.New("booking not found")
	// ErrAssignConflict means the conditional assignment matched no document:
	// the booking is no longer in provider_search with a free slot.
	ErrAssignConflict = errors.New("booking not assignable")
	// ErrStatusConflict means a guarded status update matched no document.
	ErrStatusConflict = errors.New("booking status changed concurrently")
)

// Repository defines data access for bookings. All status mutations are
// conditional updates guarded by the expected prior state; the single-winner
// assignment guarantee rests entirely on AssignProvider's atomicity.
type Repository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// AssignProvider atomically binds a provider to the booking only if it is
	// still in provider_search with no provider assigned. Returns the updated
	// booking, or ErrAssignConflict when another provider already won.
	AssignProvider(ctx context.Context, bookingID, providerID string, at time.Time) (*models.Booking, error)
	// MarkSearching moves a pending booking into provider_search. Re-dispatch
	// during escalation leaves an already-searching booking untouched.
	MarkSearching(ctx context.Context, bookingID string, at time.Time) error
	// UpdateStatus applies a guarded transition from -> to.
	UpdateStatus(ctx context.Context, bookingID string, from, to models.BookingStatus, at time.Time) error
	// Cancel terminates the booking with a reason, guarded by the allowed
	// prior states.
	Cancel(ctx context.Context, bookingID, reason string, from []models.BookingStatus, at time.Time) error
	// IncrementRetry bumps the retry counter and returns the new value.
	IncrementRetry(ctx context.Context, bookingID string, at time.Time) (int, error)
}
