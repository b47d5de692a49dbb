package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "fixly/database/repository/booking"
	jobRepo "fixly/database/repository/jobrequest"
	"fixly/models"
	"fixly/services/notification"
	"fixly/services/tasks"
	"fixly/utils"

	"go.uber.org/zap"
)

// assignAttempts bounds the retry loop around the conditional update when
// the store reports a transient failure.
const assignAttempts = 3

// DefaultResolver implements ResolverService. Single-winner correctness
// rests entirely on the storage layer's conditional update; the resolver
// holds no locks across any call.
type DefaultResolver struct {
	Bookings  bookingRepo.Repository
	Offers    jobRepo.Repository
	Notifier  notification.Gateway
	Scheduler tasks.Scheduler
	Clock     utils.Clock
	Logger    *zap.Logger
	Grace     time.Duration
}

// Accept processes a provider's acceptance. Exactly one concurrent accept
// per booking succeeds; the rest receive a ConflictError, which is an
// expected outcome for the losers, not a failure.
func (r *DefaultResolver) Accept(ctx context.Context, bookingID, providerID string, response models.ProviderResponse) (*models.Booking, error) {
	jr, err := r.Offers.GetActive(ctx, bookingID, providerID)
	if err != nil {
		if errors.Is(err, jobRepo.ErrNotFound) {
			// The offer was cancelled, expired or already answered.
			return nil, utils.NewConflictError("Booking no longer available")
		}
		return nil, fmt.Errorf("failed to load offer for booking %s: %w", bookingID, err)
	}

	now := r.Clock.Now()
	if !jr.ExpiresAt.After(now) {
		return nil, utils.NewConflictError("Offer has expired")
	}

	booking, err := r.assignWithRetry(ctx, bookingID, providerID, now)
	if err != nil {
		return nil, err
	}

	details := jobRepo.AcceptDetails{
		QuotedPrice:      response.QuotedPrice,
		EstimatedArrival: response.EstimatedArrival,
		Notes:            response.Notes,
	}
	if err := r.Offers.MarkAccepted(ctx, jr.ID, now, details); err != nil {
		if !errors.Is(err, jobRepo.ErrAlreadyResolved) {
			return nil, fmt.Errorf("failed to mark offer %s accepted: %w", jr.ID, err)
		}
	}

	losers, err := r.Offers.CancelAllSent(ctx, bookingID, jr.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel competing offers for booking %s: %w", bookingID, err)
	}

	r.notifyAssigned(ctx, booking, providerID, losers)
	return booking, nil
}

// assignWithRetry runs the compare-and-swap with bounded retries on
// transient storage errors. A conflict after a retried attempt is
// re-checked against the booking: if our provider is the one recorded, the
// earlier attempt committed and this is a win, not a loss.
func (r *DefaultResolver) assignWithRetry(ctx context.Context, bookingID, providerID string, now time.Time) (*models.Booking, error) {
	var lastErr error
	for attempt := 1; attempt <= assignAttempts; attempt++ {
		booking, err := r.Bookings.AssignProvider(ctx, bookingID, providerID, now)
		if err == nil {
			return booking, nil
		}
		if errors.Is(err, bookingRepo.ErrAssignConflict) {
			if current, gerr := r.Bookings.GetByID(ctx, bookingID); gerr == nil &&
				current.AssignedProviderID == providerID {
				return current, nil
			}
			r.Logger.Info("accept lost assignment race",
				zap.String("booking_id", bookingID),
				zap.String("provider_id", providerID))
			return nil, utils.NewConflictError("Booking no longer available")
		}
		lastErr = err
		r.Logger.Warn("conditional assignment failed, retrying",
			zap.String("booking_id", bookingID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("assignment failed for booking %s after %d attempts: %w", bookingID, assignAttempts, lastErr)
}

// Decline marks the offer declined. Declining an already-resolved offer is
// a no-op. When the last live offer resolves negatively, an escalation
// check is scheduled after a short grace delay so late accepts can settle.
func (r *DefaultResolver) Decline(ctx context.Context, bookingID, providerID, reason string) error {
	jr, err := r.Offers.GetActive(ctx, bookingID, providerID)
	if err != nil {
		if errors.Is(err, jobRepo.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load offer for booking %s: %w", bookingID, err)
	}

	now := r.Clock.Now()
	if err := r.Offers.MarkDeclined(ctx, jr.ID, now, reason); err != nil {
		if errors.Is(err, jobRepo.ErrAlreadyResolved) {
			return nil
		}
		return fmt.Errorf("failed to decline offer %s: %w", jr.ID, err)
	}

	if err := r.Notifier.NotifyUser(ctx, bookingCustomer(ctx, r.Bookings, bookingID), notification.Event{
		Type: notification.EventJobDeclined,
		Data: map[string]string{"booking_id": bookingID, "provider_id": providerID},
	}); err != nil {
		r.Logger.Warn("decline notification failed",
			zap.String("booking_id", bookingID), zap.Error(err))
	}

	remaining, err := r.Offers.CountSent(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to count open offers for booking %s: %w", bookingID, err)
	}
	if remaining == 0 {
		if err := r.Scheduler.ScheduleEscalation(ctx, bookingID, now.Add(r.Grace)); err != nil {
			return fmt.Errorf("failed to schedule escalation for booking %s: %w", bookingID, err)
		}
	}
	return nil
}

func (r *DefaultResolver) notifyAssigned(ctx context.Context, booking *models.Booking, winnerID string, loserOfferIDs []string) {
	if err := r.Notifier.NotifyUser(ctx, booking.CustomerID, notification.Event{
		Type:  notification.EventProviderAssigned,
		Title: "Provider assigned",
		Body:  "A provider accepted your request and is getting ready.",
		Data: map[string]string{
			"booking_id":  booking.ID,
			"provider_id": winnerID,
		},
	}); err != nil {
		r.Logger.Warn("assignment notification failed",
			zap.String("booking_id", booking.ID), zap.Error(err))
	}

	for _, offerID := range loserOfferIDs {
		jr, err := r.Offers.GetByID(ctx, offerID)
		if err != nil {
			r.Logger.Warn("failed to load cancelled offer for notification",
				zap.String("job_request_id", offerID), zap.Error(err))
			continue
		}
		if err := r.Notifier.NotifyProvider(ctx, jr.ProviderID, notification.Event{
			Type:  notification.EventJobOfferCancelled,
			Title: "Job no longer available",
			Body:  "Another provider accepted this job.",
			Data:  map[string]string{"booking_id": booking.ID, "job_request_id": offerID},
		}); err != nil {
			r.Logger.Warn("offer cancelled notification failed",
				zap.String("provider_id", jr.ProviderID), zap.Error(err))
		}
	}
}

// bookingCustomer resolves the customer id for notification purposes;
// failures degrade to an empty recipient, which the gateway rejects as a
// logged dependency error.
func bookingCustomer(ctx context.Context, repo bookingRepo.Repository, bookingID string) string {
	b, err := repo.GetByID(ctx, bookingID)
	if err != nil {
		return ""
	}
	return b.CustomerID
}
