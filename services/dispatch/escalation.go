package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"

	bookingRepo "fixly/database/repository/booking"
	jobRepo "fixly/database/repository/jobrequest"
	"fixly/models"
	"fixly/services/matching"
	"fixly/services/notification"
	"fixly/utils"

	"go.uber.org/zap"
)

// noProvidersReason is recorded on bookings terminated because matching
// found nobody left to ask.
const noProvidersReason = "No providers available"

// DefaultEscalator implements EscalationService. Escalate is idempotent:
// it re-derives everything from persisted state, so the durable task layer
// may deliver it any number of times.
type DefaultEscalator struct {
	Bookings   bookingRepo.Repository
	Offers     jobRepo.Repository
	Matcher    matching.Service
	Dispatcher DispatchService
	Notifier   notification.Gateway
	Clock      utils.Clock
	Logger     *zap.Logger
	Cfg        Config
}

// Escalate sweeps expired offers, then either re-dispatches with a widened
// search radius or terminates the booking once retries are exhausted or no
// candidates remain.
func (e *DefaultEscalator) Escalate(ctx context.Context, bookingID string) error {
	now := e.Clock.Now()

	expired, err := e.Offers.ExpireDue(ctx, bookingID, now)
	if err != nil {
		return fmt.Errorf("expiry sweep failed for booking %s: %w", bookingID, err)
	}
	if expired > 0 {
		e.Logger.Info("expired stale offers",
			zap.String("booking_id", bookingID), zap.Int64("count", expired))
	}

	booking, err := e.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			e.Logger.Warn("escalation for unknown booking", zap.String("booking_id", bookingID))
			return nil
		}
		return fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}

	// Already assigned, cancelled or otherwise moved on.
	if booking.Status != models.StatusProviderSearch {
		return nil
	}

	remaining, err := e.Offers.CountSent(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to count open offers for booking %s: %w", bookingID, err)
	}
	if remaining > 0 {
		// Offers from a later dispatch round are still live.
		return nil
	}

	if booking.RetryCount >= e.Cfg.MaxRetries {
		return e.terminate(ctx, booking)
	}

	excluded, err := e.Offers.TerminalProviderIDs(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to list exhausted providers for booking %s: %w", bookingID, err)
	}

	radius := e.widenedRadius(booking.RetryCount + 1)
	candidates, err := e.Matcher.FindCandidates(ctx, matching.CandidateQuery{
		ServiceID:          booking.ServiceID,
		Location:           booking.Location,
		Urgency:            booking.Urgency,
		BookingType:        booking.BookingType,
		ScheduledAt:        booking.ScheduledAt,
		MaxDistanceKm:      radius,
		MaxProviders:       e.Cfg.MaxProvidersPerDispatch,
		ExcludeProviderIDs: excluded,
	})
	if err != nil {
		return fmt.Errorf("widened matching failed for booking %s: %w", bookingID, err)
	}
	if len(candidates) == 0 {
		// Nobody left to ask; retrying cannot help.
		return e.terminate(ctx, booking)
	}

	retry, err := e.Bookings.IncrementRetry(ctx, bookingID, now)
	if err != nil {
		return fmt.Errorf("failed to record retry for booking %s: %w", bookingID, err)
	}
	e.Logger.Info("re-dispatching with widened search",
		zap.String("booking_id", bookingID),
		zap.Int("retry", retry),
		zap.Float64("radius_km", radius),
		zap.Int("candidates", len(candidates)))

	if _, err := e.Dispatcher.Dispatch(ctx, booking, candidates, e.Cfg.ResponseWindow); err != nil {
		return fmt.Errorf("re-dispatch failed for booking %s: %w", bookingID, err)
	}
	return nil
}

// widenedRadius relaxes the search radius by the configured factor per
// retry, capped at the configured maximum.
func (e *DefaultEscalator) widenedRadius(retry int) float64 {
	radius := e.Cfg.DefaultSearchRadiusKm * math.Pow(e.Cfg.RetryRadiusFactor, float64(retry))
	if e.Cfg.MaxSearchRadiusKm > 0 && radius > e.Cfg.MaxSearchRadiusKm {
		radius = e.Cfg.MaxSearchRadiusKm
	}
	return radius
}

func (e *DefaultEscalator) terminate(ctx context.Context, booking *models.Booking) error {
	err := e.Bookings.Cancel(ctx, booking.ID, noProvidersReason,
		[]models.BookingStatus{models.StatusProviderSearch}, e.Clock.Now())
	if err != nil {
		if errors.Is(err, bookingRepo.ErrStatusConflict) {
			// A provider accepted or the customer cancelled while we decided.
			return nil
		}
		return fmt.Errorf("failed to terminate booking %s: %w", booking.ID, err)
	}

	e.Logger.Info("booking terminated, no providers available",
		zap.String("booking_id", booking.ID),
		zap.Int("retries", booking.RetryCount))

	if nerr := e.Notifier.NotifyUser(ctx, booking.CustomerID, notification.Event{
		Type:  notification.EventOrderCancelled,
		Title: "We couldn't find a provider",
		Body:  "No providers are available right now. Please try again later.",
		Data:  map[string]string{"booking_id": booking.ID, "reason": noProvidersReason},
	}); nerr != nil {
		e.Logger.Warn("termination notification failed",
			zap.String("booking_id", booking.ID), zap.Error(nerr))
	}
	return nil
}
