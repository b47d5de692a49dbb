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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDispatcher implements DispatchService.
type DefaultDispatcher struct {
	Bookings  bookingRepo.Repository
	Offers    jobRepo.Repository
	Notifier  notification.Gateway
	Scheduler tasks.Scheduler
	Clock     utils.Clock
	Logger    *zap.Logger
}

// Dispatch creates one sent job request per candidate, moves the booking
// into provider_search, notifies each provider and schedules the durable
// expiry check. Notification failures are logged and never invalidate the
// offers; a scheduling failure is fatal because the timeout guarantee
// depends on it.
func (d *DefaultDispatcher) Dispatch(ctx context.Context, booking *models.Booking, candidates []models.ProviderCandidate, window time.Duration) ([]models.JobRequest, error) {
	now := d.Clock.Now()

	if err := d.Bookings.MarkSearching(ctx, booking.ID, now); err != nil {
		if errors.Is(err, bookingRepo.ErrStatusConflict) {
			// Booking was assigned or cancelled between matching and dispatch.
			d.Logger.Info("dispatch skipped, booking no longer searchable",
				zap.String("booking_id", booking.ID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to move booking %s into search: %w", booking.ID, err)
	}

	expiresAt := now.Add(window)
	var created []models.JobRequest
	for _, c := range candidates {
		jr := &models.JobRequest{
			ID:                     uuid.New().String(),
			BookingID:              booking.ID,
			ProviderID:             c.ProviderID,
			Status:                 models.JobRequestSent,
			SentAt:                 now,
			ExpiresAt:              expiresAt,
			DistanceKm:             c.DistanceKm,
			EstimatedTravelTimeMin: c.EstimatedTravelTimeMin,
		}
		if err := d.Offers.Create(ctx, jr); err != nil {
			if errors.Is(err, jobRepo.ErrDuplicateActive) {
				// The provider already holds a live offer for this booking.
				continue
			}
			return created, fmt.Errorf("failed to create job request for provider %s: %w", c.ProviderID, err)
		}
		created = append(created, *jr)

		if err := d.Notifier.NotifyProvider(ctx, c.ProviderID, offerEvent(booking, jr)); err != nil {
			d.Logger.Warn("job offer notification failed, offer remains valid",
				zap.String("booking_id", booking.ID),
				zap.String("provider_id", c.ProviderID),
				zap.Error(err))
		}
	}

	if len(created) > 0 {
		if err := d.Scheduler.ScheduleEscalation(ctx, booking.ID, expiresAt); err != nil {
			return created, fmt.Errorf("failed to schedule expiry check for booking %s: %w", booking.ID, err)
		}
	}

	if err := d.Notifier.NotifyUser(ctx, booking.CustomerID, notification.Event{
		Type:  notification.EventAssignmentStarted,
		Title: "Searching for a provider",
		Body:  fmt.Sprintf("We are contacting %d providers near you.", len(created)),
		Data:  map[string]string{"booking_id": booking.ID},
	}); err != nil {
		d.Logger.Warn("assignment started notification failed",
			zap.String("booking_id", booking.ID), zap.Error(err))
	}

	return created, nil
}

func offerEvent(booking *models.Booking, jr *models.JobRequest) notification.Event {
	body := fmt.Sprintf("New job %.1f km away. Respond before %s.",
		jr.DistanceKm, jr.ExpiresAt.Format("15:04"))
	return notification.Event{
		Type:  notification.EventJobOffer,
		Title: "New job request",
		Body:  body,
		Data: map[string]string{
			"booking_id":     booking.ID,
			"job_request_id": jr.ID,
			"urgency":        string(booking.Urgency),
			"expires_at":     jr.ExpiresAt.Format(time.RFC3339),
		},
	}
}
