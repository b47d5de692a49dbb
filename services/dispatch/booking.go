package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bookingRepo "fixly/database/repository/booking"
	jobRepo "fixly/database/repository/jobrequest"
	providerRepo "fixly/database/repository/provider"
	serviceRepo "fixly/database/repository/service"
	"fixly/models"
	"fixly/services/matching"
	"fixly/services/notification"
	"fixly/services/tasks"
	"fixly/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// providerStatusTTL bounds how stale the cached provider-status view may
// be. Customers poll this endpoint aggressively during search.
const providerStatusTTL = 5 * time.Second

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Bookings   bookingRepo.Repository
	Offers     jobRepo.Repository
	Providers  providerRepo.Repository
	Services   serviceRepo.Repository
	Matcher    matching.Service
	Dispatcher DispatchService
	Notifier   notification.Gateway
	Scheduler  tasks.Scheduler
	Cache      *redis.Client
	Clock      utils.Clock
	Logger     *zap.Logger
	Cfg        Config
}

// Create validates the input, persists the booking and kicks off provider
// search. Instant bookings are dispatched inline; scheduled bookings get a
// durable task that starts the search ahead of the appointment.
func (s *DefaultBookingService) Create(ctx context.Context, customerID string, in models.CreateBookingInput) (*models.Booking, error) {
	bookingType := models.BookingType(in.BookingType)
	if bookingType != models.BookingTypeInstant && bookingType != models.BookingTypeScheduled {
		return nil, utils.NewValidationError("booking_type must be instant or scheduled")
	}
	if in.Location.Lat < -90 || in.Location.Lat > 90 || in.Location.Lon < -180 || in.Location.Lon > 180 {
		return nil, utils.NewValidationError("location coordinates out of range")
	}

	now := s.Clock.Now()
	if bookingType == models.BookingTypeScheduled {
		if in.ScheduledAt == nil {
			return nil, utils.NewValidationError("scheduled_at is required for scheduled bookings")
		}
		if in.ScheduledAt.Before(now.Add(s.Cfg.ScheduledLeadTime)) {
			return nil, utils.NewValidationError("scheduled_at must be at least %s from now", s.Cfg.ScheduledLeadTime)
		}
	}

	urgency := models.Urgency(in.Urgency)
	if urgency == "" {
		urgency = models.UrgencyNormal
	}

	svc, err := s.Services.GetByID(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, serviceRepo.ErrNotFound) {
			return nil, utils.NewNotFoundError("service %s not found", in.ServiceID)
		}
		return nil, fmt.Errorf("failed to resolve service %s: %w", in.ServiceID, err)
	}

	booking := &models.Booking{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		ServiceID:   svc.ID,
		BookingType: bookingType,
		Status:      models.StatusPending,
		Location:    in.Location,
		Urgency:     urgency,
		ScheduledAt: in.ScheduledAt,
		TotalAmount: svc.BaseRate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	s.Logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("customer_id", customerID),
		zap.String("booking_type", string(bookingType)))

	if bookingType == models.BookingTypeScheduled {
		startAt := in.ScheduledAt.Add(-s.Cfg.ScheduledLeadTime)
		if err := s.Scheduler.ScheduleDispatch(ctx, booking.ID, startAt); err != nil {
			return nil, fmt.Errorf("failed to schedule dispatch for booking %s: %w", booking.ID, err)
		}
		return booking, nil
	}

	if err := s.StartSearch(ctx, booking.ID); err != nil {
		return nil, err
	}
	// Re-read so the caller sees the post-dispatch status.
	updated, err := s.Bookings.GetByID(ctx, booking.ID)
	if err != nil {
		return booking, nil
	}
	return updated, nil
}

// StartSearch runs matching and dispatches offers for a pending booking.
// It is the entry point for both inline instant dispatch and the durable
// scheduled-dispatch task, so repeated delivery must be harmless.
func (s *DefaultBookingService) StartSearch(ctx context.Context, bookingID string) error {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return utils.NewNotFoundError("booking %s not found", bookingID)
		}
		return fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}
	if booking.Status != models.StatusPending {
		// Already searching, assigned or cancelled.
		return nil
	}

	candidates, err := s.Matcher.FindCandidates(ctx, matching.CandidateQuery{
		ServiceID:     booking.ServiceID,
		Location:      booking.Location,
		Urgency:       booking.Urgency,
		BookingType:   booking.BookingType,
		ScheduledAt:   booking.ScheduledAt,
		MaxDistanceKm: s.Cfg.DefaultSearchRadiusKm,
		MaxProviders:  s.Cfg.MaxProvidersPerDispatch,
	})
	if err != nil {
		return fmt.Errorf("matching failed for booking %s: %w", bookingID, err)
	}
	if len(candidates) == 0 {
		return s.terminateNoProviders(ctx, booking)
	}

	if _, err := s.Dispatcher.Dispatch(ctx, booking, candidates, s.Cfg.ResponseWindow); err != nil {
		return fmt.Errorf("dispatch failed for booking %s: %w", bookingID, err)
	}
	return nil
}

func (s *DefaultBookingService) terminateNoProviders(ctx context.Context, booking *models.Booking) error {
	err := s.Bookings.Cancel(ctx, booking.ID, noProvidersReason,
		[]models.BookingStatus{models.StatusPending, models.StatusProviderSearch}, s.Clock.Now())
	if err != nil {
		if errors.Is(err, bookingRepo.ErrStatusConflict) {
			return nil
		}
		return fmt.Errorf("failed to terminate booking %s: %w", booking.ID, err)
	}
	s.Logger.Info("no candidates found, booking terminated",
		zap.String("booking_id", booking.ID))

	if nerr := s.Notifier.NotifyUser(ctx, booking.CustomerID, notification.Event{
		Type:  notification.EventOrderCancelled,
		Title: "We couldn't find a provider",
		Body:  "No providers are available right now. Please try again later.",
		Data:  map[string]string{"booking_id": booking.ID, "reason": noProvidersReason},
	}); nerr != nil {
		s.Logger.Warn("termination notification failed",
			zap.String("booking_id", booking.ID), zap.Error(nerr))
	}
	return utils.NewNoProvidersAvailableError("no providers available for booking %s", booking.ID)
}

// Cancel terminates a booking on behalf of the actor. Role gating follows
// the lifecycle table; cancelling also withdraws every open offer so no
// provider can accept a dead booking.
func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID, actorID string, role models.Role, reason string) error {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return utils.NewNotFoundError("booking %s not found", bookingID)
		}
		return fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}

	if role == models.RoleCustomer && booking.CustomerID != actorID {
		return utils.NewForbiddenError("booking %s does not belong to you", bookingID)
	}
	if err := models.CanTransition(booking.Status, models.StatusCancelled, role); err != nil {
		if errors.Is(err, models.ErrRoleForbidden) {
			return utils.NewForbiddenError("role %s may not cancel a booking in status %s", role, booking.Status)
		}
		return utils.NewValidationError("booking in status %s cannot be cancelled", booking.Status)
	}

	now := s.Clock.Now()
	err = s.Bookings.Cancel(ctx, bookingID, reason, []models.BookingStatus{booking.Status}, now)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrStatusConflict) {
			return utils.NewConflictError("Booking status changed, please refresh")
		}
		return fmt.Errorf("failed to cancel booking %s: %w", bookingID, err)
	}

	cancelled, err := s.Offers.CancelAllSent(ctx, bookingID, "", now)
	if err != nil {
		s.Logger.Error("failed to withdraw open offers after cancellation",
			zap.String("booking_id", bookingID), zap.Error(err))
	}
	s.Logger.Info("booking cancelled",
		zap.String("booking_id", bookingID),
		zap.String("actor_id", actorID),
		zap.String("role", string(role)),
		zap.Int("offers_withdrawn", len(cancelled)))

	s.notifyCancelled(ctx, booking, cancelled, reason)
	s.invalidateStatus(ctx, bookingID)
	return nil
}

func (s *DefaultBookingService) notifyCancelled(ctx context.Context, booking *models.Booking, offerIDs []string, reason string) {
	event := notification.Event{
		Type:  notification.EventOrderCancelled,
		Title: "Booking cancelled",
		Body:  "Your booking has been cancelled.",
		Data:  map[string]string{"booking_id": booking.ID, "reason": reason},
	}
	if err := s.Notifier.NotifyUser(ctx, booking.CustomerID, event); err != nil {
		s.Logger.Warn("customer cancellation notification failed",
			zap.String("booking_id", booking.ID), zap.Error(err))
	}
	if booking.AssignedProviderID != "" {
		if err := s.Notifier.NotifyProvider(ctx, booking.AssignedProviderID, event); err != nil {
			s.Logger.Warn("provider cancellation notification failed",
				zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}
	for _, offerID := range offerIDs {
		jr, err := s.Offers.GetByID(ctx, offerID)
		if err != nil {
			continue
		}
		if err := s.Notifier.NotifyProvider(ctx, jr.ProviderID, notification.Event{
			Type:  notification.EventJobOfferCancelled,
			Title: "Job offer withdrawn",
			Body:  "The customer cancelled this booking.",
			Data:  map[string]string{"booking_id": booking.ID, "job_request_id": offerID},
		}); err != nil {
			s.Logger.Warn("offer withdrawal notification failed",
				zap.String("job_request_id", offerID), zap.Error(err))
		}
	}
}

// AdvanceStatus applies a role-gated lifecycle transition and returns the
// updated booking.
func (s *DefaultBookingService) AdvanceStatus(ctx context.Context, bookingID, actorID string, role models.Role, to models.BookingStatus) (*models.Booking, error) {
	if !to.Valid() {
		return nil, utils.NewValidationError("unknown status %q", to)
	}

	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, utils.NewNotFoundError("booking %s not found", bookingID)
		}
		return nil, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}

	if err := models.CanTransition(booking.Status, to, role); err != nil {
		if errors.Is(err, models.ErrRoleForbidden) {
			return nil, utils.NewForbiddenError("role %s may not move a booking from %s to %s", role, booking.Status, to)
		}
		return nil, utils.NewValidationError("cannot move booking from %s to %s", booking.Status, to)
	}
	// Only the provider on the booking may advance its work states.
	if role == models.RoleProvider && booking.AssignedProviderID != actorID {
		return nil, utils.NewForbiddenError("booking %s is not assigned to you", bookingID)
	}
	if role == models.RoleCustomer && booking.CustomerID != actorID {
		return nil, utils.NewForbiddenError("booking %s does not belong to you", bookingID)
	}

	now := s.Clock.Now()
	if err := s.Bookings.UpdateStatus(ctx, bookingID, booking.Status, to, now); err != nil {
		if errors.Is(err, bookingRepo.ErrStatusConflict) {
			return nil, utils.NewConflictError("Booking status changed, please refresh")
		}
		return nil, fmt.Errorf("failed to update booking %s: %w", bookingID, err)
	}
	s.Logger.Info("booking status advanced",
		zap.String("booking_id", bookingID),
		zap.String("from", string(booking.Status)),
		zap.String("to", string(to)),
		zap.String("role", string(role)))
	s.invalidateStatus(ctx, bookingID)

	booking.Status = to
	booking.UpdatedAt = now
	return booking, nil
}

// ProviderStatus reports the assignment state of a booking for customer
// polling. Results are cached briefly to shield Mongo from poll storms.
func (s *DefaultBookingService) ProviderStatus(ctx context.Context, bookingID string) (*models.ProviderStatusResponse, error) {
	if cached := s.cachedStatus(ctx, bookingID); cached != nil {
		return cached, nil
	}

	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return nil, utils.NewNotFoundError("booking %s not found", bookingID)
		}
		return nil, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}

	resp := &models.ProviderStatusResponse{
		Status:             booking.Status,
		AssignedProviderID: booking.AssignedProviderID,
	}
	if booking.AssignedProviderID != "" {
		provider, err := s.Providers.GetByID(ctx, booking.AssignedProviderID)
		if err != nil {
			s.Logger.Warn("failed to load assigned provider for status view",
				zap.String("booking_id", bookingID),
				zap.String("provider_id", booking.AssignedProviderID),
				zap.Error(err))
		} else {
			summary := provider.Summary()
			resp.Provider = &summary
		}
	} else if booking.Status == models.StatusProviderSearch {
		pending, err := s.Offers.CountSent(ctx, bookingID)
		if err == nil {
			resp.PendingOffers = int(pending)
		}
	}

	s.storeStatus(ctx, bookingID, resp)
	return resp, nil
}

func statusCacheKey(bookingID string) string {
	return "booking:provider_status:" + bookingID
}

func (s *DefaultBookingService) cachedStatus(ctx context.Context, bookingID string) *models.ProviderStatusResponse {
	if s.Cache == nil {
		return nil
	}
	raw, err := s.Cache.Get(ctx, statusCacheKey(bookingID)).Result()
	if err != nil {
		return nil
	}
	var resp models.ProviderStatusResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil
	}
	return &resp
}

func (s *DefaultBookingService) storeStatus(ctx context.Context, bookingID string, resp *models.ProviderStatusResponse) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, statusCacheKey(bookingID), raw, providerStatusTTL).Err(); err != nil {
		s.Logger.Debug("status cache write failed",
			zap.String("booking_id", bookingID), zap.Error(err))
	}
}

func (s *DefaultBookingService) invalidateStatus(ctx context.Context, bookingID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, statusCacheKey(bookingID)).Err(); err != nil {
		s.Logger.Debug("status cache invalidation failed",
			zap.String("booking_id", bookingID), zap.Error(err))
	}
}
