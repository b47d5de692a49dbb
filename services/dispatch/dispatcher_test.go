package dispatch

import (
	"context"
	"testing"
	"time"

	"fixly/models"
	"fixly/services/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func searchingBooking(id string) *models.Booking {
	return &models.Booking{
		ID:          id,
		CustomerID:  "cust-1",
		ServiceID:   "svc-clean",
		BookingType: models.BookingTypeInstant,
		Status:      models.StatusPending,
		Location:    models.Location{Lat: -1.2864, Lon: 36.8172},
		Urgency:     models.UrgencyNormal,
		CreatedAt:   testStart,
		UpdatedAt:   testStart,
	}
}

func candidates(ids ...string) []models.ProviderCandidate {
	out := make([]models.ProviderCandidate, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.ProviderCandidate{
			ProviderID:             id,
			Name:                   "Provider " + id,
			DistanceKm:             float64(i + 1),
			EstimatedTravelTimeMin: 5 * (i + 1),
			Rating:                 4.5,
			Score:                  90 - float64(i),
			IsOnline:               true,
			IsAvailable:            true,
		})
	}
	return out
}

func newDispatcher(bookings *memBookingRepo, offers *memOfferRepo, notifier *fakeNotifier, sched *fakeScheduler, clock *fakeClock) *DefaultDispatcher {
	return &DefaultDispatcher{
		Bookings:  bookings,
		Offers:    offers,
		Notifier:  notifier,
		Scheduler: sched,
		Clock:     clock,
		Logger:    zap.NewNop(),
	}
}

func TestDispatchCreatesOfferPerCandidate(t *testing.T) {
	booking := searchingBooking("bk-1")
	bookings := newMemBookingRepo(booking)
	offers := newMemOfferRepo()
	notifier := &fakeNotifier{}
	sched := &fakeScheduler{}
	clock := newFakeClock(testStart)
	d := newDispatcher(bookings, offers, notifier, sched, clock)

	created, err := d.Dispatch(context.Background(), booking, candidates("p1", "p2", "p3"), 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, created, 3)

	updated, err := bookings.GetByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProviderSearch, updated.Status)

	wantExpiry := testStart.Add(5 * time.Minute)
	for _, jr := range created {
		assert.Equal(t, "bk-1", jr.BookingID)
		assert.Equal(t, models.JobRequestSent, jr.Status)
		assert.Equal(t, wantExpiry, jr.ExpiresAt)
	}

	offerEvents := notifier.ofType(notification.EventJobOffer)
	require.Len(t, offerEvents, 3)
	for _, e := range offerEvents {
		assert.True(t, e.Provider)
	}

	require.Len(t, sched.escalations, 1)
	assert.Equal(t, "bk-1", sched.escalations[0].BookingID)
	assert.Equal(t, wantExpiry, sched.escalations[0].At)
}

func TestDispatchSkipsWhenBookingNoLongerSearchable(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusCancelled
	bookings := newMemBookingRepo(booking)
	offers := newMemOfferRepo()
	sched := &fakeScheduler{}
	d := newDispatcher(bookings, offers, &fakeNotifier{}, sched, newFakeClock(testStart))

	created, err := d.Dispatch(context.Background(), booking, candidates("p1"), 5*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, created)

	remaining, err := offers.CountSent(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Zero(t, remaining)
	assert.Empty(t, sched.escalations)
}

func TestDispatchSkipsDuplicateActiveOffer(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusProviderSearch
	bookings := newMemBookingRepo(booking)
	offers := newMemOfferRepo()
	clock := newFakeClock(testStart)
	d := newDispatcher(bookings, offers, &fakeNotifier{}, &fakeScheduler{}, clock)

	require.NoError(t, offers.Create(context.Background(), &models.JobRequest{
		ID:         "jr-existing",
		BookingID:  "bk-1",
		ProviderID: "p1",
		Status:     models.JobRequestSent,
		SentAt:     testStart,
		ExpiresAt:  testStart.Add(5 * time.Minute),
	}))

	created, err := d.Dispatch(context.Background(), booking, candidates("p1", "p2"), 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "p2", created[0].ProviderID)
}

func TestDispatchNotificationFailureIsNonFatal(t *testing.T) {
	booking := searchingBooking("bk-1")
	bookings := newMemBookingRepo(booking)
	offers := newMemOfferRepo()
	notifier := &fakeNotifier{fail: true}
	sched := &fakeScheduler{}
	d := newDispatcher(bookings, offers, notifier, sched, newFakeClock(testStart))

	created, err := d.Dispatch(context.Background(), booking, candidates("p1", "p2"), 5*time.Minute)
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Len(t, sched.escalations, 1)
}

func TestDispatchSchedulingFailureIsFatal(t *testing.T) {
	booking := searchingBooking("bk-1")
	bookings := newMemBookingRepo(booking)
	sched := &fakeScheduler{err: errDelivery}
	d := newDispatcher(bookings, newMemOfferRepo(), &fakeNotifier{}, sched, newFakeClock(testStart))

	_, err := d.Dispatch(context.Background(), booking, candidates("p1"), 5*time.Minute)
	assert.Error(t, err)
}
