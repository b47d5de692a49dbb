package dispatch

import (
	"context"
	"testing"
	"time"

	"fixly/models"
	"fixly/services/notification"
	"fixly/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type bookingFixture struct {
	bookings *memBookingRepo
	offers   *memOfferRepo
	matcher  *fakeMatcher
	notifier *fakeNotifier
	sched    *fakeScheduler
	clock    *fakeClock
	svc      *DefaultBookingService
}

func newBookingFixture(seed ...*models.Booking) *bookingFixture {
	f := &bookingFixture{
		bookings: newMemBookingRepo(seed...),
		offers:   newMemOfferRepo(),
		matcher:  &fakeMatcher{},
		notifier: &fakeNotifier{},
		sched:    &fakeScheduler{},
		clock:    newFakeClock(testStart),
	}
	dispatcher := &DefaultDispatcher{
		Bookings:  f.bookings,
		Offers:    f.offers,
		Notifier:  f.notifier,
		Scheduler: f.sched,
		Clock:     f.clock,
		Logger:    zap.NewNop(),
	}
	f.svc = &DefaultBookingService{
		Bookings:   f.bookings,
		Offers:     f.offers,
		Providers:  &fakeProviderRepo{providers: map[string]*models.Provider{"p1": {ID: "p1", Name: "Jane", Rating: 4.8}}},
		Services:   &fakeServiceRepo{services: map[string]*models.Service{"svc-clean": {ID: "svc-clean", Name: "House Cleaning", Category: "cleaning", BaseRate: 40, Active: true}}},
		Matcher:    f.matcher,
		Dispatcher: dispatcher,
		Notifier:   f.notifier,
		Scheduler:  f.sched,
		Clock:      f.clock,
		Logger:     zap.NewNop(),
		Cfg:        testDispatchConfig(),
	}
	return f
}

func validInput() models.CreateBookingInput {
	return models.CreateBookingInput{
		ServiceID:   "svc-clean",
		BookingType: "instant",
		Location:    models.Location{Lat: -1.2864, Lon: 36.8172, Address: "Moi Ave"},
		Urgency:     "high",
	}
}

func TestCreateInstantBookingDispatchesInline(t *testing.T) {
	f := newBookingFixture()
	f.matcher.results = [][]models.ProviderCandidate{candidates("p1", "p2")}

	booking, err := f.svc.Create(context.Background(), "cust-1", validInput())
	require.NoError(t, err)
	assert.Equal(t, models.StatusProviderSearch, booking.Status)
	assert.Equal(t, "cust-1", booking.CustomerID)
	assert.Equal(t, 40.0, booking.TotalAmount)

	sent, err := f.offers.CountSent(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, sent)
	assert.Len(t, f.sched.escalations, 1)
	assert.Empty(t, f.sched.dispatches)
}

func TestCreateInstantBookingNoCandidatesTerminates(t *testing.T) {
	f := newBookingFixture()

	_, err := f.svc.Create(context.Background(), "cust-1", validInput())
	var npe *utils.NoProvidersAvailableError
	require.ErrorAs(t, err, &npe)

	events := f.notifier.ofType(notification.EventOrderCancelled)
	require.Len(t, events, 1)
	assert.Equal(t, "cust-1", events[0].Recipient)
}

func TestCreateScheduledBookingEnqueuesFutureDispatch(t *testing.T) {
	f := newBookingFixture()
	at := testStart.Add(3 * time.Hour)
	in := validInput()
	in.BookingType = "scheduled"
	in.ScheduledAt = &at

	booking, err := f.svc.Create(context.Background(), "cust-1", in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, booking.Status)

	require.Len(t, f.sched.dispatches, 1)
	assert.Equal(t, booking.ID, f.sched.dispatches[0].BookingID)
	assert.Equal(t, at.Add(-time.Hour), f.sched.dispatches[0].At)
	assert.Empty(t, f.matcher.queries, "scheduled bookings do not match at creation")
}

func TestCreateValidation(t *testing.T) {
	f := newBookingFixture()
	soon := testStart.Add(10 * time.Minute)

	cases := []struct {
		name   string
		mutate func(*models.CreateBookingInput)
	}{
		{"unknown booking type", func(in *models.CreateBookingInput) { in.BookingType = "sometime" }},
		{"latitude out of range", func(in *models.CreateBookingInput) { in.Location.Lat = 97 }},
		{"scheduled without time", func(in *models.CreateBookingInput) { in.BookingType = "scheduled" }},
		{"scheduled inside lead time", func(in *models.CreateBookingInput) {
			in.BookingType = "scheduled"
			in.ScheduledAt = &soon
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := f.svc.Create(context.Background(), "cust-1", in)
			var ve *utils.ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
}

func TestCreateUnknownServiceNotFound(t *testing.T) {
	f := newBookingFixture()
	in := validInput()
	in.ServiceID = "svc-nope"

	_, err := f.svc.Create(context.Background(), "cust-1", in)
	var nfe *utils.NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestStartSearchIsNoOpOutsidePending(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusProviderAssigned
	booking.AssignedProviderID = "p1"
	f := newBookingFixture(booking)

	require.NoError(t, f.svc.StartSearch(context.Background(), "bk-1"))
	assert.Empty(t, f.matcher.queries)
}

func TestCustomerCancelWithdrawsOpenOffers(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusProviderSearch
	f := newBookingFixture(booking)
	seedOffers(t, f.offers, "bk-1", testStart.Add(5*time.Minute), "p1", "p2")

	require.NoError(t, f.svc.Cancel(context.Background(), "bk-1", "cust-1", models.RoleCustomer, "changed my mind"))

	updated, err := f.bookings.GetByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Equal(t, "changed my mind", updated.CancelReason)

	remaining, err := f.offers.CountSent(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Zero(t, remaining)
	assert.Len(t, f.notifier.ofType(notification.EventJobOfferCancelled), 2)
}

func TestCancelByWrongCustomerForbidden(t *testing.T) {
	booking := searchingBooking("bk-1")
	f := newBookingFixture(booking)

	err := f.svc.Cancel(context.Background(), "bk-1", "cust-stranger", models.RoleCustomer, "")
	var fe *utils.ForbiddenError
	require.ErrorAs(t, err, &fe)
}

func TestCustomerCannotCancelOnceProviderAssigned(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusProviderAssigned
	booking.AssignedProviderID = "p1"
	f := newBookingFixture(booking)

	err := f.svc.Cancel(context.Background(), "bk-1", "cust-1", models.RoleCustomer, "")
	var fe *utils.ForbiddenError
	require.ErrorAs(t, err, &fe)
}

func TestAdminCanCancelAssignedBooking(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusProviderAssigned
	booking.AssignedProviderID = "p1"
	f := newBookingFixture(booking)

	require.NoError(t, f.svc.Cancel(context.Background(), "bk-1", "admin-1", models.RoleAdmin, "fraud"))

	updated, err := f.bookings.GetByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	// The assigned provider learns the job is gone.
	events := f.notifier.ofType(notification.EventOrderCancelled)
	recipients := make(map[string]bool)
	for _, e := range events {
		recipients[e.Recipient] = true
	}
	assert.True(t, recipients["p1"])
}

func TestAdvanceStatusByAssignedProvider(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusProviderAssigned
	booking.AssignedProviderID = "p1"
	f := newBookingFixture(booking)

	updated, err := f.svc.AdvanceStatus(context.Background(), "bk-1", "p1", models.RoleProvider, models.StatusProviderOnWay)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProviderOnWay, updated.Status)
}

func TestAdvanceStatusByOtherProviderForbidden(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusProviderAssigned
	booking.AssignedProviderID = "p1"
	f := newBookingFixture(booking)

	_, err := f.svc.AdvanceStatus(context.Background(), "bk-1", "p2", models.RoleProvider, models.StatusProviderOnWay)
	var fe *utils.ForbiddenError
	require.ErrorAs(t, err, &fe)
}

func TestAdvanceStatusInvalidEdgeRejected(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusProviderAssigned
	booking.AssignedProviderID = "p1"
	f := newBookingFixture(booking)

	_, err := f.svc.AdvanceStatus(context.Background(), "bk-1", "p1", models.RoleProvider, models.StatusCompleted)
	var ve *utils.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestProviderStatusDuringSearchReportsPendingOffers(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusProviderSearch
	f := newBookingFixture(booking)
	seedOffers(t, f.offers, "bk-1", testStart.Add(5*time.Minute), "p1", "p2", "p3")

	resp, err := f.svc.ProviderStatus(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProviderSearch, resp.Status)
	assert.Empty(t, resp.AssignedProviderID)
	assert.Nil(t, resp.Provider)
	assert.Equal(t, 3, resp.PendingOffers)
}

func TestProviderStatusAfterAssignmentIncludesSummary(t *testing.T) {
	booking := searchingBooking("bk-1")
	booking.Status = models.StatusProviderAssigned
	booking.AssignedProviderID = "p1"
	f := newBookingFixture(booking)

	resp, err := f.svc.ProviderStatus(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "p1", resp.AssignedProviderID)
	require.NotNil(t, resp.Provider)
	assert.Equal(t, "Jane", resp.Provider.Name)
	assert.Zero(t, resp.PendingOffers)
}
