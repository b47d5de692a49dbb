package dispatch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	bookingRepo "fixly/database/repository/booking"
	jobRepo "fixly/database/repository/jobrequest"
	providerRepo "fixly/database/repository/provider"
	serviceRepo "fixly/database/repository/service"
	"fixly/models"
	"fixly/services/matching"
	"fixly/services/notification"
)

// memBookingRepo is an in-memory bookingRepo.Repository with the same
// conditional-update semantics as the Mongo implementation. All guarded
// mutations run under one mutex so concurrent accepts exercise the real
// single-winner contract.
type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newMemBookingRepo(bookings ...*models.Booking) *memBookingRepo {
	r := &memBookingRepo{bookings: make(map[string]*models.Booking)}
	for _, b := range bookings {
		clone := *b
		r.bookings[b.ID] = &clone
	}
	return r
}

func (r *memBookingRepo) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *b
	r.bookings[b.ID] = &clone
	return nil
}

func (r *memBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *memBookingRepo) AssignProvider(_ context.Context, bookingID, providerID string, at time.Time) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok || b.Status != models.StatusProviderSearch || b.AssignedProviderID != "" {
		return nil, bookingRepo.ErrAssignConflict
	}
	b.Status = models.StatusProviderAssigned
	b.AssignedProviderID = providerID
	b.AssignedAt = &at
	b.AssignmentMethod = models.AssignmentAuto
	b.UpdatedAt = at
	clone := *b
	return &clone, nil
}

func (r *memBookingRepo) MarkSearching(_ context.Context, bookingID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok || (b.Status != models.StatusPending && b.Status != models.StatusProviderSearch) {
		return bookingRepo.ErrStatusConflict
	}
	b.Status = models.StatusProviderSearch
	b.UpdatedAt = at
	return nil
}

func (r *memBookingRepo) UpdateStatus(_ context.Context, bookingID string, from, to models.BookingStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok || b.Status != from {
		return bookingRepo.ErrStatusConflict
	}
	b.Status = to
	b.UpdatedAt = at
	return nil
}

func (r *memBookingRepo) Cancel(_ context.Context, bookingID, reason string, from []models.BookingStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return bookingRepo.ErrStatusConflict
	}
	allowed := false
	for _, s := range from {
		if b.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return bookingRepo.ErrStatusConflict
	}
	b.Status = models.StatusCancelled
	b.CancelReason = reason
	b.UpdatedAt = at
	return nil
}

func (r *memBookingRepo) IncrementRetry(_ context.Context, bookingID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return 0, bookingRepo.ErrNotFound
	}
	b.RetryCount++
	b.UpdatedAt = at
	return b.RetryCount, nil
}

// memOfferRepo is an in-memory jobRepo.Repository mirroring the partial
// unique index on (booking_id, provider_id, status=sent).
type memOfferRepo struct {
	mu     sync.Mutex
	offers map[string]*models.JobRequest
}

func newMemOfferRepo() *memOfferRepo {
	return &memOfferRepo{offers: make(map[string]*models.JobRequest)}
}

func (r *memOfferRepo) Create(_ context.Context, jr *models.JobRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.offers {
		if existing.BookingID == jr.BookingID && existing.ProviderID == jr.ProviderID &&
			existing.Status == models.JobRequestSent {
			return jobRepo.ErrDuplicateActive
		}
	}
	clone := *jr
	r.offers[jr.ID] = &clone
	return nil
}

func (r *memOfferRepo) GetByID(_ context.Context, id string) (*models.JobRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jr, ok := r.offers[id]
	if !ok {
		return nil, jobRepo.ErrNotFound
	}
	clone := *jr
	return &clone, nil
}

func (r *memOfferRepo) GetActive(_ context.Context, bookingID, providerID string) (*models.JobRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, jr := range r.offers {
		if jr.BookingID == bookingID && jr.ProviderID == providerID &&
			jr.Status == models.JobRequestSent {
			clone := *jr
			return &clone, nil
		}
	}
	return nil, jobRepo.ErrNotFound
}

func (r *memOfferRepo) ListByBooking(_ context.Context, bookingID string) ([]models.JobRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.JobRequest
	for _, jr := range r.offers {
		if jr.BookingID == bookingID {
			out = append(out, *jr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOfferRepo) MarkAccepted(_ context.Context, id string, at time.Time, details jobRepo.AcceptDetails) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	jr, ok := r.offers[id]
	if !ok {
		return jobRepo.ErrNotFound
	}
	if jr.Status != models.JobRequestSent {
		return jobRepo.ErrAlreadyResolved
	}
	jr.Status = models.JobRequestAccepted
	jr.RespondedAt = &at
	jr.QuotedPrice = details.QuotedPrice
	jr.EstimatedArrival = details.EstimatedArrival
	jr.Notes = details.Notes
	return nil
}

func (r *memOfferRepo) MarkDeclined(_ context.Context, id string, at time.Time, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	jr, ok := r.offers[id]
	if !ok {
		return jobRepo.ErrNotFound
	}
	if jr.Status != models.JobRequestSent {
		return jobRepo.ErrAlreadyResolved
	}
	jr.Status = models.JobRequestDeclined
	jr.RespondedAt = &at
	jr.DeclineReason = reason
	return nil
}

func (r *memOfferRepo) CancelAllSent(_ context.Context, bookingID, exceptID string, at time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cancelled []string
	for _, jr := range r.offers {
		if jr.BookingID == bookingID && jr.ID != exceptID && jr.Status == models.JobRequestSent {
			jr.Status = models.JobRequestCancelled
			jr.RespondedAt = &at
			cancelled = append(cancelled, jr.ID)
		}
	}
	sort.Strings(cancelled)
	return cancelled, nil
}

func (r *memOfferRepo) ExpireDue(_ context.Context, bookingID string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, jr := range r.offers {
		if jr.BookingID == bookingID && jr.Status == models.JobRequestSent &&
			!jr.ExpiresAt.After(now) {
			jr.Status = models.JobRequestExpired
			n++
		}
	}
	return n, nil
}

func (r *memOfferRepo) CountSent(_ context.Context, bookingID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, jr := range r.offers {
		if jr.BookingID == bookingID && jr.Status == models.JobRequestSent {
			n++
		}
	}
	return n, nil
}

func (r *memOfferRepo) TerminalProviderIDs(_ context.Context, bookingID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	for _, jr := range r.offers {
		if jr.BookingID == bookingID && jr.Status.Terminal() {
			seen[jr.ProviderID] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// fakeProviderRepo serves GetByID from a fixed map; SearchEligible is
// unused in this package's tests (matching has its own).
type fakeProviderRepo struct {
	providers map[string]*models.Provider
}

func (r *fakeProviderRepo) GetByID(_ context.Context, id string) (*models.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, providerRepo.ErrNotFound
	}
	return p, nil
}

func (r *fakeProviderRepo) SearchEligible(context.Context, providerRepo.SearchCriteria) ([]models.Provider, error) {
	return nil, nil
}

type fakeServiceRepo struct {
	services map[string]*models.Service
}

func (r *fakeServiceRepo) GetByID(_ context.Context, id string) (*models.Service, error) {
	s, ok := r.services[id]
	if !ok {
		return nil, serviceRepo.ErrNotFound
	}
	return s, nil
}

var errDelivery = errors.New("push delivery failed")

// recordedEvent captures one notification delivery.
type recordedEvent struct {
	Recipient string
	Provider  bool
	Event     notification.Event
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
	fail   bool
}

func (n *fakeNotifier) NotifyUser(_ context.Context, userID string, e notification.Event) error {
	return n.record(userID, false, e)
}

func (n *fakeNotifier) NotifyProvider(_ context.Context, providerID string, e notification.Event) error {
	return n.record(providerID, true, e)
}

func (n *fakeNotifier) record(recipient string, provider bool, e notification.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errDelivery
	}
	n.events = append(n.events, recordedEvent{Recipient: recipient, Provider: provider, Event: e})
	return nil
}

func (n *fakeNotifier) ofType(eventType string) []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedEvent
	for _, e := range n.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeScheduler records durable task requests instead of enqueueing them.
type fakeScheduler struct {
	mu          sync.Mutex
	escalations []scheduledAt
	dispatches  []scheduledAt
	err         error
}

type scheduledAt struct {
	BookingID string
	At        time.Time
}

func (s *fakeScheduler) ScheduleEscalation(_ context.Context, bookingID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.escalations = append(s.escalations, scheduledAt{BookingID: bookingID, At: t})
	return nil
}

func (s *fakeScheduler) ScheduleDispatch(_ context.Context, bookingID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.dispatches = append(s.dispatches, scheduledAt{BookingID: bookingID, At: t})
	return nil
}

// fakeClock is a steppable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeMatcher replays canned candidate lists and records the queries it
// received.
type fakeMatcher struct {
	mu      sync.Mutex
	queries []matching.CandidateQuery
	results [][]models.ProviderCandidate
	err     error
}

func (m *fakeMatcher) FindCandidates(_ context.Context, q matching.CandidateQuery) ([]models.ProviderCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.results) == 0 {
		return nil, nil
	}
	next := m.results[0]
	m.results = m.results[1:]
	return next, nil
}
