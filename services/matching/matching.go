package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	providerRepo "fixly/database/repository/provider"
	serviceRepo "fixly/database/repository/service"
	"fixly/models"
	"fixly/utils"

	"go.uber.org/zap"
)

// Scoring weights. Proximity dominates, then rating, then how quickly the
// provider has historically responded to offers.
const (
	maxProximityPts = 50.0
	maxRatingPts    = 30.0
	maxResponsePts  = 20.0

	// Response times at or beyond this get zero responsiveness credit.
	responseCeilingSec = 300.0
)

// CandidateQuery describes one matching run.
type CandidateQuery struct {
	ServiceID     string
	Location      models.Location
	Urgency       models.Urgency
	BookingType   models.BookingType
	ScheduledAt   *time.Time
	MaxDistanceKm float64
	MaxProviders  int
	// ExcludeProviderIDs removes providers who already hold a terminal offer
	// for the booking; set on escalation re-runs.
	ExcludeProviderIDs []string
}

// Service defines the interface for matching providers to a booking.
type Service interface {
	FindCandidates(ctx context.Context, q CandidateQuery) ([]models.ProviderCandidate, error)
}

// Engine implements Service with geo-filtered, scored candidate selection.
type Engine struct {
	Providers   providerRepo.Repository
	Services    serviceRepo.Repository
	Presence    Presence
	AvgSpeedKmh float64
	Logger      *zap.Logger
}

// FindCandidates selects eligible providers for the query, scores them and
// returns them best-first, truncated to MaxProviders. An empty result is a
// valid outcome consumed by the dispatcher and escalation handler.
func (e *Engine) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.ProviderCandidate, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	svc, err := e.Services.GetByID(ctx, q.ServiceID)
	if err != nil {
		if errors.Is(err, serviceRepo.ErrNotFound) {
			return nil, utils.NewNotFoundError("service %s not found", q.ServiceID)
		}
		return nil, fmt.Errorf("failed to resolve service %s: %w", q.ServiceID, err)
	}

	criteria := providerRepo.SearchCriteria{
		Category:      svc.Category,
		BookingType:   q.BookingType,
		ScheduledAt:   q.ScheduledAt,
		Center:        models.NewGeoPoint(q.Location.Lat, q.Location.Lon),
		MaxDistanceKm: q.MaxDistanceKm,
		ExcludeIDs:    q.ExcludeProviderIDs,
	}
	providers, err := e.Providers.SearchEligible(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("eligibility search failed: %w", err)
	}
	if len(providers) == 0 {
		return []models.ProviderCandidate{}, nil
	}

	type scored struct {
		candidate models.ProviderCandidate
		keep      bool
	}

	results := make([]scored, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p models.Provider) {
			defer wg.Done()
			cand, keep := e.scoreProvider(ctx, p, q)
			results[i] = scored{candidate: cand, keep: keep}
		}(i, p)
	}
	wg.Wait()

	var candidates []models.ProviderCandidate
	for _, r := range results {
		if r.keep {
			candidates = append(candidates, r.candidate)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		// Deterministic tie-break so matching stays reproducible.
		return candidates[i].ProviderID < candidates[j].ProviderID
	})

	max := q.MaxProviders
	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	if candidates == nil {
		candidates = []models.ProviderCandidate{}
	}
	return candidates, nil
}

func (e *Engine) scoreProvider(ctx context.Context, p models.Provider, q CandidateQuery) (models.ProviderCandidate, bool) {
	distanceKm := HaversineForProvider(p, q.Location)
	if distanceKm > q.MaxDistanceKm {
		return models.ProviderCandidate{}, false
	}

	online := p.Status == "online"
	if q.BookingType == models.BookingTypeInstant {
		// The Mongo filter already requires online+available; the liveness
		// check weeds out providers whose heartbeat has gone stale since.
		if e.Presence != nil {
			alive, err := e.Presence.IsOnline(ctx, p.ID)
			if err != nil {
				if e.Logger != nil {
					e.Logger.Warn("presence check failed, keeping candidate",
						zap.String("provider_id", p.ID), zap.Error(err))
				}
			} else if !alive {
				return models.ProviderCandidate{}, false
			}
		}
	} else if q.ScheduledAt != nil && !p.HasOpenSlotAt(*q.ScheduledAt) {
		return models.ProviderCandidate{}, false
	}

	score := proximityScore(distanceKm, q.MaxDistanceKm) +
		ratingScore(p.Rating) +
		responseScore(p.AvgResponseSec)

	cand := models.ProviderCandidate{
		ProviderID:  p.ID,
		Name:        p.Name,
		DistanceKm:  distanceKm,
		Rating:      p.Rating,
		Score:       score,
		IsOnline:    online,
		IsAvailable: p.Available,
	}
	if q.BookingType == models.BookingTypeInstant {
		cand.EstimatedTravelTimeMin = travelTime(distanceKm, e.AvgSpeedKmh)
	}
	return cand, true
}

func proximityScore(distanceKm, maxDistanceKm float64) float64 {
	if maxDistanceKm <= 0 || distanceKm >= maxDistanceKm {
		return 0
	}
	return maxProximityPts * (1 - distanceKm/maxDistanceKm)
}

func ratingScore(rating float64) float64 {
	if rating > 5 {
		rating = 5
	}
	if rating < 0 {
		rating = 0
	}
	return (rating / 5) * maxRatingPts
}

// responseScore rewards providers who historically answer offers quickly.
// No history earns half credit rather than best-or-worst treatment.
func responseScore(avgResponseSec float64) float64 {
	if avgResponseSec <= 0 {
		return maxResponsePts / 2
	}
	capped := math.Min(avgResponseSec, responseCeilingSec)
	return maxResponsePts * (1 - capped/responseCeilingSec)
}

func (q CandidateQuery) validate() error {
	if q.ServiceID == "" {
		return utils.NewValidationError("service_id is required")
	}
	if q.Location.Lat == 0 && q.Location.Lon == 0 {
		return utils.NewValidationError("location is required")
	}
	if q.Location.Lat < -90 || q.Location.Lat > 90 || q.Location.Lon < -180 || q.Location.Lon > 180 {
		return utils.NewValidationError("location coordinates out of range")
	}
	if q.MaxDistanceKm <= 0 {
		return utils.NewValidationError("max_distance_km must be positive")
	}
	if q.BookingType != models.BookingTypeInstant && q.BookingType != models.BookingTypeScheduled {
		return utils.NewValidationError("unknown booking type %q", q.BookingType)
	}
	if q.BookingType == models.BookingTypeScheduled && q.ScheduledAt == nil {
		return utils.NewValidationError("scheduled bookings require scheduled_at")
	}
	return nil
}
