package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	// Nairobi CBD to Westlands is roughly 3.5 km as the crow flies.
	d := HaversineKm(-1.2864, 36.8172, -1.2649, 36.8070)
	assert.InDelta(t, 2.6, d, 0.5)

	// London to Paris, the classic ~343 km check.
	d = HaversineKm(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 343.5, d, 2.0)
}

func TestHaversineKm_ZeroForSamePoint(t *testing.T) {
	assert.Zero(t, HaversineKm(12.34, 56.78, 12.34, 56.78))
}

func TestHaversineKm_Symmetric(t *testing.T) {
	a := HaversineKm(-1.28, 36.82, -1.30, 36.78)
	b := HaversineKm(-1.30, 36.78, -1.28, 36.82)
	assert.InDelta(t, a, b, 1e-9)
}

func TestTravelTimeMin_RoundsUp(t *testing.T) {
	// 10 km at 25 km/h is 24 minutes exactly.
	assert.Equal(t, 24, TravelTimeMin(10, 25))
	// 10.1 km rounds up to 25.
	assert.Equal(t, 25, TravelTimeMin(10.1, 25))
}

func TestTravelTimeMin_Fallbacks(t *testing.T) {
	assert.Equal(t, 0, TravelTimeMin(0, 25))
	assert.Equal(t, 0, TravelTimeMin(-3, 25))
	// Non-positive speed falls back to the default 25 km/h.
	assert.Equal(t, 24, TravelTimeMin(10, 0))
}
