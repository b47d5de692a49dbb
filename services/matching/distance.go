package matching

import (
	"fixly/models"
	"fixly/services/geo"
)

// HaversineForProvider computes the great-circle distance between a
// provider's stored location and the booking location.
func HaversineForProvider(p models.Provider, loc models.Location) float64 {
	return geo.HaversineKm(loc.Lat, loc.Lon, p.LocationGeo.Lat(), p.LocationGeo.Lon())
}

func travelTime(distanceKm, avgSpeedKmh float64) int {
	return geo.TravelTimeMin(distanceKm, avgSpeedKmh)
}
