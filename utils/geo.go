package utils

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	return geo.Distance(orb.Point{lng1, lat1}, orb.Point{lng2, lat2})
}

// ValidCoordinates reports whether a lat/lng pair is inside WGS84 range.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
