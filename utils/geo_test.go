package utils

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		expected               float64
		tolerance              float64
	}{
		{"same point", -23.5505, -46.6333, -23.5505, -46.6333, 0, 0.001},
		// Praça da Sé to Paulista, roughly 2.5 km
		{"across town", -23.5505, -46.6333, -23.5614, -46.6558, 2600, 300},
		// São Paulo to Rio de Janeiro, roughly 360 km
		{"intercity", -23.5505, -46.6333, -22.9068, -43.1729, 360000, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.expected) > tt.tolerance {
				t.Errorf("DistanceMeters = %.0f m, expected %.0f ± %.0f", got, tt.expected, tt.tolerance)
			}
		})
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	a := DistanceMeters(-23.55, -46.63, -22.90, -43.17)
	b := DistanceMeters(-22.90, -43.17, -23.55, -46.63)
	if math.Abs(a-b) > 0.001 {
		t.Errorf("distance not symmetric: %v vs %v", a, b)
	}
}

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		expected bool
	}{
		{"valid brazil", -23.55, -46.63, true},
		{"equator meridian", 0, 0, true},
		{"poles", 90, 180, true},
		{"lat too high", 91, 0, false},
		{"lat too low", -91, 0, false},
		{"lng too high", 0, 181, false},
		{"lng too low", 0, -181, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCoordinates(tt.lat, tt.lng); got != tt.expected {
				t.Errorf("ValidCoordinates(%v, %v) = %v, expected %v", tt.lat, tt.lng, got, tt.expected)
			}
		})
	}
}
