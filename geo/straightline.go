package geo

import (
	"context"
	"math"
)

const earthRadiusKm = 6371.0

// StraightLine estimates drive time from the great-circle distance. It is the
// router used when no routing provider is configured.
type StraightLine struct {
	// SpeedKPH is the assumed average speed. Defaults to 40.
	SpeedKPH float64
	// Detour scales the straight distance to approximate the road network.
	// Defaults to 1.3.
	Detour float64
}

// DriveMinutes implements [Router].
func (s StraightLine) DriveMinutes(_ context.Context, from, to Point) (float64, error) {
	speed := s.SpeedKPH
	if speed <= 0 {
		speed = 40
	}
	detour := s.Detour
	if detour <= 0 {
		detour = 1.3
	}
	return Haversine(from, to) * detour / speed * 60, nil
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
