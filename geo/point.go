// Package geo is the lookup layer of routecache: it memoizes geocoding
// (address to coordinates) and drive-time estimation (coordinate pair to
// minutes) in front of external providers.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrNotFound means the provider has no answer for the query.
	ErrNotFound = errors.New("geo: no result")
	// ErrEmptyAddress means the address is blank after trimming.
	ErrEmptyAddress = errors.New("geo: empty address")
	// ErrIncompleteRoute means From or To is missing.
	ErrIncompleteRoute = errors.New("geo: route needs both from and to")
	// ErrInvalidPoint means a coordinate is out of range or not a number.
	ErrInvalidPoint = errors.New("geo: invalid coordinates")
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is a finite coordinate within range.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lng >= -180 && p.Lng <= 180
}

func (p Point) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// ParsePoint parses "lat,lng".
func ParsePoint(s string) (Point, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("%w: %q is not lat,lng", ErrInvalidPoint, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: latitude %q", ErrInvalidPoint, latStr)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: longitude %q", ErrInvalidPoint, lngStr)
	}
	p := Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return Point{}, fmt.Errorf("%w: %s out of range", ErrInvalidPoint, p)
	}
	return p, nil
}

// RouteQuery is a drive-time request. Either end may be missing in malformed
// input.
type RouteQuery struct {
	From *Point `json:"from"`
	To   *Point `json:"to"`
}

// Route builds a complete RouteQuery.
func Route(from, to Point) RouteQuery {
	return RouteQuery{From: &from, To: &to}
}
