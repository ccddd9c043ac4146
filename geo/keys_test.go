package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressKey(t *testing.T) {
	require.Equal(t, "123 main st", AddressKey("  123 Main St "))
	require.Equal(t, AddressKey("123 MAIN ST"), AddressKey("123 main st"))
	require.Equal(t, EmptyKey, AddressKey(""))
	require.Equal(t, EmptyKey, AddressKey(" \t\n"))
}

func TestRouteKey(t *testing.T) {
	q := Route(Point{Lat: 40.712776, Lng: -74.005974}, Point{Lat: 40.758896, Lng: -73.985130})
	require.Equal(t, "40.7128,-74.0060|40.7589,-73.9851", RouteKey(q))
}

func TestRouteKey_CollapsesBeyondPrecision(t *testing.T) {
	a := Route(Point{Lat: 40.71281, Lng: -74.00601}, Point{Lat: 40.75889, Lng: -73.98512})
	b := Route(Point{Lat: 40.71284, Lng: -74.00604}, Point{Lat: 40.75891, Lng: -73.98514})
	require.Equal(t, RouteKey(a), RouteKey(b))

	c := Route(Point{Lat: 40.7129, Lng: -74.0060}, Point{Lat: 40.7589, Lng: -73.9851})
	require.NotEqual(t, RouteKey(a), RouteKey(c))
}

func TestRouteKey_MissingEnds(t *testing.T) {
	p := Point{Lat: 1, Lng: 2}
	require.Equal(t, EmptyKey, RouteKey(RouteQuery{}))
	require.Equal(t, EmptyKey, RouteKey(RouteQuery{From: &p}))
	require.Equal(t, EmptyKey, RouteKey(RouteQuery{To: &p}))
}

func TestRouteKey_NegativeZero(t *testing.T) {
	q := Route(Point{Lat: -0.00001, Lng: 0.00001}, Point{Lat: 0, Lng: 0})
	require.Equal(t, "0.0000,0.0000|0.0000,0.0000", RouteKey(q))
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint("40.7128, -74.0060")
	require.NoError(t, err)
	require.Equal(t, Point{Lat: 40.7128, Lng: -74.006}, p)

	for _, bad := range []string{"", "40.7", "abc,1", "1,xyz", "91,0", "0,181", "NaN,0"} {
		_, err := ParsePoint(bad)
		require.ErrorIs(t, err, ErrInvalidPoint, bad)
	}
}

func TestHaversine(t *testing.T) {
	// One degree of latitude is about 111 km.
	d := Haversine(Point{Lat: 0, Lng: 0}, Point{Lat: 1, Lng: 0})
	require.InDelta(t, 111.19, d, 0.1)
	require.Zero(t, Haversine(Point{Lat: 5, Lng: 5}, Point{Lat: 5, Lng: 5}))
}

func TestStraightLine(t *testing.T) {
	r := StraightLine{SpeedKPH: 60, Detour: 1}
	m, err := r.DriveMinutes(t.Context(), Point{Lat: 0, Lng: 0}, Point{Lat: 1, Lng: 0})
	require.NoError(t, err)
	require.InDelta(t, 111.19, m, 0.1)
}
