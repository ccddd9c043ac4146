package provider

import (
	"context"
	"strconv"

	"github.com/fieldline/routecache/geo"
	pkgerrors "github.com/pkg/errors"
)

// DefaultNominatimURL is the public OpenStreetMap instance. Its usage policy
// allows one request per second and requires an identifying User-Agent.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

var _ geo.Geocoder = (*Nominatim)(nil)

// Nominatim geocodes addresses with the Nominatim search API.
type Nominatim struct {
	c *client
}

// NewNominatim creates a Nominatim client. An empty BaseURL selects
// [DefaultNominatimURL] and a zero Rate selects one request per second.
func NewNominatim(cfg Config) *Nominatim {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultNominatimURL
	}
	if cfg.Rate == 0 {
		cfg.Rate = 1
	}
	return &Nominatim{c: newClient("nominatim", cfg)}
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns the best match for address, or [geo.ErrNotFound].
func (n *Nominatim) Geocode(ctx context.Context, address string) (geo.Point, error) {
	var places []nominatimPlace
	err := n.c.get(ctx, "/search", map[string]string{
		"q":      address,
		"format": "json",
		"limit":  "1",
	}, &places)
	if err != nil {
		return geo.Point{}, err
	}
	if len(places) == 0 {
		return geo.Point{}, geo.ErrNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return geo.Point{}, pkgerrors.Wrapf(geo.ErrInvalidPoint, "nominatim: latitude %q", places[0].Lat)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return geo.Point{}, pkgerrors.Wrapf(geo.ErrInvalidPoint, "nominatim: longitude %q", places[0].Lon)
	}
	return geo.Point{Lat: lat, Lng: lng}, nil
}
