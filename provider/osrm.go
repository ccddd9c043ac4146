package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fieldline/routecache/geo"
)

// DefaultOSRMURL is the public OSRM demo server.
const DefaultOSRMURL = "https://router.project-osrm.org"

var _ geo.Router = (*OSRM)(nil)

// OSRM estimates drive times with the OSRM route service.
type OSRM struct {
	c       *client
	profile string
}

// NewOSRM creates an OSRM client for the driving profile. An empty BaseURL
// selects [DefaultOSRMURL].
func NewOSRM(cfg Config) *OSRM {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOSRMURL
	}
	return &OSRM{c: newClient("osrm", cfg), profile: "driving"}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// DriveMinutes returns the duration of the fastest route in minutes, or
// [geo.ErrNotFound] when OSRM finds no route.
func (o *OSRM) DriveMinutes(ctx context.Context, from, to geo.Point) (float64, error) {
	path := fmt.Sprintf("/route/v1/%s/%s;%s", o.profile, lngLat(from), lngLat(to))

	var resp osrmResponse
	err := o.c.get(ctx, path, map[string]string{"overview": "false"}, &resp)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest && noRoute(se.Body) {
			return 0, geo.ErrNotFound
		}
		return 0, err
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return 0, geo.ErrNotFound
	}
	return resp.Routes[0].Duration / 60, nil
}

// OSRM takes coordinates as lng,lat.
func lngLat(p geo.Point) string {
	return strconv.FormatFloat(p.Lng, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
}

func noRoute(body string) bool {
	return strings.Contains(body, "NoRoute") || strings.Contains(body, "NoSegment")
}
