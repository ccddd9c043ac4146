package lookup

import (
	"context"

	"github.com/fieldline/routecache/geo"
	"google.golang.org/grpc"
)

// Client calls both services over conn.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a Client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Geocode(ctx context.Context, address string, opts ...grpc.CallOption) (geo.Point, error) {
	out := new(GeocodeResponse)
	if err := c.cc.Invoke(ctx, GeocodeMethod, &GeocodeRequest{Address: address}, out, opts...); err != nil {
		return geo.Point{}, err
	}
	return geo.Point{Lat: out.Lat, Lng: out.Lng}, nil
}

func (c *Client) DriveMinutes(ctx context.Context, q geo.RouteQuery, opts ...grpc.CallOption) (float64, error) {
	out := new(DriveTimeResponse)
	if err := c.cc.Invoke(ctx, DriveTimeMethod, &DriveTimeRequest{From: q.From, To: q.To}, out, opts...); err != nil {
		return 0, err
	}
	return out.Minutes, nil
}

func (c *Client) Purge(ctx context.Context, name string, opts ...grpc.CallOption) ([]string, error) {
	out := new(PurgeResponse)
	if err := c.cc.Invoke(ctx, PurgeMethod, &PurgeRequest{Cache: name}, out, opts...); err != nil {
		return nil, err
	}
	return out.Purged, nil
}

func (c *Client) Stats(ctx context.Context, opts ...grpc.CallOption) ([]geo.CacheStats, error) {
	out := new(StatsResponse)
	if err := c.cc.Invoke(ctx, StatsMethod, &StatsRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out.Caches, nil
}
