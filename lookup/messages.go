package lookup

import (
	"github.com/fieldline/routecache/geo"
	"github.com/fieldline/routecache/internal/codec"
)

type GeocodeRequest struct {
	Address string `json:"address"`
}

type GeocodeResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DriveTimeRequest leaves From or To nil when the caller did not supply it;
// the server answers InvalidArgument in that case.
type DriveTimeRequest struct {
	From *geo.Point `json:"from,omitempty"`
	To   *geo.Point `json:"to,omitempty"`
}

type DriveTimeResponse struct {
	Minutes float64 `json:"minutes"`
}

// PurgeRequest names the cache to empty: "geocode", "drivetime" or "all".
type PurgeRequest struct {
	Cache string `json:"cache"`
}

type PurgeResponse struct {
	Purged []string `json:"purged"`
}

type StatsRequest struct{}

type StatsResponse struct {
	Caches []geo.CacheStats `json:"caches"`
}

func (*GeocodeRequest) JSONMessage()    {}
func (*GeocodeResponse) JSONMessage()   {}
func (*DriveTimeRequest) JSONMessage()  {}
func (*DriveTimeResponse) JSONMessage() {}
func (*PurgeRequest) JSONMessage()      {}
func (*PurgeResponse) JSONMessage()     {}
func (*StatsRequest) JSONMessage()      {}
func (*StatsResponse) JSONMessage()     {}

var (
	_ codec.JSONMessage = (*GeocodeRequest)(nil)
	_ codec.JSONMessage = (*GeocodeResponse)(nil)
	_ codec.JSONMessage = (*DriveTimeRequest)(nil)
	_ codec.JSONMessage = (*DriveTimeResponse)(nil)
	_ codec.JSONMessage = (*PurgeRequest)(nil)
	_ codec.JSONMessage = (*PurgeResponse)(nil)
	_ codec.JSONMessage = (*StatsRequest)(nil)
	_ codec.JSONMessage = (*StatsResponse)(nil)
)
