// Package lookup exposes the geo lookups over gRPC as two services:
// routecache.Lookup for callers and routecache.Admin for operators. The
// service descriptors are written by hand and the messages travel as JSON
// through internal/codec.
package lookup

import (
	"context"

	"github.com/fieldline/routecache/geo"
	"google.golang.org/grpc"
)

// Full method names, as seen by interceptors and policy rules.
const (
	LookupService = "routecache.Lookup"
	AdminService  = "routecache.Admin"

	GeocodeMethod   = "/routecache.Lookup/Geocode"
	DriveTimeMethod = "/routecache.Lookup/DriveTime"
	PurgeMethod     = "/routecache.Admin/Purge"
	StatsMethod     = "/routecache.Admin/Stats"
)

// Backend answers lookups. *geo.Service implements it.
type Backend interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
	DriveMinutes(ctx context.Context, q geo.RouteQuery) (float64, error)
	Stats() []geo.CacheStats
	Purge(ctx context.Context, name string) ([]string, error)
}

var _ Backend = (*geo.Service)(nil)

// LookupServer is the handler type of routecache.Lookup.
type LookupServer interface {
	Geocode(ctx context.Context, req *GeocodeRequest) (*GeocodeResponse, error)
	DriveTime(ctx context.Context, req *DriveTimeRequest) (*DriveTimeResponse, error)
}

// AdminServer is the handler type of routecache.Admin.
type AdminServer interface {
	Purge(ctx context.Context, req *PurgeRequest) (*PurgeResponse, error)
	Stats(ctx context.Context, req *StatsRequest) (*StatsResponse, error)
}

// Server adapts a Backend to both services, translating errors to gRPC
// status codes.
type Server struct {
	b Backend
}

var (
	_ LookupServer = (*Server)(nil)
	_ AdminServer  = (*Server)(nil)
)

// NewServer wraps b.
func NewServer(b Backend) *Server {
	return &Server{b: b}
}

func (s *Server) Geocode(ctx context.Context, req *GeocodeRequest) (*GeocodeResponse, error) {
	p, err := s.b.Geocode(ctx, req.Address)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GeocodeResponse{Lat: p.Lat, Lng: p.Lng}, nil
}

func (s *Server) DriveTime(ctx context.Context, req *DriveTimeRequest) (*DriveTimeResponse, error) {
	m, err := s.b.DriveMinutes(ctx, geo.RouteQuery{From: req.From, To: req.To})
	if err != nil {
		return nil, toStatus(err)
	}
	return &DriveTimeResponse{Minutes: m}, nil
}

func (s *Server) Purge(ctx context.Context, req *PurgeRequest) (*PurgeResponse, error) {
	purged, err := s.b.Purge(ctx, req.Cache)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PurgeResponse{Purged: purged}, nil
}

func (s *Server) Stats(context.Context, *StatsRequest) (*StatsResponse, error) {
	return &StatsResponse{Caches: s.b.Stats()}, nil
}

// Register registers both services for b on r.
func Register(r grpc.ServiceRegistrar, b Backend) {
	srv := NewServer(b)
	r.RegisterService(&LookupServiceDesc, srv)
	r.RegisterService(&AdminServiceDesc, srv)
}

// LookupServiceDesc describes routecache.Lookup.
var LookupServiceDesc = grpc.ServiceDesc{
	ServiceName: LookupService,
	HandlerType: (*LookupServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Geocode",
			Handler: unary(GeocodeMethod, func(srv any, ctx context.Context, req *GeocodeRequest) (any, error) {
				return srv.(LookupServer).Geocode(ctx, req)
			}),
		},
		{
			MethodName: "DriveTime",
			Handler: unary(DriveTimeMethod, func(srv any, ctx context.Context, req *DriveTimeRequest) (any, error) {
				return srv.(LookupServer).DriveTime(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "routecache/lookup.proto",
}

// AdminServiceDesc describes routecache.Admin.
var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminService,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Purge",
			Handler: unary(PurgeMethod, func(srv any, ctx context.Context, req *PurgeRequest) (any, error) {
				return srv.(AdminServer).Purge(ctx, req)
			}),
		},
		{
			MethodName: "Stats",
			Handler: unary(StatsMethod, func(srv any, ctx context.Context, req *StatsRequest) (any, error) {
				return srv.(AdminServer).Stats(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "routecache/admin.proto",
}

// unary builds a grpc.MethodHandler for request type Req, the way generated
// code does for each method.
func unary[Req any](fullMethod string, call func(srv any, ctx context.Context, req *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, r any) (any, error) {
			return call(srv, ctx, r.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}
