// Package ping provides the routecache.Ping health check. It reports the
// server time and the status of each registered dependency check (for
// example the shared Redis tier). No protobuf code generation is needed:
// messages travel as JSON through internal/codec.
package ping

import (
	"context"
	"sort"
	"time"

	"github.com/fieldline/routecache/internal/codec"
	"google.golang.org/grpc"
)

// FullMethod is the gRPC method name of Ping.
const FullMethod = "/routecache.Ping/Ping"

// PingRequest is the input for the Ping method.
type PingRequest struct {
	Message string `json:"message"`
}

// PingResponse is the output of the Ping method.
type PingResponse struct {
	Message        string            `json:"message"`
	ServerTimeUnix int64             `json:"server_time_unix"`
	Checks         map[string]string `json:"checks,omitempty"`
	Healthy        bool              `json:"healthy"`
}

func (*PingRequest) JSONMessage()  {}
func (*PingResponse) JSONMessage() {}

var (
	_ codec.JSONMessage = (*PingRequest)(nil)
	_ codec.JSONMessage = (*PingResponse)(nil)
)

// Handler is the interface that a Ping service implementation must satisfy.
type Handler interface {
	Ping(ctx context.Context, req *PingRequest) (*PingResponse, error)
}

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// DefaultHandler returns a Handler that echoes the request message and runs
// checks, each bounded by timeout.
func DefaultHandler(timeout time.Duration, checks map[string]Check) Handler {
	return &checkHandler{timeout: timeout, checks: checks, now: time.Now}
}

type checkHandler struct {
	timeout time.Duration
	checks  map[string]Check
	now     func() time.Time
}

func (h *checkHandler) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {
	resp := &PingResponse{
		Message:        req.Message,
		ServerTimeUnix: h.now().Unix(),
		Healthy:        true,
	}
	if len(h.checks) == 0 {
		return resp, nil
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp.Checks = make(map[string]string, len(names))
	for _, name := range names {
		resp.Checks[name] = "ok"
		if err := h.run(ctx, h.checks[name]); err != nil {
			resp.Checks[name] = err.Error()
			resp.Healthy = false
		}
	}
	return resp, nil
}

func (h *checkHandler) run(ctx context.Context, c Check) error {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	return c(ctx)
}

// ServiceDesc describes the routecache.Ping service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "routecache.Ping",
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: pingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "routecache/ping.proto",
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(PingRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Handler).Ping(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod}
	handler := func(ctx context.Context, r any) (any, error) {
		return srv.(Handler).Ping(ctx, r.(*PingRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// Register registers h on s.
func Register(s grpc.ServiceRegistrar, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}
