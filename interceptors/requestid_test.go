package interceptors

import (
	"context"
	"testing"

	"github.com/fieldline/routecache/contextx"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestRequestIDUnary_GeneratesUUID(t *testing.T) {
	ic := RequestIDUnary()

	var id string
	var tags *contextx.Tags
	_, err := ic(t.Context(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, _ any) (any, error) {
		id = contextx.RequestIDFromContext(ctx)
		tags = contextx.TagsFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a UUID: %v", id, err)
	}
	if tags == nil {
		t.Fatal("expected a tag set in the context")
	}
}

func TestRequestIDUnary_HonoursIncomingHeader(t *testing.T) {
	ic := RequestIDUnary()
	ctx := metadata.NewIncomingContext(t.Context(), metadata.Pairs(RequestIDKey, "from-client"))

	var id string
	_, _ = ic(ctx, nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, _ any) (any, error) {
		id = contextx.RequestIDFromContext(ctx)
		return nil, nil
	})
	if id != "from-client" {
		t.Fatalf("got %q, want %q", id, "from-client")
	}
}

func TestRequestIDStream_SetsContext(t *testing.T) {
	ic := RequestIDStream()
	ss := &fakeStream{ctx: t.Context()}

	var id string
	err := ic(nil, ss, &grpc.StreamServerInfo{}, func(_ any, s grpc.ServerStream) error {
		id = contextx.RequestIDFromContext(s.Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a request id on the stream context")
	}
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }
