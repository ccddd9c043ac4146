package lookup

import (
	"context"
	"errors"

	"github.com/fieldline/routecache/breaker"
	"github.com/fieldline/routecache/cache"
	"github.com/fieldline/routecache/geo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code classifies a lookup error. Errors that already carry a gRPC status
// keep its code. A suppressed lookup wraps the failure it repeats, so the
// definitive answers (bad input, no result) are checked before it.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}

	var upstream interface{ Temporary() bool }
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, geo.ErrEmptyAddress),
		errors.Is(err, geo.ErrIncompleteRoute),
		errors.Is(err, geo.ErrInvalidPoint),
		errors.Is(err, geo.ErrUnknownCache):
		return codes.InvalidArgument
	case errors.Is(err, geo.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, breaker.ErrOpen),
		errors.Is(err, cache.ErrSuppressed),
		errors.As(err, &upstream):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := Code(err)
	msg := err.Error()
	if code == codes.Internal {
		msg = "internal error"
	}
	return status.Error(code, msg)
}
