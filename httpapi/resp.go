package httpapi

import (
	"net/http"

	"github.com/fieldline/routecache/lookup"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
)

// Resp is the envelope of every JSON response.
type Resp[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func successResp(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Resp[any]{Code: http.StatusOK, Message: "success", Data: data})
}

func errorStrResp(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, Resp[any]{Code: code, Message: msg})
}

// errorResp maps err to an HTTP status the same way the gRPC surface maps it
// to a status code. Internal errors are logged, not returned.
func errorResp(c *gin.Context, err error) {
	code := httpStatus(lookup.Code(err))
	msg := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	errorStrResp(c, code, msg)
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable, codes.Canceled:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
