package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/dasmlab/lektor/pkg/library"
	"github.com/dasmlab/lektor/pkg/llm"
	"github.com/dasmlab/lektor/pkg/service"
	"google.golang.org/grpc/codes"
)

// errorKind maps a service error onto an HTTP status and a gRPC code.
func errorKind(err error) (int, codes.Code) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, codes.InvalidArgument
	case errors.Is(err, service.ErrProviderUnavailable):
		return http.StatusBadRequest, codes.FailedPrecondition
	case errors.Is(err, service.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, codes.Unavailable
	case errors.Is(err, library.ErrTextNotFound),
		errors.Is(err, library.ErrPageNotFound),
		errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, codes.NotFound
	case errors.Is(err, llm.ErrUnsupportedCapability):
		return http.StatusNotImplemented, codes.Unimplemented
	case errors.Is(err, llm.ErrProviderCallFailed):
		return http.StatusBadGateway, codes.Internal
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codes.DeadlineExceeded
	default:
		return http.StatusInternalServerError, codes.Internal
	}
}
