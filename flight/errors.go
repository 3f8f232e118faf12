package flight

import (
	"errors"
	"fmt"

	"github.com/hugr-lab/sits-go/bridge"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrInvalidConfig is returned for invalid server or client configs.
	ErrInvalidConfig = errors.New("invalid flight config")

	// ErrEmptyResponse is returned when an action stream ends without a result.
	ErrEmptyResponse = errors.New("empty action response")
)

// RemoteError is a failure reported by the remote runtime. The message is
// the runtime's own, uninterpreted.
type RemoteError struct {
	Code    codes.Code
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote runtime: %s", e.Message)
}

// Unwrap maps the transport codes the server assigns to bridge sentinels.
func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case codes.NotFound:
		return bridge.ErrFunctionNotFound
	case codes.FailedPrecondition:
		return bridge.ErrClosed
	}
	return nil
}

// toStatus maps a runtime error to the gRPC status sent to clients.
func toStatus(err error) error {
	switch {
	case errors.Is(err, bridge.ErrFunctionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, bridge.ErrClosed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, bridge.ErrMalformedCall):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Unknown, err.Error())
}

// fromStatus turns a gRPC error into a *RemoteError. Transport failures that
// carry no runtime message keep their status error.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unknown, codes.NotFound, codes.InvalidArgument, codes.Internal, codes.FailedPrecondition:
		return &RemoteError{Code: st.Code(), Message: st.Message()}
	}
	return err
}
