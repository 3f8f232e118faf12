// Package recovery turns panics raised inside runtime callbacks into errors,
// so a failing foreign function cannot take the host process down.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrPanic is matched by every error produced from a recovered panic.
var ErrPanic = errors.New("panic recovered")

// PanicError carries a recovered panic value and the stack it was raised on.
type PanicError struct {
	Operation string
	Value     any
	Stack     []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Operation, e.Value)
}

func (e *PanicError) Unwrap() error { return ErrPanic }

// Value runs fn and converts a panic into a *PanicError.
//
// Example:
//
//	v, err := recovery.Value(logger, "sits::sits_bands", func() (robj.Value, error) {
//	    return fn(ctx, args, named)
//	})
func Value[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = recovered(logger, operation, r)
		}
	}()
	return fn()
}

// Do runs fn and converts a panic into a *PanicError.
func Do(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(logger, operation, r)
		}
	}()
	return fn()
}

// Status maps a recovered panic to a gRPC Internal status. Other errors are
// returned unchanged.
func Status(err error) error {
	var pe *PanicError
	if errors.As(err, &pe) {
		return status.Error(codes.Internal, pe.Error())
	}
	return err
}

func recovered(logger *slog.Logger, operation string, r any) error {
	if logger == nil {
		logger = slog.Default()
	}
	stack := debug.Stack()
	logger.Error("Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(stack),
	)
	return &PanicError{Operation: operation, Value: r, Stack: stack}
}
