// Package bridge connects the host to the foreign runtime that executes sits.
//
// A Runtime executes package-qualified foreign functions ("sits::sits_bands")
// and evaluates source text. The package keeps one process-wide Context that
// owns the runtime: Init installs it, Current returns it and Close tears it
// down. Every call made through the Context is serialized by a mutex, so a
// runtime only ever sees one caller at a time.
//
// Local is an in-process runtime whose functions are Go callbacks. The flight
// package provides a remote one.
package bridge

import (
	"context"
	"errors"

	"github.com/hugr-lab/sits-go/robj"
)

var (
	// ErrNotInitialized is returned by Current before Init.
	ErrNotInitialized = errors.New("runtime context is not initialized")

	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("runtime context is already initialized")

	// ErrClosed is returned by calls on a closed context or runtime.
	ErrClosed = errors.New("runtime is closed")

	// ErrFunctionNotFound is returned when the runtime has no function of the
	// requested name.
	ErrFunctionNotFound = errors.New("foreign function not found")
)

// Runtime executes foreign functions.
// Implementations need not be safe for concurrent use; Context serializes
// access.
type Runtime interface {
	// Call invokes the package-qualified function fn with positional and
	// named arguments and returns its result.
	Call(ctx context.Context, fn string, args []robj.Value, named []robj.Named) (robj.Value, error)

	// Eval evaluates source text with the env bindings visible by name.
	Eval(ctx context.Context, src string, env []robj.Named) (robj.Value, error)

	// Close releases the runtime.
	Close() error
}
