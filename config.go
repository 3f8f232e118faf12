package sits

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/sits-go/bridge"
	"github.com/hugr-lab/sits-go/convert"
)

// Config contains configuration for a Session.
type Config struct {
	// Runtime executes the foreign calls.
	// REQUIRED unless Address is set: Runtime and Address are mutually exclusive.
	Runtime bridge.Runtime

	// Address of a remote runtime server (e.g., "localhost:50051").
	// OPTIONAL: If set, the session connects with a flight.Client.
	Address string

	// Token is the bearer token sent to the remote runtime.
	// OPTIONAL: Only used with Address.
	Token string

	// Allocator for Arrow memory management of decoded tables.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses the Logger as is.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// WarnFunc receives non-fatal conversion warnings, e.g. table columns
	// dropped by the encoder.
	// OPTIONAL: If nil, warnings are logged at Warn level.
	WarnFunc convert.WarnFunc
}

// Standard errors returned by the sits package.
var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid session config")

	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidDataset indicates a dataset name that is not an identifier.
	ErrInvalidDataset = errors.New("invalid dataset name")
)

// validateConfig checks that required Config fields are valid.
func validateConfig(config Config) error {
	switch {
	case config.Runtime == nil && config.Address == "":
		return fmt.Errorf("runtime or address is required")
	case config.Runtime != nil && config.Address != "":
		return fmt.Errorf("runtime and address are mutually exclusive")
	case config.Token != "" && config.Address == "":
		return fmt.Errorf("token requires an address")
	}
	return nil
}

func configLogger(config Config) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}
