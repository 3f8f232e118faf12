package flight

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hugr-lab/sits-go/bridge"
	"google.golang.org/grpc"
)

// ServerConfig contains configuration for the runtime Flight server.
type ServerConfig struct {
	// Runtime executes the forwarded calls.
	// REQUIRED: MUST NOT be nil.
	Runtime bridge.Runtime

	// Auth validates bearer tokens.
	// OPTIONAL: If nil, no authentication (all requests allowed).
	Auth Authenticator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// If LogLevel is also set, a text logger with that level is created instead.
	Logger *slog.Logger

	// LogLevel sets the logging level of the default logger.
	// OPTIONAL: Ignored when Logger is set.
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	MaxMessageSize int

	// CompressionThreshold is the response body size above which bodies are
	// zstd-compressed.
	// OPTIONAL: If 0, uses serialize.DefaultThreshold.
	CompressionThreshold int
}

// ClientConfig contains configuration for the runtime Flight client.
type ClientConfig struct {
	// Address of the runtime server (e.g. "localhost:50051").
	// REQUIRED.
	Address string

	// Token is sent as a bearer token with every request.
	// OPTIONAL.
	Token string

	// SessionID is sent with every request and logged by the server.
	// OPTIONAL: If empty, a random UUID is used.
	SessionID string

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	MaxMessageSize int

	// CompressionThreshold is the request body size above which bodies are
	// zstd-compressed.
	// OPTIONAL: If 0, uses serialize.DefaultThreshold.
	CompressionThreshold int

	// DialOptions are appended to the client's gRPC dial options.
	// OPTIONAL: Without transport credentials the connection is insecure.
	DialOptions []grpc.DialOption
}

func validateServerConfig(config ServerConfig) error {
	if config.Runtime == nil {
		return fmt.Errorf("runtime is required")
	}
	if config.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative")
	}
	if config.CompressionThreshold < 0 {
		return fmt.Errorf("compression threshold must not be negative")
	}
	return nil
}

func validateClientConfig(config ClientConfig) error {
	if config.Address == "" {
		return fmt.Errorf("address is required")
	}
	if config.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative")
	}
	if config.CompressionThreshold < 0 {
		return fmt.Errorf("compression threshold must not be negative")
	}
	return nil
}

func serverLogger(config ServerConfig) *slog.Logger {
	switch {
	case config.Logger != nil:
		return config.Logger
	case config.LogLevel != nil:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}

// ServerOptions returns gRPC server options with the authentication
// interceptors and message size limits of config.
//
//	opts := flight.ServerOptions(config)
//	grpcServer := grpc.NewServer(opts...)
//	srv, err := flight.NewServer(config)
//	srv.Register(grpcServer)
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	var opts []grpc.ServerOption
	if config.Auth != nil {
		opts = append(opts,
			grpc.UnaryInterceptor(UnaryServerInterceptor(config.Auth)),
			grpc.StreamInterceptor(StreamServerInterceptor(config.Auth)),
		)
	}
	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}
	return opts
}
