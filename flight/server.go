// Package flight serves a foreign runtime over Apache Arrow Flight and
// provides the matching client.
//
// The server exposes any bridge.Runtime through DoAction. Action bodies are
// MessagePack envelopes, zstd-compressed above a size threshold. Values that
// only live inside the runtime process (closures, environments, trained
// models) stay in a server-side handle table and travel as opaque IDs; the
// client hands them back unchanged and frees them with the release action.
//
// The Client implements bridge.Runtime, so a remote runtime can be installed
// with bridge.Init like a local one.
package flight

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"

	"github.com/hugr-lab/sits-go/bridge"
)

// Server implements the Flight service handlers for a runtime.
// Embeds BaseFlightServer for forward compatibility with protocol changes.
type Server struct {
	flight.BaseFlightServer

	rt      *bridge.Context
	handles *handleTable
	codec   *codec
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewServer registers the runtime Flight service on grpcServer.
// It does NOT start the gRPC server; the caller controls its lifecycle.
//
//	config := flight.ServerConfig{Runtime: rt}
//	grpcServer := grpc.NewServer(flight.ServerOptions(config)...)
//	srv, err := flight.NewServer(grpcServer, config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) (*Server, error) {
	if err := validateServerConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	logger := serverLogger(config)

	c, err := newCodec(config.CompressionThreshold)
	if err != nil {
		return nil, err
	}
	s := &Server{
		rt:      bridge.New(config.Runtime, bridge.WithLogger(logger)),
		handles: newHandleTable(),
		codec:   c,
		logger:  logger,
	}
	flight.RegisterFlightServiceServer(grpcServer, s)

	logger.Info("Runtime Flight server registered",
		"has_auth", config.Auth != nil,
		"max_message_size", config.MaxMessageSize,
	)
	return s, nil
}

// Handles returns the number of live handles.
func (s *Server) Handles() int { return s.handles.len() }

// Close closes the runtime and releases all handles. Safe to call more than
// once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		if n := s.handles.clear(); n > 0 {
			s.logger.Debug("Released handles on close", "count", n)
		}
		s.codec.close()
		s.closeErr = s.rt.Close()
	})
	return s.closeErr
}
