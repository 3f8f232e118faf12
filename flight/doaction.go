package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/sits-go/internal/msgpack"
	"github.com/hugr-lab/sits-go/internal/recovery"
	"github.com/hugr-lab/sits-go/robj"
)

var actionTypes = []*flight.ActionType{
	{Type: ActionCall, Description: "call a package-qualified runtime function"},
	{Type: ActionEval, Description: "evaluate runtime source text with bindings"},
	{Type: ActionRelease, Description: "release runtime handles"},
	{Type: ActionPing, Description: "check that the runtime is reachable"},
}

// ListActions lists the supported DoAction types.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	for _, a := range actionTypes {
		if err := stream.Send(a); err != nil {
			return err
		}
	}
	return nil
}

// DoAction executes runtime actions:
//   - call: invoke a runtime function
//   - eval: evaluate call text
//   - release: drop handles
//   - ping: liveness check
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	s.logger.Debug("DoAction called",
		"type", action.GetType(),
		"body_size", len(action.GetBody()),
		"identity", IdentityFromContext(ctx),
		"trace_id", TraceIDFromContext(ctx),
		"session_id", SessionIDFromContext(ctx),
	)

	var (
		resp any
		err  error
	)
	switch action.GetType() {
	case ActionCall:
		resp, err = s.handleCall(ctx, action.GetBody())
	case ActionEval:
		resp, err = s.handleEval(ctx, action.GetBody())
	case ActionRelease:
		resp, err = s.handleRelease(action.GetBody())
	case ActionPing:
		resp = pingResponse{Status: "ok", Handles: s.handles.len()}
	default:
		return status.Errorf(codes.Unimplemented, "unknown action type: %s", action.GetType())
	}
	if err != nil {
		return err
	}

	body, err := s.codec.marshal(resp)
	if err != nil {
		s.logger.Error("Failed to encode action response", "type", action.GetType(), "error", err)
		return status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return stream.Send(&flight.Result{Body: body})
}

// handleCall executes a runtime function.
//
// Request format (MessagePack, inside the envelope):
//
//	{
//	  "function": "sits::sits_bands",
//	  "args": [<value>, ...],
//	  "named": [{"name": "memsize", "value": <value>}, ...]
//	}
//
// Response: {"value": <value>}
func (s *Server) handleCall(ctx context.Context, body []byte) (any, error) {
	var req callRequest
	if err := s.codec.unmarshal(body, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid call request: %v", err)
	}
	args, err := fromWireValues(req.Args, s.handles.resolve)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid call request: %v", err)
	}
	named, err := fromWireNamed(req.Named, s.handles.resolve)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid call request: %v", err)
	}

	v, err := recovery.Value(s.logger, req.Function, func() (robj.Value, error) {
		return s.rt.Call(ctx, req.Function, args, named)
	})
	if err != nil {
		return nil, toStatus(recovery.Status(err))
	}
	return s.response(v)
}

// handleEval evaluates call text with bindings.
//
// Request format: {"source": "fn(.arg1, x = a > 1)", "env": [{"name": ".arg1", "value": <value>}]}
func (s *Server) handleEval(ctx context.Context, body []byte) (any, error) {
	var req evalRequest
	if err := s.codec.unmarshal(body, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid eval request: %v", err)
	}
	env, err := fromWireNamed(req.Env, s.handles.resolve)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid eval request: %v", err)
	}

	v, err := recovery.Value(s.logger, "eval", func() (robj.Value, error) {
		return s.rt.Eval(ctx, req.Source, env)
	})
	if err != nil {
		return nil, toStatus(recovery.Status(err))
	}
	return s.response(v)
}

// handleRelease drops handles. Unknown IDs are ignored.
func (s *Server) handleRelease(body []byte) (any, error) {
	var req releaseRequest
	if err := s.codec.unmarshal(body, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid release request: %v", err)
	}
	n := s.handles.release(req.IDs...)
	s.logger.Debug("Handles released", "requested", len(req.IDs), "released", n)
	return releaseResponse{Released: n}, nil
}

func (s *Server) response(v robj.Value) (any, error) {
	w, err := msgpack.FromValue(v, s.handles.export)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode result: %v", err)
	}
	return valueResponse{Value: w}, nil
}
