package flight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/sits-go/bridge"
	"github.com/hugr-lab/sits-go/robj"
)

// Client is a bridge.Runtime backed by a remote runtime server.
type Client struct {
	conn    *grpc.ClientConn
	client  flight.FlightServiceClient
	codec   *codec
	token   string
	session string
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ bridge.Runtime = (*Client)(nil)

// NewClient connects to a runtime server. The connection is established
// lazily on the first call.
func NewClient(config ClientConfig) (*Client, error) {
	if err := validateClientConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if config.MaxMessageSize > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
			grpc.MaxCallSendMsgSize(config.MaxMessageSize),
		))
	}
	opts = append(opts, config.DialOptions...)

	conn, err := grpc.NewClient(config.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	c, err := newCodec(config.CompressionThreshold)
	if err != nil {
		conn.Close()
		return nil, err
	}
	session := config.SessionID
	if session == "" {
		session = uuid.NewString()
	}
	return &Client{
		conn:    conn,
		client:  flight.NewFlightServiceClient(conn),
		codec:   c,
		token:   config.Token,
		session: session,
		logger:  logger,
	}, nil
}

// Call implements bridge.Runtime.
func (c *Client) Call(ctx context.Context, fn string, args []robj.Value, named []robj.Named) (robj.Value, error) {
	wargs, err := toWireValues(args, nil)
	if err != nil {
		return nil, err
	}
	wnamed, err := toWireNamed(named, nil)
	if err != nil {
		return nil, err
	}
	var resp valueResponse
	if err := c.do(ctx, ActionCall, callRequest{Function: fn, Args: wargs, Named: wnamed}, &resp); err != nil {
		return nil, err
	}
	return resp.Value.ToValue(nil)
}

// Eval implements bridge.Runtime.
func (c *Client) Eval(ctx context.Context, src string, env []robj.Named) (robj.Value, error) {
	wenv, err := toWireNamed(env, nil)
	if err != nil {
		return nil, err
	}
	var resp valueResponse
	if err := c.do(ctx, ActionEval, evalRequest{Source: src, Env: wenv}, &resp); err != nil {
		return nil, err
	}
	return resp.Value.ToValue(nil)
}

// Release frees the server-side handles of closures and refs found in
// values and returns how many the server dropped.
func (c *Client) Release(ctx context.Context, values ...robj.Value) (int, error) {
	var ids []string
	for _, v := range values {
		ids = collectIDs(v, ids)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var resp releaseResponse
	if err := c.do(ctx, ActionRelease, releaseRequest{IDs: ids}, &resp); err != nil {
		return 0, err
	}
	return resp.Released, nil
}

// SessionID returns the session ID sent with every request.
func (c *Client) SessionID() string { return c.session }

// Ping checks that the server is reachable and returns its live handle count.
func (c *Client) Ping(ctx context.Context) (int, error) {
	var resp pingResponse
	if err := c.do(ctx, ActionPing, struct{}{}, &resp); err != nil {
		return 0, err
	}
	return resp.Handles, nil
}

// Close implements bridge.Runtime. It closes the connection, not the remote
// runtime.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.codec.close()
	return c.conn.Close()
}

func (c *Client) do(ctx context.Context, typ string, req, resp any) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return bridge.ErrClosed
	}

	body, err := c.codec.marshal(req)
	if err != nil {
		return err
	}
	md := []string{HeaderSessionID, c.session}
	if c.token != "" {
		md = append(md, HeaderAuthorization, bearerPrefix+c.token)
	}
	if trace := TraceIDFromContext(ctx); trace != "" {
		md = append(md, HeaderTraceID, trace)
	}
	// A single response is read; cancelling ends the stream.
	ctx, cancel := context.WithCancel(metadata.AppendToOutgoingContext(ctx, md...))
	defer cancel()

	stream, err := c.client.DoAction(ctx, &flight.Action{Type: typ, Body: body})
	if err != nil {
		return fromStatus(err)
	}
	res, err := stream.Recv()
	if errors.Is(err, io.EOF) {
		return ErrEmptyResponse
	}
	if err != nil {
		return fromStatus(err)
	}
	c.logger.Debug("DoAction completed", "type", typ, "request_size", len(body), "response_size", len(res.GetBody()))
	return c.codec.unmarshal(res.GetBody(), resp)
}

func collectIDs(v robj.Value, ids []string) []string {
	switch x := v.(type) {
	case *robj.Closure:
		if x.ID != "" {
			ids = append(ids, x.ID)
		}
	case *robj.Ref:
		if x.ID != "" {
			ids = append(ids, x.ID)
		}
	case *robj.List:
		for _, item := range x.Values {
			ids = collectIDs(item, ids)
		}
	}
	return ids
}
