package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/robj"
)

var (
	currentMu sync.Mutex
	current   *Context
)

// Context is the process-wide runtime context.
type Context struct {
	mu      sync.Mutex
	rt      Runtime
	closed  bool
	logger  *slog.Logger
	alloc   memory.Allocator
	encoder *convert.Encoder
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the context logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// WithAllocator sets the allocator used to materialize foreign tables.
func WithAllocator(mem memory.Allocator) Option {
	return func(c *Context) { c.alloc = mem }
}

// WithEncoder sets the encoder used for call arguments.
func WithEncoder(e *convert.Encoder) Option {
	return func(c *Context) { c.encoder = e }
}

// Init installs rt as the process-wide runtime.
func Init(rt Runtime, opts ...Option) (*Context, error) {
	if rt == nil {
		return nil, fmt.Errorf("runtime is required")
	}
	currentMu.Lock()
	defer currentMu.Unlock()
	if current != nil {
		return nil, ErrAlreadyInitialized
	}
	c := New(rt, opts...)
	current = c
	c.logger.Debug("Runtime context initialized", "runtime", fmt.Sprintf("%T", rt))
	return c, nil
}

// New creates a context for rt without installing it process-wide.
func New(rt Runtime, opts ...Option) *Context {
	c := &Context{rt: rt}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.alloc == nil {
		c.alloc = memory.DefaultAllocator
	}
	if c.encoder == nil {
		c.encoder = convert.NewEncoder(convert.WithLogger(c.logger), convert.WithAllocator(c.alloc))
	}
	return c
}

// Current returns the installed context.
func Current() (*Context, error) {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current == nil {
		return nil, ErrNotInitialized
	}
	return current, nil
}

// Call invokes a foreign function. Calls are serialized.
func (c *Context) Call(ctx context.Context, fn string, args []robj.Value, named []robj.Named) (robj.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	start := time.Now()
	v, err := c.rt.Call(ctx, fn, args, named)
	c.logger.Debug("Foreign call",
		"function", fn,
		"args", len(args),
		"named", len(named),
		"duration", time.Since(start),
		"error", err,
	)
	return v, err
}

// Eval evaluates source text. Calls are serialized.
func (c *Context) Eval(ctx context.Context, src string, env []robj.Named) (robj.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	start := time.Now()
	v, err := c.rt.Eval(ctx, src, env)
	c.logger.Debug("Foreign eval",
		"source", src,
		"bindings", len(env),
		"duration", time.Since(start),
		"error", err,
	)
	return v, err
}

// Encoder returns the argument encoder.
func (c *Context) Encoder() *convert.Encoder { return c.encoder }

// Allocator returns the allocator for materialized tables.
func (c *Context) Allocator() memory.Allocator { return c.alloc }

// Logger returns the context logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Close closes the runtime and, if c is the installed context, uninstalls it.
// Closing twice is a no-op.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	err := c.rt.Close()
	c.mu.Unlock()

	currentMu.Lock()
	if current == c {
		current = nil
	}
	currentMu.Unlock()

	c.logger.Debug("Runtime context closed", "error", err)
	return err
}
