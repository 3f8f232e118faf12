package sits

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/sits-go/bridge"
	"github.com/hugr-lab/sits-go/call"
	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/expr"
	"github.com/hugr-lab/sits-go/flight"
	"github.com/hugr-lab/sits-go/models"
	"github.com/hugr-lab/sits-go/query"
	"github.com/hugr-lab/sits-go/robj"
)

// Session owns the process-wide runtime context and exposes the toolkit
// operations. Only one session can be open at a time.
type Session struct {
	rt     *bridge.Context
	mem    memory.Allocator
	logger *slog.Logger
	remote bool

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// NewSession installs the configured runtime as the process-wide runtime.
//
// Returns bridge.ErrAlreadyInitialized if another session is open.
//
//	s, err := sits.NewSession(sits.Config{Address: "localhost:50051", Token: token})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
func NewSession(config Config) (*Session, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	mem := config.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	logger := configLogger(config)

	rt := config.Runtime
	if config.Address != "" {
		c, err := flight.NewClient(flight.ClientConfig{
			Address: config.Address,
			Token:   config.Token,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		rt = c
	}

	enc := convert.NewEncoder(
		convert.WithLogger(logger),
		convert.WithAllocator(mem),
		convert.WithWarnFunc(config.WarnFunc),
	)
	ctx, err := bridge.Init(rt,
		bridge.WithLogger(logger),
		bridge.WithAllocator(mem),
		bridge.WithEncoder(enc),
	)
	if err != nil {
		if config.Address != "" {
			rt.Close()
		}
		return nil, err
	}

	logger.Info("Session initialized", "remote", config.Address != "")
	return &Session{rt: ctx, mem: mem, logger: logger, remote: config.Address != ""}, nil
}

// Runtime returns the runtime context. It can be passed to call.Func.Invoke
// for toolkit functions the session does not wrap.
func (s *Session) Runtime() *bridge.Context { return s.rt }

// Allocator returns the allocator of decoded tables.
func (s *Session) Allocator() memory.Allocator { return s.mem }

// Filter evaluates e over the rows of f and returns the matching rows as a
// derived frame.
//
// The result keeps the foreign handle of f, like Slice, Head and Take.
// NumRows reports the filtered count, but operations given the result send
// the runtime the unfiltered table. To subset runtime-side, use a toolkit
// operation such as Select.
func (s *Session) Filter(ctx context.Context, f *models.Frame, e expr.Expression) (*models.Frame, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}
	return query.Filter(ctx, db, f, e)
}

func (s *Session) database() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.db == nil {
		db, err := query.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open query database: %w", err)
		}
		s.db = db
	}
	return s.db, nil
}

// Close tears down the runtime context. A new session can be opened
// afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	db := s.db
	s.mu.Unlock()

	if db != nil {
		if err := db.Close(); err != nil {
			s.logger.Warn("Failed to close query database", "error", err)
		}
	}
	err := s.rt.Close()
	s.logger.Info("Session closed")
	return err
}

// wrapFunc builds the result wrapper of a foreign value.
type wrapFunc[T any] func(v robj.Value, mem memory.Allocator) (T, error)

func plain[T any](fn func(robj.Value) (T, error)) wrapFunc[T] {
	return func(v robj.Value, _ memory.Allocator) (T, error) { return fn(v) }
}

func invoke[T any](ctx context.Context, s *Session, fn *call.Func[robj.Value], wrap wrapFunc[T], args []any) (T, error) {
	v, err := fn.Invoke(ctx, s.rt, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return wrap(v, s.mem)
}

func sitsFunc(name string, opts ...call.Option) *call.Func[robj.Value] {
	return call.New("sits::"+name, call.Value, opts...)
}
