package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hugr-lab/sits-go/internal/recovery"
	"github.com/hugr-lab/sits-go/robj"
)

// Func is a foreign function implemented in Go.
type Func func(ctx context.Context, args []robj.Value, named []robj.Named) (robj.Value, error)

// EvalFunc evaluates source text.
type EvalFunc func(ctx context.Context, src string, env []robj.Named) (robj.Value, error)

// Local is an in-process runtime. Functions are registered under their
// package-qualified name. Panics in callbacks are recovered into errors.
//
// Without an EvalFunc, Eval understands call text of the form
// "pkg::fn(a, name = b)": arguments naming an env binding are replaced by the
// bound value, any other argument is passed as an unevaluated
// *robj.Expression.
type Local struct {
	mu     sync.RWMutex
	funcs  map[string]Func
	eval   EvalFunc
	closed bool
	logger *slog.Logger
}

// LocalOption configures a Local runtime.
type LocalOption func(*Local)

// WithEvalFunc replaces the built-in call text evaluator.
func WithEvalFunc(fn EvalFunc) LocalOption {
	return func(l *Local) { l.eval = fn }
}

// WithLocalLogger sets the logger used for recovered panics.
func WithLocalLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) { l.logger = logger }
}

// NewLocal creates an empty in-process runtime.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{funcs: make(map[string]Func)}
	for _, o := range opts {
		o(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Register adds or replaces the function name.
func (l *Local) Register(name string, fn Func) *Local {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.funcs[name] = fn
	return l
}

// Functions returns the registered names, sorted.
func (l *Local) Functions() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.funcs))
	for n := range l.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Call implements Runtime.
func (l *Local) Call(ctx context.Context, fn string, args []robj.Value, named []robj.Named) (robj.Value, error) {
	l.mu.RLock()
	f, ok := l.funcs[fn]
	closed := l.closed
	l.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, fn)
	}
	v, err := recovery.Value(l.logger, fn, func() (robj.Value, error) {
		return f(ctx, args, named)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = robj.NewNull()
	}
	return v, nil
}

// Eval implements Runtime.
func (l *Local) Eval(ctx context.Context, src string, env []robj.Named) (robj.Value, error) {
	l.mu.RLock()
	eval, closed := l.eval, l.closed
	l.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if eval != nil {
		return recovery.Value(l.logger, "eval", func() (robj.Value, error) {
			return eval(ctx, src, env)
		})
	}
	fn, args, named, err := ParseCall(src, env)
	if err != nil {
		return nil, err
	}
	return l.Call(ctx, fn, args, named)
}

// Close implements Runtime.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
