package call

import (
	"context"

	"github.com/hugr-lab/sits-go/models"
	"github.com/hugr-lab/sits-go/robj"
)

// Value returns the foreign result unchanged.
func Value(v robj.Value) (robj.Value, error) { return v, nil }

// Discard drops the result of display-only functions.
func Discard(robj.Value) (struct{}, error) { return struct{}{}, nil }

// ClosureFactory creates foreign closures, e.g. untrained ML methods.
type ClosureFactory struct {
	fn *Func[*models.MLMethod]
}

// Closure returns a factory for the closure-producing function fn
// ("sits::sits_rfor").
func Closure(fn string, opts ...Option) *ClosureFactory {
	return &ClosureFactory{fn: New(fn, models.NewMLMethod, opts...)}
}

// Name returns the foreign function name.
func (f *ClosureFactory) Name() string { return f.fn.Name() }

// Make calls the factory with the method hyperparameters and returns the
// closure.
func (f *ClosureFactory) Make(ctx context.Context, c Caller, args ...any) (*models.MLMethod, error) {
	return f.fn.Invoke(ctx, c, args...)
}
