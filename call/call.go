// Package call adapts host functions to foreign calls.
//
// A Func binds a package-qualified foreign function name to an output
// constructor. Invoke encodes every argument, calls the function through a
// Caller and applies the constructor to the result:
//
//	bands := call.New("sits::sits_bands", convert.Strings)
//	names, err := bands.Invoke(ctx, rt, cube)
//
// Named arguments are passed with Kw. When any encoded argument is an
// unevaluated *robj.Expression (the rendering of an expr tree), the call is
// made in template mode: the adapter writes the call text with the expression
// spliced in, binds every other argument to a placeholder and evaluates the
// text instead.
package call

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/expr"
	"github.com/hugr-lab/sits-go/robj"
)

// Caller executes foreign calls. *bridge.Context implements it.
type Caller interface {
	Call(ctx context.Context, fn string, args []robj.Value, named []robj.Named) (robj.Value, error)
	Eval(ctx context.Context, src string, env []robj.Named) (robj.Value, error)
}

// encoderSource is implemented by callers that carry their own encoder.
type encoderSource interface {
	Encoder() *convert.Encoder
}

// Output builds the host result from the foreign one.
type Output[T any] func(v robj.Value) (T, error)

// Converter encodes one named argument in place of the default encoder.
type Converter func(v any) (robj.Value, error)

// KwArg is a named argument.
type KwArg struct {
	Name  string
	Value any
}

// Kw passes value as the argument called name.
func Kw(name string, value any) KwArg { return KwArg{Name: name, Value: value} }

type config struct {
	converters map[string]Converter
	encoder    *convert.Encoder
	logger     *slog.Logger
}

// Option configures a Func.
type Option func(*config)

// WithConverter encodes the named argument with conv.
func WithConverter(name string, conv Converter) Option {
	return func(c *config) {
		if c.converters == nil {
			c.converters = make(map[string]Converter)
		}
		c.converters[name] = conv
	}
}

// WithEncoder sets the argument encoder. By default the caller's encoder is
// used when it has one, else the package default.
func WithEncoder(e *convert.Encoder) Option {
	return func(c *config) { c.encoder = e }
}

// WithLogger sets the logger for call tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Func is a host function backed by a foreign one.
type Func[T any] struct {
	name string
	out  Output[T]
	cfg  config
}

// New binds the foreign function fn to the output constructor out.
func New[T any](fn string, out Output[T], opts ...Option) *Func[T] {
	f := &Func[T]{name: fn, out: out}
	for _, o := range opts {
		o(&f.cfg)
	}
	return f
}

// Name returns the foreign function name.
func (f *Func[T]) Name() string { return f.name }

// Invoke calls the foreign function with args. Arguments of type KwArg are
// passed by name, in order. Encoding errors are returned before any foreign
// call is made; errors raised by the foreign function are returned unchanged.
func (f *Func[T]) Invoke(ctx context.Context, c Caller, args ...any) (T, error) {
	var zero T

	enc := f.encoder(c)
	pos := make([]robj.Value, 0, len(args))
	var named []robj.Named
	template := false
	for i, a := range args {
		var (
			v   robj.Value
			err error
		)
		if kw, ok := a.(KwArg); ok {
			if conv, ok := f.cfg.converters[kw.Name]; ok {
				v, err = conv(kw.Value)
			} else {
				v, err = encodeArg(enc, kw.Value)
			}
			if err != nil {
				return zero, fmt.Errorf("%s: argument %q: %w", f.name, kw.Name, err)
			}
			named = append(named, robj.Named{Name: kw.Name, Value: v})
		} else {
			if v, err = encodeArg(enc, a); err != nil {
				return zero, fmt.Errorf("%s: argument %d: %w", f.name, i+1, err)
			}
			pos = append(pos, v)
		}
		if _, ok := v.(*robj.Expression); ok {
			template = true
		}
	}

	var (
		res robj.Value
		err error
	)
	if template {
		src, env := Template(f.name, pos, named)
		f.logger().Debug("Calling foreign function", "function", f.name, "template", src)
		res, err = c.Eval(ctx, src, env)
	} else {
		f.logger().Debug("Calling foreign function", "function", f.name, "args", len(pos), "named", len(named))
		res, err = c.Call(ctx, f.name, pos, named)
	}
	if err != nil {
		return zero, err
	}
	if f.out == nil {
		return zero, nil
	}
	return f.out(res)
}

// encodeArg renders expression trees to source and encodes anything else.
func encodeArg(enc *convert.Encoder, a any) (robj.Value, error) {
	if e, ok := a.(expr.Expression); ok {
		return expr.Source(e)
	}
	return enc.Encode(a)
}

func (f *Func[T]) encoder(c Caller) *convert.Encoder {
	if f.cfg.encoder != nil {
		return f.cfg.encoder
	}
	if es, ok := c.(encoderSource); ok && es.Encoder() != nil {
		return es.Encoder()
	}
	return convert.NewEncoder(convert.WithLogger(f.logger()))
}

func (f *Func[T]) logger() *slog.Logger {
	if f.cfg.logger != nil {
		return f.cfg.logger
	}
	return slog.Default()
}

// Template writes the call text of fn with expression arguments spliced in
// and every other argument replaced by a placeholder bound in env:
//
//	sits::sits_apply(.arg1, NDVI = ((B08 - B04) / (B08 + B04)), memsize = .arg2)
func Template(fn string, args []robj.Value, named []robj.Named) (string, []robj.Named) {
	var env []robj.Named
	text := func(v robj.Value) string {
		if e, ok := v.(*robj.Expression); ok {
			return e.Source
		}
		p := ".arg" + strconv.Itoa(len(env)+1)
		env = append(env, robj.Named{Name: p, Value: v})
		return p
	}

	items := make([]string, 0, len(args)+len(named))
	for _, a := range args {
		items = append(items, text(a))
	}
	for _, n := range named {
		items = append(items, argName(n.Name)+" = "+text(n.Value))
	}
	return fn + "(" + strings.Join(items, ", ") + ")", env
}

func argName(name string) string {
	if name == "" {
		return "``"
	}
	for i, r := range name {
		ok := r == '.' || r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || i > 0 && r >= '0' && r <= '9'
		if !ok {
			return "`" + name + "`"
		}
	}
	return name
}
