package call

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/expr"
	"github.com/hugr-lab/sits-go/robj"
)

// recorder is a Caller that records the last request and answers with result.
type recorder struct {
	fn     string
	args   []robj.Value
	named  []robj.Named
	src    string
	env    []robj.Named
	calls  int
	result robj.Value
	err    error
}

func (r *recorder) Call(ctx context.Context, fn string, args []robj.Value, named []robj.Named) (robj.Value, error) {
	r.calls++
	r.fn, r.args, r.named = fn, args, named
	return r.result, r.err
}

func (r *recorder) Eval(ctx context.Context, src string, env []robj.Named) (robj.Value, error) {
	r.calls++
	r.src, r.env = src, env
	return r.result, r.err
}

func TestInvokeEncodesArguments(t *testing.T) {
	rec := &recorder{result: robj.NewCharacter("NDVI", "EVI")}
	bands := New("sits::sits_bands", convert.Strings)

	got, err := bands.Invoke(context.Background(), rec, "cube", Kw("memsize", 8), Kw("multicores", 2.5))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"NDVI", "EVI"}) {
		t.Errorf("unexpected result %v", got)
	}
	if rec.fn != "sits::sits_bands" || len(rec.args) != 1 {
		t.Fatalf("unexpected call %s with %d args", rec.fn, len(rec.args))
	}
	if s := rec.args[0].(*robj.Character); s.Values[0] != "cube" {
		t.Errorf("unexpected positional %v", s.Values)
	}
	if len(rec.named) != 2 || rec.named[0].Name != "memsize" || rec.named[1].Name != "multicores" {
		t.Fatalf("named order not preserved: %v", rec.named)
	}
	if _, ok := rec.named[0].Value.(*robj.Integer); !ok {
		t.Errorf("expected integer memsize, got %T", rec.named[0].Value)
	}
}

func TestInvokeEncodingErrorBeforeCall(t *testing.T) {
	rec := &recorder{}
	f := New("sits::sits_cube", Value)

	_, err := f.Invoke(context.Background(), rec, complex(1, 2))
	if !errors.Is(err, convert.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	var te *convert.TypeError
	if !errors.As(err, &te) || te.Type != "complex128" {
		t.Errorf("expected type error naming complex128, got %v", err)
	}
	if rec.calls != 0 {
		t.Error("foreign function must not be called after an encoding error")
	}
}

func TestInvokeForeignErrorUnchanged(t *testing.T) {
	foreign := errors.New("Error in sits_cube(): invalid source")
	rec := &recorder{err: foreign}

	_, err := New("sits::sits_cube", Value).Invoke(context.Background(), rec, "BDC")
	if err != foreign {
		t.Errorf("expected the foreign error unchanged, got %v", err)
	}
}

func TestInvokeConverter(t *testing.T) {
	rec := &recorder{result: robj.NewNull()}
	conv := func(v any) (robj.Value, error) {
		return robj.NewCharacter("converted"), nil
	}
	f := New("sits::sits_regularize", Discard, WithConverter("period", conv))

	if _, err := f.Invoke(context.Background(), rec, Kw("period", "P16D"), Kw("res", 500)); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if s := rec.named[0].Value.(*robj.Character); s.Values[0] != "converted" {
		t.Errorf("converter not applied: %v", s.Values)
	}
	if _, ok := rec.named[1].Value.(*robj.Integer); !ok {
		t.Errorf("default encoding expected for res, got %T", rec.named[1].Value)
	}
}

func TestInvokeTemplateMode(t *testing.T) {
	cube := robj.NewList()
	cube.Class = []string{"raster_cube", "tbl_df", "tbl", "data.frame"}
	rec := &recorder{result: cube}

	ndvi := robj.NewExpression("((B08 - B04) / (B08 + B04))")
	f := New("sits::sits_apply", Value)
	got, err := f.Invoke(context.Background(), rec, cube, Kw("NDVI", ndvi), Kw("memsize", 4))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got != robj.Value(cube) {
		t.Error("unexpected result")
	}
	want := "sits::sits_apply(.arg1, NDVI = ((B08 - B04) / (B08 + B04)), memsize = .arg2)"
	if rec.src != want {
		t.Errorf("expected template\n%s\ngot\n%s", want, rec.src)
	}
	if len(rec.env) != 2 || rec.env[0].Name != ".arg1" || rec.env[0].Value != robj.Value(cube) {
		t.Errorf("unexpected bindings %v", rec.env)
	}
}

func TestInvokeInvalidExpression(t *testing.T) {
	rec := &recorder{}
	_, err := New("sits::sits_reclassify", Value).Invoke(context.Background(), rec, Kw("rules", expr.Eq(1, 2)))
	if !errors.Is(err, expr.ErrNoExpression) {
		t.Fatalf("expected ErrNoExpression, got %v", err)
	}
	if rec.calls != 0 {
		t.Error("foreign function must not be called with an invalid expression")
	}
}

func TestTemplateQuotesNames(t *testing.T) {
	src, env := Template("f", nil, []robj.Named{
		{Name: "my band", Value: robj.NewExpression("x > 1")},
		{Name: "2nd", Value: robj.NewInteger(2)},
	})
	if src != "f(`my band` = x > 1, `2nd` = .arg1)" {
		t.Errorf("unexpected template %q", src)
	}
	if len(env) != 1 {
		t.Errorf("expected one binding, got %d", len(env))
	}
}

func TestClosure(t *testing.T) {
	fn := &robj.Closure{Name: "sits_rfor"}
	rec := &recorder{result: fn}

	rfor := Closure("sits::sits_rfor")
	m, err := rfor.Make(context.Background(), rec, Kw("num_trees", 100))
	if err != nil {
		t.Fatalf("Make failed: %v", err)
	}
	if m.ForeignHandle() != robj.Value(fn) || m.Name() != "sits_rfor" {
		t.Errorf("unexpected method %v", m)
	}
	if rfor.Name() != "sits::sits_rfor" {
		t.Errorf("unexpected name %q", rfor.Name())
	}
}
