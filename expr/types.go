package expr

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/hugr-lab/sits-go/robj"
)

var (
	// ErrNoExpression is reported when an operator gets no expression operand,
	// e.g. two raw scalars.
	ErrNoExpression = errors.New("operator needs at least one expression operand")

	// ErrUnsupportedOperand is reported for operands that are neither
	// expressions nor scalars.
	ErrUnsupportedOperand = errors.New("unsupported operand")

	// ErrModuloDisabled is reported by Mod. Membership is written with In.
	ErrModuloDisabled = errors.New("modulo is not supported: use In for membership")
)

// Op is a binary operator.
type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpLt  Op = "<"
	OpLe  Op = "<="
	OpGt  Op = ">"
	OpGe  Op = ">="
	OpAnd Op = "&"
	OpOr  Op = "|"
)

// Expression is a node of the expression tree.
type Expression interface {
	// Render returns the runtime source text, or "" if the tree is invalid.
	Render() string

	// Err returns the first error found in the tree.
	Err() error

	expressionMarker()
}

// Var references a band, column or variable by name.
type Var struct {
	Name string
}

// V creates a variable reference.
func V(name string) Var { return Var{Name: name} }

func (v Var) Render() string  { return v.Name }
func (v Var) Err() error      { return nil }
func (Var) expressionMarker() {}

func (v Var) Eq(x any) Expression  { return Eq(v, x) }
func (v Var) Neq(x any) Expression { return Neq(v, x) }
func (v Var) Lt(x any) Expression  { return Lt(v, x) }
func (v Var) Le(x any) Expression  { return Le(v, x) }
func (v Var) Gt(x any) Expression  { return Gt(v, x) }
func (v Var) Ge(x any) Expression  { return Ge(v, x) }

// In tests membership of v in values.
func (v Var) In(values ...any) Expression { return In(v, values...) }

// Literal is a scalar constant: an integer, float, string or bool.
type Literal struct {
	Value any
}

// Lit creates a literal.
func Lit(v any) Literal { return Literal{Value: v} }

func (l Literal) Render() string {
	switch x := l.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(x)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case float32:
		return robj.FormatDouble(float64(x))
	case float64:
		return robj.FormatDouble(x)
	}
	rv := reflect.ValueOf(l.Value)
	switch {
	case rv.CanInt():
		return strconv.FormatInt(rv.Int(), 10)
	case rv.CanUint():
		return strconv.FormatUint(rv.Uint(), 10)
	}
	return fmt.Sprint(l.Value)
}

func (l Literal) Err() error {
	if !isScalar(l.Value) {
		return fmt.Errorf("%w: literal of type %T", ErrUnsupportedOperand, l.Value)
	}
	return nil
}

func (Literal) expressionMarker() {}

// Binary applies a comparison or boolean operator.
type Binary struct {
	Op    Op
	Left  Expression
	Right Expression
}

func (b Binary) Render() string {
	if b.Err() != nil {
		return ""
	}
	return "(" + b.Left.Render() + " " + string(b.Op) + " " + b.Right.Render() + ")"
}

func (b Binary) Err() error {
	if err := b.Left.Err(); err != nil {
		return err
	}
	return b.Right.Err()
}

func (Binary) expressionMarker() {}

// Negation is logical NOT.
type Negation struct {
	X Expression
}

func (n Negation) Render() string {
	if n.Err() != nil {
		return ""
	}
	return "!(" + n.X.Render() + ")"
}

func (n Negation) Err() error { return n.X.Err() }

func (Negation) expressionMarker() {}

// Membership tests whether Left is one of Values.
type Membership struct {
	Left   Expression
	Values []Literal
}

func (m Membership) Render() string {
	if m.Err() != nil {
		return ""
	}
	vals := make([]string, len(m.Values))
	for i, v := range m.Values {
		vals[i] = v.Render()
	}
	return m.Left.Render() + " %in% c(" + strings.Join(vals, ", ") + ")"
}

func (m Membership) Err() error {
	if err := m.Left.Err(); err != nil {
		return err
	}
	for _, v := range m.Values {
		if err := v.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (Membership) expressionMarker() {}

// Invalid is the result of a construction mistake. It renders as "" and
// reports its error through Err.
type Invalid struct {
	err error
}

func (Invalid) Render() string    { return "" }
func (i Invalid) Err() error      { return i.err }
func (Invalid) expressionMarker() {}

func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float32, float64,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
