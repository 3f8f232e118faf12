package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hugr-lab/sits-go/robj"
)

func Eq(a, b any) Expression  { return binary(OpEq, a, b) }
func Neq(a, b any) Expression { return binary(OpNeq, a, b) }
func Lt(a, b any) Expression  { return binary(OpLt, a, b) }
func Le(a, b any) Expression  { return binary(OpLe, a, b) }
func Gt(a, b any) Expression  { return binary(OpGt, a, b) }
func Ge(a, b any) Expression  { return binary(OpGe, a, b) }
func And(a, b any) Expression { return binary(OpAnd, a, b) }
func Or(a, b any) Expression  { return binary(OpOr, a, b) }

// Not negates x.
func Not(x any) Expression {
	e, raw, err := operand(x)
	switch {
	case err != nil:
		return Invalid{err: err}
	case raw:
		return Invalid{err: fmt.Errorf("%w: !%v", ErrNoExpression, x)}
	}
	return Negation{X: e}
}

// In tests membership of x in values. Values must be scalars.
func In(x any, values ...any) Expression {
	left, raw, err := operand(x)
	switch {
	case err != nil:
		return Invalid{err: err}
	case raw:
		return Invalid{err: fmt.Errorf("%w: %v %%in%% ...", ErrNoExpression, x)}
	}
	lits := make([]Literal, 0, len(values))
	for _, v := range values {
		if !isScalar(v) {
			return Invalid{err: fmt.Errorf("%w: membership value of type %T", ErrUnsupportedOperand, v)}
		}
		lits = append(lits, Literal{Value: v})
	}
	return Membership{Left: left, Values: lits}
}

// Mod always returns an invalid node: the runtime's %in% operator is not
// reachable through modulo. Use In.
func Mod(a, b any) Expression {
	return Invalid{err: ErrModuloDisabled}
}

func binary(op Op, a, b any) Expression {
	left, rawLeft, err := operand(a)
	if err != nil {
		return Invalid{err: err}
	}
	right, rawRight, err := operand(b)
	if err != nil {
		return Invalid{err: err}
	}
	if rawLeft && rawRight {
		return Invalid{err: fmt.Errorf("%w: %v %s %v", ErrNoExpression, a, op, b)}
	}
	return Binary{Op: op, Left: left, Right: right}
}

// operand coerces x into a node. raw reports whether x was a plain scalar.
func operand(x any) (e Expression, raw bool, err error) {
	switch v := x.(type) {
	case Expression:
		return v, false, nil
	case nil:
		return nil, false, fmt.Errorf("%w: nil", ErrUnsupportedOperand)
	}
	if !isScalar(x) {
		return nil, false, fmt.Errorf("%w: %T", ErrUnsupportedOperand, x)
	}
	return Literal{Value: x}, true, nil
}

// ExpressionList is an ordered, named list of expressions.
type ExpressionList struct {
	names []string
	exprs []Expression
}

// NewList creates an empty ExpressionList.
func NewList() *ExpressionList { return &ExpressionList{} }

// Add appends a named expression. Re-adding a name replaces the expression
// and keeps its position.
func (l *ExpressionList) Add(name string, e Expression) *ExpressionList {
	for i, n := range l.names {
		if n == name {
			l.exprs[i] = e
			return l
		}
	}
	l.names = append(l.names, name)
	l.exprs = append(l.exprs, e)
	return l
}

// Names returns the entry names in order.
func (l *ExpressionList) Names() []string { return append([]string(nil), l.names...) }

// Get returns the expression stored under name.
func (l *ExpressionList) Get(name string) (Expression, bool) {
	for i, n := range l.names {
		if n == name {
			return l.exprs[i], true
		}
	}
	return nil, false
}

// Len returns the number of entries.
func (l *ExpressionList) Len() int { return len(l.names) }

// Render returns the runtime list constructor:
//
//	list(
//	    "Forest" = (class == 'Forest'),
//	    "Water" = (ndwi > 0.2)
//	)
func (l *ExpressionList) Render() string {
	if l.Err() != nil {
		return ""
	}
	items := make([]string, len(l.names))
	for i, n := range l.names {
		items[i] = strconv.Quote(n) + " = " + l.exprs[i].Render()
	}
	return "list(\n    " + strings.Join(items, ",\n    ") + "\n)"
}

// Err returns the first error of any entry.
func (l *ExpressionList) Err() error {
	for i, e := range l.exprs {
		if e == nil {
			return fmt.Errorf("%w: entry %q is nil", ErrNoExpression, l.names[i])
		}
		if err := e.Err(); err != nil {
			return fmt.Errorf("entry %q: %w", l.names[i], err)
		}
	}
	return nil
}

func (*ExpressionList) expressionMarker() {}

// Source validates e and wraps its rendering as unevaluated runtime source.
func Source(e Expression) (*robj.Expression, error) {
	if e == nil {
		return nil, ErrNoExpression
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return robj.NewExpression(e.Render()), nil
}
