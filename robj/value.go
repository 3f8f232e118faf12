// Package robj models values of the foreign statistical runtime.
//
// Every value that crosses the host/runtime boundary is one of a closed set of
// types: NULL, the atomic vectors (logical, integer, double, character, raw),
// generic lists (which also carry data frames), closures, unevaluated
// expressions and opaque references. Each value carries R-style attributes:
// element names, the class-tag set, dimensions and free-form extras such as
// "crs" or "row.names".
//
// Values are plain data. They are produced by the encoder in package convert or
// returned by a bridge.Runtime, and are never interpreted beyond their shape and
// class tags by the binding itself.
package robj

// Value is the interface implemented by all foreign values.
// Use a type switch to access the concrete representation.
type Value interface {
	// Attrs returns the value's attribute set. Never nil.
	Attrs() *Attributes

	// Len returns the number of elements (0 for NULL, closures and references).
	Len() int

	// valueMarker prevents implementations outside this package.
	valueMarker()
}

// Named pairs a value with a name. Used for named call arguments and
// evaluation environments.
type Named struct {
	Name  string
	Value Value
}

// Attributes holds the attributes attached to a foreign value.
type Attributes struct {
	// Names are element names (vector names or list/data frame column names).
	Names []string

	// Class is the explicit class attribute, in the runtime's order.
	Class []string

	// Dim holds dimensions for matrices and arrays.
	Dim []int

	// DimNames holds per-dimension labels. Entries may be nil.
	DimNames [][]string

	// Extra holds all other attributes (e.g. "crs", "sf_column", "row.names").
	Extra map[string]Value
}

// Attrs returns the attribute set itself.
func (a *Attributes) Attrs() *Attributes { return a }

func (a *Attributes) valueMarker() {}

// Attr returns an extra attribute or nil if it is not set.
func (a *Attributes) Attr(name string) Value {
	if a.Extra == nil {
		return nil
	}
	return a.Extra[name]
}

// SetAttr sets an extra attribute. A nil value removes it.
func (a *Attributes) SetAttr(name string, v Value) {
	if v == nil {
		delete(a.Extra, name)
		return
	}
	if a.Extra == nil {
		a.Extra = make(map[string]Value)
	}
	a.Extra[name] = v
}

// StringAttr returns the first element of a character attribute, or "".
func (a *Attributes) StringAttr(name string) string {
	if c, ok := a.Attr(name).(*Character); ok && len(c.Values) > 0 && !c.IsNA(0) {
		return c.Values[0]
	}
	return ""
}

// HasNames reports whether the value carries element names.
func (a *Attributes) HasNames() bool { return len(a.Names) > 0 }

// Null is the foreign NULL value.
type Null struct {
	Attributes
}

// NewNull returns a NULL value.
func NewNull() *Null { return &Null{} }

// Len returns 0.
func (*Null) Len() int { return 0 }

// Logical is a logical (boolean) vector.
type Logical struct {
	Attributes
	Values []bool
	NA     []bool
}

// NewLogical creates a logical vector.
func NewLogical(values ...bool) *Logical {
	if values == nil {
		values = []bool{}
	}
	return &Logical{Values: values}
}

// Len returns the vector length.
func (v *Logical) Len() int { return len(v.Values) }

// IsNA reports whether element i is missing.
func (v *Logical) IsNA(i int) bool { return isNA(v.NA, i) }

// Integer is an integer vector.
type Integer struct {
	Attributes
	Values []int
	NA     []bool
}

// NewInteger creates an integer vector.
func NewInteger(values ...int) *Integer {
	if values == nil {
		values = []int{}
	}
	return &Integer{Values: values}
}

// Len returns the vector length.
func (v *Integer) Len() int { return len(v.Values) }

// IsNA reports whether element i is missing.
func (v *Integer) IsNA(i int) bool { return isNA(v.NA, i) }

// Double is a double-precision vector. Dates are doubles classed "Date"
// holding day offsets since 1970-01-01.
type Double struct {
	Attributes
	Values []float64
	NA     []bool
}

// NewDouble creates a double vector.
func NewDouble(values ...float64) *Double {
	if values == nil {
		values = []float64{}
	}
	return &Double{Values: values}
}

// Len returns the vector length.
func (v *Double) Len() int { return len(v.Values) }

// IsNA reports whether element i is missing.
func (v *Double) IsNA(i int) bool { return isNA(v.NA, i) }

// Character is a string vector.
type Character struct {
	Attributes
	Values []string
	NA     []bool
}

// NewCharacter creates a character vector.
func NewCharacter(values ...string) *Character {
	if values == nil {
		values = []string{}
	}
	return &Character{Values: values}
}

// Len returns the vector length.
func (v *Character) Len() int { return len(v.Values) }

// IsNA reports whether element i is missing.
func (v *Character) IsNA(i int) bool { return isNA(v.NA, i) }

// Raw is a byte vector. Serialized runtime objects travel as Raw.
type Raw struct {
	Attributes
	Bytes []byte
}

// NewRaw creates a raw vector.
func NewRaw(b []byte) *Raw { return &Raw{Bytes: b} }

// Len returns the number of bytes.
func (v *Raw) Len() int { return len(v.Bytes) }

// List is a generic (possibly named) list. Data frames are lists whose
// class contains "data.frame".
type List struct {
	Attributes
	Values []Value
}

// NewList creates an unnamed list.
func NewList(values ...Value) *List {
	if values == nil {
		values = []Value{}
	}
	return &List{Values: values}
}

// NewNamedList creates a named list. names and values must have equal length.
func NewNamedList(names []string, values []Value) *List {
	l := NewList(values...)
	l.Names = names
	return l
}

// Len returns the number of entries.
func (v *List) Len() int { return len(v.Values) }

// Get returns the entry with the given name, or nil.
func (v *List) Get(name string) Value {
	for i, n := range v.Names {
		if n == name && i < len(v.Values) {
			return v.Values[i]
		}
	}
	return nil
}

// Closure is a foreign callable, e.g. the ML method returned by sits_rfor().
type Closure struct {
	Attributes

	// Name is the function the closure was produced by, if known.
	Name string

	// ID identifies the closure on the runtime side.
	ID string

	// Object holds an in-process implementation, if the runtime is local.
	Object any
}

// Len returns 0.
func (*Closure) Len() int { return 0 }

// Expression is unevaluated source text in the runtime's syntax.
// It is only valid as a call argument and is spliced into the call text.
type Expression struct {
	Attributes
	Source string
}

// NewExpression wraps runtime source text.
func NewExpression(src string) *Expression { return &Expression{Source: src} }

// Len returns 0.
func (*Expression) Len() int { return 0 }

// Ref is an opaque reference to an object kept by the runtime
// (environments, trained models, external pointers).
type Ref struct {
	Attributes

	// ID identifies the object on the runtime side.
	ID string

	// Object holds the referenced object when the runtime is in-process.
	Object any
}

// Len returns 0.
func (*Ref) Len() int { return 0 }

func isNA(mask []bool, i int) bool {
	return i < len(mask) && mask[i]
}

var (
	_ Value = (*Null)(nil)
	_ Value = (*Logical)(nil)
	_ Value = (*Integer)(nil)
	_ Value = (*Double)(nil)
	_ Value = (*Character)(nil)
	_ Value = (*Raw)(nil)
	_ Value = (*List)(nil)
	_ Value = (*Closure)(nil)
	_ Value = (*Expression)(nil)
	_ Value = (*Ref)(nil)
)
