package models

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/robj"
)

// NamedVector is a named numeric vector held as a one-row frame with one
// float64 column per name.
type NamedVector struct {
	*Frame
	names  []string
	values []float64
}

// NewNamedVector converts a named numeric vector.
func NewNamedVector(v robj.Value, mem memory.Allocator) (*NamedVector, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	values, err := convert.Floats(v)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(values))
	src := v.Attrs().Names
	for i := range names {
		if i < len(src) && src[i] != "" {
			names[i] = src[i]
		} else {
			names[i] = fmt.Sprintf("V%d", i+1)
		}
	}

	fields := make([]arrow.Field, len(names))
	for i, n := range names {
		fields[i] = arrow.Field{Name: n, Type: arrow.PrimitiveTypes.Float64, Nullable: true}
	}
	b := array.NewRecordBuilder(mem, arrow.NewSchema(fields, nil))
	defer b.Release()
	for i, x := range values {
		fb := b.Field(i).(*array.Float64Builder)
		if math.IsNaN(x) {
			fb.AppendNull()
			continue
		}
		fb.Append(x)
	}
	f := &Frame{handle: v, record: b.NewRecordBatch(), mem: mem}
	return &NamedVector{Frame: f, names: names, values: values}, nil
}

// Names returns the element names.
func (n *NamedVector) Names() []string { return append([]string(nil), n.names...) }

// Values returns the element values; NA is NaN.
func (n *NamedVector) Values() []float64 { return append([]float64(nil), n.values...) }

// Get returns the value of the named element.
func (n *NamedVector) Get(name string) (float64, bool) {
	for i, x := range n.names {
		if x == name {
			return n.values[i], true
		}
	}
	return 0, false
}

// Matrix is a numeric matrix with optional row and column names.
type Matrix struct {
	handle robj.Value
	*convert.Matrix
}

// NewMatrix converts a foreign matrix.
func NewMatrix(v robj.Value) (*Matrix, error) {
	m, err := convert.DecodeMatrix(v)
	if err != nil {
		return nil, err
	}
	return &Matrix{handle: v, Matrix: m}, nil
}

func (m *Matrix) ForeignHandle() robj.Value { return m.handle }

// Table is a contingency table of counts.
type Table struct {
	handle robj.Value
	*convert.Matrix
}

// NewTable converts a foreign contingency table.
func NewTable(v robj.Value) (*Table, error) {
	m, err := convert.DecodeContingency(v)
	if err != nil {
		return nil, err
	}
	return &Table{handle: v, Matrix: m}, nil
}

func (t *Table) ForeignHandle() robj.Value { return t.handle }

// Count returns the count at row i, column j.
func (t *Table) Count(i, j int) int { return int(t.At(i, j)) }

// Total returns the sum of all counts.
func (t *Table) Total() int {
	n := 0
	for _, x := range t.Values {
		n += int(x)
	}
	return n
}

// Structure is an opaque named list (e.g. a SOM map) kept for passing back
// into later operations.
type Structure struct {
	handle *robj.List
}

// NewStructure wraps a foreign list.
func NewStructure(v robj.Value) (*Structure, error) {
	l, ok := v.(*robj.List)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list, got %s", convert.ErrUndecodable, robj.TypeName(v))
	}
	return &Structure{handle: l}, nil
}

func (s *Structure) ForeignHandle() robj.Value { return s.handle }

// Names returns the entry names.
func (s *Structure) Names() []string { return append([]string(nil), s.handle.Names...) }

// Get returns the named entry, or nil.
func (s *Structure) Get(name string) robj.Value { return s.handle.Get(name) }

// Classes returns the class tags of the structure.
func (s *Structure) Classes() robj.TagSet { return robj.Class(s.handle) }

// MLMethod is a machine learning method: either an untrained method closure
// (sits_rfor(), sits_tempcnn(), ...) or a trained model returned by sits_train.
type MLMethod struct {
	handle robj.Value
}

// NewMLMethod wraps a foreign closure or model.
func NewMLMethod(v robj.Value) (*MLMethod, error) {
	switch v.(type) {
	case *robj.Closure, *robj.Ref, *robj.List:
		return &MLMethod{handle: v}, nil
	}
	return nil, fmt.Errorf("%w: expected a closure or model, got %s", convert.ErrUndecodable, robj.TypeName(v))
}

func (m *MLMethod) ForeignHandle() robj.Value { return m.handle }

// Name returns the function that produced the method, if known.
func (m *MLMethod) Name() string {
	if c, ok := m.handle.(*robj.Closure); ok {
		return c.Name
	}
	return ""
}

// Trained reports whether the method is a trained model.
func (m *MLMethod) Trained() bool {
	return robj.Inherits(m.handle, "sits_model")
}

// Classes returns the class tags of the method.
func (m *MLMethod) Classes() robj.TagSet { return robj.Class(m.handle) }
