package convert

import (
	"fmt"

	"github.com/hugr-lab/sits-go/robj"
)

// Matrix is a decoded two-dimensional numeric array. Values are stored
// column-major, the foreign runtime's layout.
type Matrix struct {
	NRow, NCol int
	RowNames   []string
	ColNames   []string
	Values     []float64
}

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.Values[j*m.NRow+i]
}

// Row returns row i.
func (m *Matrix) Row(i int) []float64 {
	out := make([]float64, m.NCol)
	for j := range out {
		out[j] = m.At(i, j)
	}
	return out
}

// DecodeMatrix decodes a numeric vector carrying a dim attribute.
// One-dimensional arrays decode as a single column.
func DecodeMatrix(v robj.Value) (*Matrix, error) {
	if err := atomic(v); err != nil {
		return nil, err
	}
	a := v.Attrs()
	m := &Matrix{}
	switch len(a.Dim) {
	case 1:
		m.NRow, m.NCol = a.Dim[0], 1
	case 2:
		m.NRow, m.NCol = a.Dim[0], a.Dim[1]
	default:
		return nil, undecodable(v, "a matrix")
	}
	if m.NRow*m.NCol != v.Len() {
		return nil, fmt.Errorf("%w: dim %v does not match length %d", ErrUndecodable, a.Dim, v.Len())
	}
	if len(a.DimNames) > 0 {
		m.RowNames = a.DimNames[0]
	}
	if len(a.DimNames) > 1 {
		m.ColNames = a.DimNames[1]
	}
	if m.RowNames == nil && len(a.Dim) == 1 {
		m.RowNames = a.Names
	}
	vals, err := Floats(v)
	if err != nil {
		return nil, err
	}
	m.Values = vals
	return m, nil
}

// DecodeContingency decodes a contingency table (class "table"): an integer
// array of counts with labels on both axes.
func DecodeContingency(v robj.Value) (*Matrix, error) {
	if !robj.Inherits(v, "table") && !robj.Class(v).Has("matrix") {
		return nil, undecodable(v, "a contingency table")
	}
	return DecodeMatrix(v)
}
