package models

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/robj"
	"github.com/paulmach/orb"
)

// FrameSF is a simple-features table: one geometry column plus attributes.
type FrameSF struct{ *Frame }

// NewFrameSF materializes an sf frame.
func NewFrameSF(v robj.Value, mem memory.Allocator) (*FrameSF, error) {
	f, err := NewFrame(v, mem)
	if err != nil {
		return nil, err
	}
	return &FrameSF{f}, nil
}

func (f *FrameSF) Slice(i, j int64) (*FrameSF, error) {
	d, err := f.Frame.Slice(i, j)
	if err != nil {
		return nil, err
	}
	return &FrameSF{d}, nil
}

func (f *FrameSF) Head(n int64) (*FrameSF, error) {
	d, err := f.Frame.Head(n)
	if err != nil {
		return nil, err
	}
	return &FrameSF{d}, nil
}

func (f *FrameSF) Take(rows []int) (*FrameSF, error) {
	d, err := f.Frame.Take(rows)
	if err != nil {
		return nil, err
	}
	return &FrameSF{d}, nil
}

// Geometries decodes the geometry column. Null geometries are nil.
func (f *FrameSF) Geometries() ([]orb.Geometry, error) {
	return geometries(f.Frame)
}

func geometries(f *Frame) ([]orb.Geometry, error) {
	if f.geom == "" {
		return nil, fmt.Errorf("frame has no geometry column")
	}
	col, ok := f.Column(f.geom)
	if !ok {
		return nil, fmt.Errorf("geometry column %q not found", f.geom)
	}
	if ext, ok := col.(array.ExtensionArray); ok {
		col = ext.Storage()
	}
	bin, ok := col.(*array.Binary)
	if !ok {
		return nil, fmt.Errorf("geometry column %q is %s", f.geom, col.DataType())
	}
	out := make([]orb.Geometry, bin.Len())
	for i := range out {
		if bin.IsNull(i) {
			continue
		}
		g, err := convert.DecodeGeometry(bin.Value(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = g
	}
	return out, nil
}

// NestedFrame is a table with embedded per-row tables, e.g. tuning results.
type NestedFrame struct{ *Frame }

// NewNestedFrame materializes a table with nested columns.
func NewNestedFrame(v robj.Value, mem memory.Allocator) (*NestedFrame, error) {
	f, err := NewFrame(v, mem)
	if err != nil {
		return nil, err
	}
	return &NestedFrame{f}, nil
}

// Nested returns the nested table of column name at row as a struct array.
// The caller must release it.
func (f *NestedFrame) Nested(name string, row int) (arrow.Array, error) {
	return nested(f.Frame, name, row)
}

func nested(f *Frame, name string, row int) (arrow.Array, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	list, ok := col.(*array.List)
	if !ok {
		return nil, fmt.Errorf("column %q is %s, not a nested table", name, col.DataType())
	}
	if row < 0 || row >= list.Len() {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, list.Len())
	}
	start, end := list.ValueOffsets(row)
	return array.NewSlice(list.ListValues(), start, end), nil
}

// Cube is a data cube: one row per tile with band file metadata nested.
type Cube struct{ *Frame }

// NewCube materializes a raster cube description.
func NewCube(v robj.Value, mem memory.Allocator) (*Cube, error) {
	f, err := NewFrame(v, mem)
	if err != nil {
		return nil, err
	}
	return &Cube{f}, nil
}

func (c *Cube) Slice(i, j int64) (*Cube, error) {
	d, err := c.Frame.Slice(i, j)
	if err != nil {
		return nil, err
	}
	return &Cube{d}, nil
}

func (c *Cube) Head(n int64) (*Cube, error) {
	d, err := c.Frame.Head(n)
	if err != nil {
		return nil, err
	}
	return &Cube{d}, nil
}

func (c *Cube) Take(rows []int) (*Cube, error) {
	d, err := c.Frame.Take(rows)
	if err != nil {
		return nil, err
	}
	return &Cube{d}, nil
}

// Tiles returns the tile identifiers of the cube.
func (c *Cube) Tiles() ([]string, error) { return c.Strings("tile") }

// FileInfo returns the band files of tile row as a struct array.
func (c *Cube) FileInfo(row int) (arrow.Array, error) { return nested(c.Frame, "file_info", row) }

// TimeSeries is a set of labelled samples with one nested time series per row.
type TimeSeries struct{ *Frame }

// NewTimeSeries materializes a sits tibble.
func NewTimeSeries(v robj.Value, mem memory.Allocator) (*TimeSeries, error) {
	f, err := NewFrame(v, mem)
	if err != nil {
		return nil, err
	}
	return &TimeSeries{f}, nil
}

func (t *TimeSeries) Slice(i, j int64) (*TimeSeries, error) {
	d, err := t.Frame.Slice(i, j)
	if err != nil {
		return nil, err
	}
	return &TimeSeries{d}, nil
}

func (t *TimeSeries) Head(n int64) (*TimeSeries, error) {
	d, err := t.Frame.Head(n)
	if err != nil {
		return nil, err
	}
	return &TimeSeries{d}, nil
}

func (t *TimeSeries) Take(rows []int) (*TimeSeries, error) {
	d, err := t.Frame.Take(rows)
	if err != nil {
		return nil, err
	}
	return &TimeSeries{d}, nil
}

// Labels returns the sample labels.
func (t *TimeSeries) Labels() ([]string, error) { return t.Strings("label") }

// Series returns the observations of sample row as a struct array.
func (t *TimeSeries) Series(row int) (arrow.Array, error) {
	return nested(t.Frame, "time_series", row)
}

// TimeSeriesSF is a sits tibble carrying point geometries.
type TimeSeriesSF struct{ *Frame }

// NewTimeSeriesSF materializes an sf-classed sits tibble.
func NewTimeSeriesSF(v robj.Value, mem memory.Allocator) (*TimeSeriesSF, error) {
	f, err := NewFrame(v, mem)
	if err != nil {
		return nil, err
	}
	return &TimeSeriesSF{f}, nil
}

func (t *TimeSeriesSF) Slice(i, j int64) (*TimeSeriesSF, error) {
	d, err := t.Frame.Slice(i, j)
	if err != nil {
		return nil, err
	}
	return &TimeSeriesSF{d}, nil
}

func (t *TimeSeriesSF) Head(n int64) (*TimeSeriesSF, error) {
	d, err := t.Frame.Head(n)
	if err != nil {
		return nil, err
	}
	return &TimeSeriesSF{d}, nil
}

func (t *TimeSeriesSF) Take(rows []int) (*TimeSeriesSF, error) {
	d, err := t.Frame.Take(rows)
	if err != nil {
		return nil, err
	}
	return &TimeSeriesSF{d}, nil
}

// Geometries decodes the sample geometries.
func (t *TimeSeriesSF) Geometries() ([]orb.Geometry, error) { return geometries(t.Frame) }

// TimeSeriesClassification is a sits tibble with per-sample predictions.
type TimeSeriesClassification struct{ *Frame }

// NewTimeSeriesClassification materializes a classified sits tibble.
func NewTimeSeriesClassification(v robj.Value, mem memory.Allocator) (*TimeSeriesClassification, error) {
	f, err := NewFrame(v, mem)
	if err != nil {
		return nil, err
	}
	return &TimeSeriesClassification{f}, nil
}

func (t *TimeSeriesClassification) Slice(i, j int64) (*TimeSeriesClassification, error) {
	d, err := t.Frame.Slice(i, j)
	if err != nil {
		return nil, err
	}
	return &TimeSeriesClassification{d}, nil
}

func (t *TimeSeriesClassification) Head(n int64) (*TimeSeriesClassification, error) {
	d, err := t.Frame.Head(n)
	if err != nil {
		return nil, err
	}
	return &TimeSeriesClassification{d}, nil
}

func (t *TimeSeriesClassification) Take(rows []int) (*TimeSeriesClassification, error) {
	d, err := t.Frame.Take(rows)
	if err != nil {
		return nil, err
	}
	return &TimeSeriesClassification{d}, nil
}

// Predicted returns the predictions of sample row as a struct array.
func (t *TimeSeriesClassification) Predicted(row int) (arrow.Array, error) {
	return nested(t.Frame, "predicted", row)
}

// Patterns holds the class patterns computed by sits_patterns.
type Patterns struct{ *Frame }

// NewPatterns materializes a patterns tibble.
func NewPatterns(v robj.Value, mem memory.Allocator) (*Patterns, error) {
	f, err := NewFrame(v, mem)
	if err != nil {
		return nil, err
	}
	return &Patterns{f}, nil
}

// Labels returns the pattern labels.
func (p *Patterns) Labels() ([]string, error) { return p.Strings("label") }
