// Package models wraps foreign results into Go objects.
//
// Table-shaped results (data cubes, time series, sf frames) are held by a
// Frame: a local Arrow copy of the foreign table plus the foreign handle it
// was decoded from. Passing a wrapper back into any operation sends that
// handle, not the local copy, so runtime-side attributes survive the round
// trip. Frames derived with Slice, Head or Take keep the parent's handle and
// metadata and report Derived() == true.
//
// Which wrapper a foreign value becomes is decided by ordered dispatch rules
// on its class tags (see Resolve).
package models

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/robj"
)

// Object is implemented by every wrapper.
type Object interface {
	ForeignHandle() robj.Value
}

// Frame is a foreign table materialized as an Arrow record.
type Frame struct {
	handle  robj.Value
	record  arrow.RecordBatch
	mem     memory.Allocator
	crs     string
	geom    string
	derived bool
}

// NewFrame materializes a foreign data frame. The frame keeps v as its handle.
func NewFrame(v robj.Value, mem memory.Allocator) (*Frame, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	rec, err := convert.DecodeTable(v, mem)
	if err != nil {
		return nil, err
	}
	f := &Frame{handle: v, record: rec, mem: mem}
	if robj.Inherits(v, "sf") {
		f.geom = v.Attrs().StringAttr("sf_column")
		f.crs = convert.CRSOf(v)
	}
	return f, nil
}

// FrameFromRecord wraps a host record with no foreign handle. Encoding such a
// frame sends the record through the table encoder. The frame retains rec.
func FrameFromRecord(rec arrow.RecordBatch) *Frame {
	rec.Retain()
	return &Frame{record: rec, mem: memory.DefaultAllocator}
}

// ForeignHandle returns the retained foreign value (nil for host-built frames).
func (f *Frame) ForeignHandle() robj.Value { return f.handle }

// Record returns the local copy. The frame keeps ownership.
func (f *Frame) Record() arrow.RecordBatch { return f.record }

// Schema returns the record schema.
func (f *Frame) Schema() *arrow.Schema { return f.record.Schema() }

// NumRows returns the number of rows.
func (f *Frame) NumRows() int64 { return f.record.NumRows() }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int64 { return f.record.NumCols() }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	fields := f.record.Schema().Fields()
	names := make([]string, len(fields))
	for i, fl := range fields {
		names[i] = fl.Name
	}
	return names
}

// Column returns the named column.
func (f *Frame) Column(name string) (arrow.Array, bool) {
	idx := f.record.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, false
	}
	return f.record.Column(idx[0]), true
}

// Strings returns a string column as Go values; nulls become "".
func (f *Frame) Strings(name string) ([]string, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	s, ok := col.(*array.String)
	if !ok {
		return nil, fmt.Errorf("column %q is %s, not string", name, col.DataType())
	}
	out := make([]string, s.Len())
	for i := range out {
		if s.IsValid(i) {
			out[i] = s.Value(i)
		}
	}
	return out, nil
}

// Classes returns the class tags of the retained handle.
func (f *Frame) Classes() robj.TagSet {
	if f.handle == nil {
		return nil
	}
	return robj.Class(f.handle)
}

// Derived reports whether the frame was produced by Slice, Head or Take.
func (f *Frame) Derived() bool { return f.derived }

// CRS returns the spatial reference of an sf frame.
func (f *Frame) CRS() string { return f.crs }

// GeometryColumn returns the geometry column name of an sf frame.
func (f *Frame) GeometryColumn() string { return f.geom }

// Slice returns rows [i, j) as a derived frame.
func (f *Frame) Slice(i, j int64) (*Frame, error) {
	if i < 0 || j < i || j > f.NumRows() {
		return nil, fmt.Errorf("slice [%d, %d) out of range [0, %d]", i, j, f.NumRows())
	}
	return f.derive(f.record.NewSlice(i, j)), nil
}

// Head returns the first n rows as a derived frame. Frames shorter than n
// are returned whole.
func (f *Frame) Head(n int64) (*Frame, error) {
	if n < 0 {
		return nil, fmt.Errorf("head of %d rows: n must not be negative", n)
	}
	return f.Slice(0, min(n, f.NumRows()))
}

// Take returns the given rows, in order, as a derived frame.
func (f *Frame) Take(rows []int) (*Frame, error) {
	n := f.NumRows()
	cols := make([]arrow.Array, f.record.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()
	for c := range cols {
		col := f.record.Column(c)
		if len(rows) == 0 {
			cols[c] = array.NewSlice(col, 0, 0)
			continue
		}
		parts := make([]arrow.Array, len(rows))
		for k, r := range rows {
			if r < 0 || int64(r) >= n {
				releaseAll(parts)
				return nil, fmt.Errorf("row %d out of range [0, %d)", r, n)
			}
			parts[k] = array.NewSlice(col, int64(r), int64(r)+1)
		}
		merged, err := array.Concatenate(parts, f.mem)
		releaseAll(parts)
		if err != nil {
			return nil, err
		}
		cols[c] = merged
	}
	rec := array.NewRecordBatch(f.record.Schema(), cols, int64(len(rows)))
	return f.derive(rec), nil
}

// Release frees the local copy.
func (f *Frame) Release() {
	if f.record != nil {
		f.record.Release()
		f.record = nil
	}
}

// derive is the copy constructor for derived frames: the new frame owns rec
// and carries the handle and metadata forward.
func (f *Frame) derive(rec arrow.RecordBatch) *Frame {
	return &Frame{
		handle:  f.handle,
		record:  rec,
		mem:     f.mem,
		crs:     f.crs,
		geom:    f.geom,
		derived: true,
	}
}

func releaseAll(arrs []arrow.Array) {
	for _, a := range arrs {
		if a != nil {
			a.Release()
		}
	}
}
