package convert

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hugr-lab/sits-go/robj"
)

// DecodeTable materializes a foreign data frame as an Arrow record.
//
// Column mapping: integer → int64 (factors → string labels), double →
// float64, Date → date32, POSIXct → timestamp[us, UTC], character → string,
// logical → bool. A list column whose entries are all data frames becomes
// list<struct> with one nested table per row. The sf geometry column becomes
// a geoarrow.wkb column carrying the frame's CRS. Any other column is
// rendered as short summary strings.
func DecodeTable(v robj.Value, mem memory.Allocator) (arrow.RecordBatch, error) {
	df, ok := v.(*robj.List)
	if !ok || !robj.IsDataFrame(v) {
		return nil, undecodable(v, "a data frame")
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	sfCol := df.StringAttr("sf_column")
	crs := CRSOf(df)
	fields := make([]arrow.Field, len(df.Values))
	codecs := make([]columnCodec, len(df.Values))
	for i, col := range df.Values {
		name := columnName(df, i)
		if name == sfCol {
			fields[i] = NewGeometryField(name, true, crs)
			codecs[i] = columnCodec{typ: fields[i].Type, put: putGeometry}
			continue
		}
		codecs[i] = codecFor(col)
		fields[i] = arrow.Field{Name: name, Type: codecs[i].typ, Nullable: true}
	}

	var md *arrow.Metadata
	if crs != "" {
		m := arrow.NewMetadata([]string{MetaCRS}, []string{crs})
		md = &m
	}
	schema := arrow.NewSchema(fields, md)

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()
	nrow := robj.NRow(df)
	for c, col := range df.Values {
		b := rb.Field(c)
		for r := range nrow {
			if err := codecs[c].put(b, col, r); err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", fields[c].Name, r, err)
			}
		}
	}
	return rb.NewRecordBatch(), nil
}

// CRSOf returns the spatial reference attached to a foreign sf frame: a
// character crs attribute, or the "input" entry of a crs list.
func CRSOf(v robj.Value) string {
	switch c := v.Attrs().Attr("crs").(type) {
	case *robj.Character:
		if c.Len() > 0 && !c.IsNA(0) {
			return c.Values[0]
		}
	case *robj.List:
		if in, ok := c.Get("input").(*robj.Character); ok && in.Len() > 0 {
			return in.Values[0]
		}
	}
	return ""
}

func columnName(df *robj.List, i int) string {
	if i < len(df.Names) && df.Names[i] != "" {
		return df.Names[i]
	}
	return fmt.Sprintf("V%d", i+1)
}

// columnCodec pairs the Arrow type chosen for a foreign column with the
// function appending one row of it. put works on any column of a compatible
// foreign type, so nested tables of different rows can share a codec.
type columnCodec struct {
	typ arrow.DataType
	put func(b array.Builder, col robj.Value, row int) error
}

func codecFor(col robj.Value) columnCodec {
	switch x := col.(type) {
	case *robj.Integer:
		if robj.Inherits(x, "factor") {
			return columnCodec{typ: arrow.BinaryTypes.String, put: putString}
		}
		return columnCodec{typ: arrow.PrimitiveTypes.Int64, put: putInt}
	case *robj.Double:
		switch {
		case robj.Inherits(x, "Date"):
			return columnCodec{typ: arrow.FixedWidthTypes.Date32, put: putDate}
		case robj.Inherits(x, "POSIXct"):
			return columnCodec{typ: arrow.FixedWidthTypes.Timestamp_us, put: putTimestamp}
		}
		return columnCodec{typ: arrow.PrimitiveTypes.Float64, put: putFloat}
	case *robj.Character:
		return columnCodec{typ: arrow.BinaryTypes.String, put: putString}
	case *robj.Logical:
		return columnCodec{typ: arrow.FixedWidthTypes.Boolean, put: putBool}
	case *robj.List:
		if tmpl := firstFrame(x); tmpl != nil {
			return nestedCodec(tmpl)
		}
	}
	return columnCodec{typ: arrow.BinaryTypes.String, put: putSummary}
}

// firstFrame returns the first non-empty nested data frame of a list column
// whose entries are all data frames (or NULL).
func firstFrame(l *robj.List) *robj.List {
	var tmpl *robj.List
	for _, e := range l.Values {
		if _, ok := e.(*robj.Null); ok {
			continue
		}
		df, ok := e.(*robj.List)
		if !ok || !robj.IsDataFrame(df) {
			return nil
		}
		if tmpl == nil || (len(tmpl.Values) == 0 && len(df.Values) > 0) {
			tmpl = df
		}
	}
	return tmpl
}

func nestedCodec(tmpl *robj.List) columnCodec {
	fields := make([]arrow.Field, len(tmpl.Values))
	codecs := make([]columnCodec, len(tmpl.Values))
	for i, col := range tmpl.Values {
		codecs[i] = codecFor(col)
		fields[i] = arrow.Field{Name: columnName(tmpl, i), Type: codecs[i].typ, Nullable: true}
	}

	put := func(b array.Builder, col robj.Value, row int) error {
		lb := b.(*array.ListBuilder)
		l, ok := col.(*robj.List)
		if !ok || row >= len(l.Values) {
			lb.AppendNull()
			return nil
		}
		df, ok := l.Values[row].(*robj.List)
		if !ok {
			lb.AppendNull()
			return nil
		}
		lb.Append(true)
		sb := lb.ValueBuilder().(*array.StructBuilder)
		for r := range robj.NRow(df) {
			sb.Append(true)
			for k, f := range fields {
				fb := sb.FieldBuilder(k)
				sub := df.Get(f.Name)
				if sub == nil {
					fb.AppendNull()
					continue
				}
				if err := codecs[k].put(fb, sub, r); err != nil {
					return fmt.Errorf("nested column %q: %w", f.Name, err)
				}
			}
		}
		return nil
	}
	return columnCodec{typ: arrow.ListOf(arrow.StructOf(fields...)), put: put}
}

func isAtomic(v robj.Value) bool {
	switch v.(type) {
	case *robj.Integer, *robj.Double, *robj.Character, *robj.Logical:
		return true
	}
	return false
}

// missing reports whether row must be appended as null.
func missing(col robj.Value, row int) bool {
	return !isAtomic(col) || row >= col.Len() || elemNA(col, row)
}

func putInt(b array.Builder, col robj.Value, row int) error {
	if missing(col, row) {
		b.AppendNull()
		return nil
	}
	b.(*array.Int64Builder).Append(int64(elemInt(col, row)))
	return nil
}

func putFloat(b array.Builder, col robj.Value, row int) error {
	if missing(col, row) {
		b.AppendNull()
		return nil
	}
	b.(*array.Float64Builder).Append(elemFloat(col, row))
	return nil
}

func putString(b array.Builder, col robj.Value, row int) error {
	if missing(col, row) {
		b.AppendNull()
		return nil
	}
	b.(*array.StringBuilder).Append(elemString(col, row))
	return nil
}

func putBool(b array.Builder, col robj.Value, row int) error {
	if missing(col, row) {
		b.AppendNull()
		return nil
	}
	b.(*array.BooleanBuilder).Append(elemBool(col, row))
	return nil
}

func putDate(b array.Builder, col robj.Value, row int) error {
	if missing(col, row) {
		b.AppendNull()
		return nil
	}
	b.(*array.Date32Builder).Append(arrow.Date32(elemInt(col, row)))
	return nil
}

func putTimestamp(b array.Builder, col robj.Value, row int) error {
	if missing(col, row) {
		b.AppendNull()
		return nil
	}
	b.(*array.TimestampBuilder).Append(arrow.Timestamp(elemFloat(col, row) * 1e6))
	return nil
}

func putSummary(b array.Builder, col robj.Value, row int) error {
	sb := b.(*array.StringBuilder)
	switch x := col.(type) {
	case *robj.List:
		if row < len(x.Values) {
			sb.Append(robj.Format(x.Values[row]))
			return nil
		}
		sb.AppendNull()
	default:
		sb.Append(robj.Format(col))
	}
	return nil
}

func putGeometry(b array.Builder, col robj.Value, row int) error {
	if missing(col, row) {
		b.AppendNull()
		return nil
	}
	c, ok := col.(*robj.Character)
	if !ok {
		return fmt.Errorf("geometry column must hold WKT text, got %s", robj.TypeName(col))
	}
	wkb, err := WKTToWKB(c.Values[row])
	if err != nil {
		return err
	}
	storage := b
	if eb, ok := b.(*array.ExtensionBuilder); ok {
		storage = eb.Builder
	}
	storage.(*array.BinaryBuilder).Append(wkb)
	return nil
}
