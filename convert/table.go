package convert

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/hugr-lab/sits-go/robj"
)

// EncodeTable converts an Arrow record into a foreign data frame.
//
// Plain columns convert losslessly and nulls become NA. Columns holding
// embedded tables (lists of structs) or any other kind without a foreign
// counterpart are dropped, and a single Warning naming all of them is
// emitted. Geometry columns are sent as WKT and turn the frame into an sf
// frame; each geometry column must carry a spatial reference or the call
// fails with ErrMissingCRS.
func (e *Encoder) EncodeTable(rec arrow.RecordBatch) (robj.Value, error) {
	schema := rec.Schema()
	var (
		names   []string
		columns []robj.Value
		dropped []string
		sfCol   string
		sfCRS   string
	)

	for i, f := range schema.Fields() {
		col := rec.Column(i)
		if IsGeometryField(f) {
			crs, ok := FieldCRS(f, schema)
			if !ok {
				return nil, fmt.Errorf("column %q: %w", f.Name, ErrMissingCRS)
			}
			v, err := encodeGeometryColumn(col)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", f.Name, err)
			}
			if sfCol == "" {
				sfCol, sfCRS = f.Name, crs
			}
			names = append(names, f.Name)
			columns = append(columns, v)
			continue
		}
		v, ok := encodeColumn(col)
		if !ok {
			dropped = append(dropped, f.Name)
			continue
		}
		names = append(names, f.Name)
		columns = append(columns, v)
	}

	if len(dropped) > 0 {
		e.warn(Warning{
			Message: "columns dropped: embedded tables and unsupported column types cannot be sent",
			Columns: dropped,
		})
	}

	class := robj.TibbleClass
	if sfCol != "" {
		class = robj.SFClass
	}
	df, err := robj.NewDataFrame(names, columns, class...)
	if err != nil {
		return nil, err
	}
	robj.SetRowCount(df, int(rec.NumRows()))
	if sfCol != "" {
		df.SetAttr("sf_column", robj.NewCharacter(sfCol))
		df.SetAttr("crs", robj.NewCharacter(sfCRS))
	}
	return df, nil
}

// encodeColumn converts a plain Arrow column. ok is false for column kinds
// without a foreign counterpart.
func encodeColumn(col arrow.Array) (robj.Value, bool) {
	n := col.Len()
	na := nullMask(col)
	switch a := col.(type) {
	case *array.Int8, *array.Int16, *array.Int32, *array.Int64,
		*array.Uint8, *array.Uint16, *array.Uint32, *array.Uint64:
		out := make([]int, n)
		for i := range n {
			if col.IsValid(i) {
				out[i] = int(intAt(a, i))
			}
		}
		return &robj.Integer{Values: out, NA: na}, true
	case *array.Float32:
		out := make([]float64, n)
		for i := range n {
			out[i] = float64(a.Value(i))
		}
		return &robj.Double{Values: out, NA: na}, true
	case *array.Float64:
		out := make([]float64, n)
		copy(out, a.Float64Values())
		return &robj.Double{Values: out, NA: na}, true
	case *array.String:
		out := make([]string, n)
		for i := range n {
			out[i] = a.Value(i)
		}
		return &robj.Character{Values: out, NA: na}, true
	case *array.LargeString:
		out := make([]string, n)
		for i := range n {
			out[i] = a.Value(i)
		}
		return &robj.Character{Values: out, NA: na}, true
	case *array.Boolean:
		out := make([]bool, n)
		for i := range n {
			out[i] = a.Value(i)
		}
		return &robj.Logical{Values: out, NA: na}, true
	case *array.Date32:
		out := make([]float64, n)
		for i := range n {
			out[i] = float64(a.Value(i))
		}
		return dateColumn(out, na), true
	case *array.Date64:
		out := make([]float64, n)
		for i := range n {
			out[i] = float64(int64(a.Value(i)) / int64(24*time.Hour/time.Millisecond))
		}
		return dateColumn(out, na), true
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType)
		toTime, err := unit.GetToTimeFunc()
		if err != nil {
			return nil, false
		}
		out := make([]float64, n)
		for i := range n {
			if col.IsValid(i) {
				t := toTime(a.Value(i))
				out[i] = float64(t.UnixNano()) / 1e9
			}
		}
		v := &robj.Double{Values: out, NA: na}
		v.Class = []string{"POSIXct", "POSIXt"}
		tz := unit.TimeZone
		if tz == "" {
			tz = "UTC"
		}
		v.SetAttr("tzone", robj.NewCharacter(tz))
		return v, true
	}
	return nil, false
}

func intAt(a arrow.Array, i int) int64 {
	switch x := a.(type) {
	case *array.Int8:
		return int64(x.Value(i))
	case *array.Int16:
		return int64(x.Value(i))
	case *array.Int32:
		return int64(x.Value(i))
	case *array.Int64:
		return x.Value(i)
	case *array.Uint8:
		return int64(x.Value(i))
	case *array.Uint16:
		return int64(x.Value(i))
	case *array.Uint32:
		return int64(x.Value(i))
	case *array.Uint64:
		return int64(x.Value(i))
	}
	return 0
}

func dateColumn(days []float64, na []bool) *robj.Double {
	v := &robj.Double{Values: days, NA: na}
	v.Class = []string{"Date"}
	return v
}

func encodeGeometryColumn(col arrow.Array) (robj.Value, error) {
	if ext, ok := col.(array.ExtensionArray); ok {
		col = ext.Storage()
	}
	n := col.Len()
	out := make([]string, n)
	na := nullMask(col)
	for i := range n {
		if !col.IsValid(i) {
			continue
		}
		var b []byte
		switch a := col.(type) {
		case *array.Binary:
			b = a.Value(i)
		case *array.LargeBinary:
			b = a.Value(i)
		default:
			return nil, fmt.Errorf("geometry storage %s is not binary", col.DataType())
		}
		s, err := WKBToWKT(b)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = s
	}
	return &robj.Character{Values: out, NA: na}, nil
}

func nullMask(col arrow.Array) []bool {
	if col.NullN() == 0 {
		return nil
	}
	na := make([]bool, col.Len())
	for i := range na {
		na[i] = col.IsNull(i)
	}
	return na
}
