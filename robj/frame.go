package robj

import (
	"fmt"
	"strconv"
	"strings"
)

// Data frame class sets.
var (
	TibbleClass = []string{"tbl_df", "tbl", "data.frame"}
	SFClass     = []string{"sf", "tbl_df", "tbl", "data.frame"}
)

// NewDataFrame builds a data frame from equally sized columns.
// When class is empty the frame is classed as a tibble.
func NewDataFrame(names []string, columns []Value, class ...string) (*List, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("data frame: %d names for %d columns", len(names), len(columns))
	}
	n := -1
	for i, c := range columns {
		if n >= 0 && c.Len() != n {
			return nil, fmt.Errorf("data frame: column %q has %d rows, want %d", names[i], c.Len(), n)
		}
		n = c.Len()
	}
	if n < 0 {
		n = 0
	}
	if len(class) == 0 {
		class = TibbleClass
	}
	df := NewNamedList(names, columns)
	df.Class = append([]string(nil), class...)
	SetRowCount(df, n)
	return df, nil
}

// SetRowCount sets the compact row.names attribute c(NA, -n).
func SetRowCount(v Value, n int) {
	v.Attrs().SetAttr("row.names", &Integer{Values: []int{0, -n}, NA: []bool{true, false}})
}

// IsDataFrame reports whether v is a list classed "data.frame".
func IsDataFrame(v Value) bool {
	_, ok := v.(*List)
	return ok && Class(v).Has("data.frame")
}

// NRow returns the number of rows of a data frame, or the length of any
// other value.
func NRow(v Value) int {
	if v == nil {
		return 0
	}
	l, ok := v.(*List)
	if !ok || !IsDataFrame(v) {
		return v.Len()
	}
	if len(l.Values) > 0 {
		return l.Values[0].Len()
	}
	switch rn := l.Attr("row.names").(type) {
	case *Integer:
		if len(rn.Values) == 2 && rn.IsNA(0) {
			if rn.Values[1] < 0 {
				return -rn.Values[1]
			}
			return rn.Values[1]
		}
		return rn.Len()
	case *Character:
		return rn.Len()
	}
	return 0
}

// Format returns a short human readable summary of v, e.g. "<list[3]>" or
// "<tbl_df 10x4>". Used when a value has no tabular rendering.
func Format(v Value) string {
	if v == nil {
		return "NULL"
	}
	if IsDataFrame(v) {
		return fmt.Sprintf("<%s %dx%d>", Class(v)[0], NRow(v), v.Len())
	}
	switch x := v.(type) {
	case *Null:
		return "NULL"
	case *Closure:
		if x.Name != "" {
			return "<function " + x.Name + ">"
		}
		return "<function>"
	case *Expression:
		return x.Source
	case *Ref:
		return "<" + Class(v)[0] + ">"
	case *Character:
		if x.Len() == 1 && !x.IsNA(0) {
			return x.Values[0]
		}
	case *Integer:
		if x.Len() == 1 && !x.IsNA(0) {
			return strconv.Itoa(x.Values[0])
		}
	case *Double:
		if x.Len() == 1 && !x.IsNA(0) {
			return FormatDouble(x.Values[0])
		}
	case *Logical:
		if x.Len() == 1 && !x.IsNA(0) {
			return strings.ToUpper(strconv.FormatBool(x.Values[0]))
		}
	}
	return fmt.Sprintf("<%s[%d]>", Class(v)[0], v.Len())
}
