package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hugr-lab/sits-go/robj"
)

// AsType selects the element conversion applied by Decode.
type AsType string

const (
	AsNone   AsType = ""
	AsString AsType = "str"
	AsDate   AsType = "date"
	AsInt    AsType = "int"
	AsFloat  AsType = "float"
	AsBool   AsType = "bool"
)

// DateLayout is the text form of decoded dates.
const DateLayout = "2006-01-02"

var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Decode converts a foreign value into a flat Go sequence.
//
// Lists decode into one single-key map per entry ({name: decoded entry}), in
// entry order; unnamed entries are keyed by position ("0", "1", ...). Atomic
// vectors decode elementwise with the conversion selected by as. AsNone, an
// unknown as, or a value that is neither a vector nor a list yield an empty
// sequence. Use the strict helpers (Strings, Ints, ...) to get an error
// instead.
func Decode(v robj.Value, as AsType) []any {
	if !knownAs(as) {
		return []any{}
	}
	switch x := v.(type) {
	case *robj.List:
		out := make([]any, len(x.Values))
		for i, elem := range x.Values {
			name := strconv.Itoa(i)
			if i < len(x.Names) && x.Names[i] != "" {
				name = x.Names[i]
			}
			out[i] = map[string]any{name: Decode(elem, as)}
		}
		return out
	case *robj.Integer, *robj.Double, *robj.Character, *robj.Logical:
		n := v.Len()
		out := make([]any, n)
		for i := range n {
			out[i] = decodeElem(v, i, as)
		}
		return out
	}
	return []any{}
}

func knownAs(as AsType) bool {
	switch as {
	case AsString, AsDate, AsInt, AsFloat, AsBool:
		return true
	}
	return false
}

func decodeElem(v robj.Value, i int, as AsType) any {
	switch as {
	case AsString:
		return elemString(v, i)
	case AsDate:
		return elemDate(v, i)
	case AsInt:
		return elemInt(v, i)
	case AsFloat:
		return elemFloat(v, i)
	case AsBool:
		return elemBool(v, i)
	}
	return nil
}

func elemNA(v robj.Value, i int) bool {
	switch x := v.(type) {
	case *robj.Integer:
		return x.IsNA(i)
	case *robj.Double:
		return x.IsNA(i)
	case *robj.Character:
		return x.IsNA(i)
	case *robj.Logical:
		return x.IsNA(i)
	}
	return false
}

func elemString(v robj.Value, i int) string {
	if elemNA(v, i) {
		return "NA"
	}
	switch x := v.(type) {
	case *robj.Character:
		return x.Values[i]
	case *robj.Integer:
		// factors carry their labels in the levels attribute
		if levels, ok := x.Attr("levels").(*robj.Character); ok && robj.Inherits(x, "factor") {
			if k := x.Values[i] - 1; k >= 0 && k < len(levels.Values) {
				return levels.Values[k]
			}
		}
		return strconv.Itoa(x.Values[i])
	case *robj.Double:
		if robj.Inherits(x, "Date") {
			return elemDate(v, i)
		}
		return robj.FormatDouble(x.Values[i])
	case *robj.Logical:
		if x.Values[i] {
			return "TRUE"
		}
		return "FALSE"
	}
	return ""
}

func elemDate(v robj.Value, i int) string {
	if elemNA(v, i) {
		return "NA"
	}
	switch x := v.(type) {
	case *robj.Integer:
		return epoch.AddDate(0, 0, x.Values[i]).Format(DateLayout)
	case *robj.Double:
		return epoch.AddDate(0, 0, int(math.Floor(x.Values[i]))).Format(DateLayout)
	case *robj.Character:
		return x.Values[i]
	}
	return "NA"
}

func elemInt(v robj.Value, i int) int {
	if elemNA(v, i) {
		return 0
	}
	switch x := v.(type) {
	case *robj.Integer:
		return x.Values[i]
	case *robj.Double:
		return int(x.Values[i])
	case *robj.Logical:
		if x.Values[i] {
			return 1
		}
		return 0
	case *robj.Character:
		n, _ := strconv.Atoi(strings.TrimSpace(x.Values[i]))
		return n
	}
	return 0
}

func elemFloat(v robj.Value, i int) float64 {
	if elemNA(v, i) {
		return math.NaN()
	}
	switch x := v.(type) {
	case *robj.Integer:
		return float64(x.Values[i])
	case *robj.Double:
		return x.Values[i]
	case *robj.Logical:
		if x.Values[i] {
			return 1
		}
		return 0
	case *robj.Character:
		f, err := strconv.ParseFloat(strings.TrimSpace(x.Values[i]), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

func elemBool(v robj.Value, i int) bool {
	if elemNA(v, i) {
		return false
	}
	switch x := v.(type) {
	case *robj.Logical:
		return x.Values[i]
	case *robj.Integer:
		return x.Values[i] != 0
	case *robj.Double:
		return x.Values[i] != 0
	case *robj.Character:
		switch x.Values[i] {
		case "TRUE", "true", "T", "True":
			return true
		}
	}
	return false
}

// Entry is one element of a named vector.
type Entry struct {
	Name  string
	Value any
}

// DecodeNamed decodes a named atomic vector into entries in element order.
// Element values use the vector's natural type: string, int, float64, bool,
// or a date string for Date vectors.
func DecodeNamed(v robj.Value) ([]Entry, error) {
	as, err := naturalAs(v)
	if err != nil {
		return nil, err
	}
	names := v.Attrs().Names
	out := make([]Entry, v.Len())
	for i := range out {
		if i < len(names) {
			out[i].Name = names[i]
		}
		out[i].Value = decodeElem(v, i, as)
	}
	return out, nil
}

func naturalAs(v robj.Value) (AsType, error) {
	switch x := v.(type) {
	case *robj.Character:
		return AsString, nil
	case *robj.Integer:
		if robj.Inherits(x, "factor") {
			return AsString, nil
		}
		return AsInt, nil
	case *robj.Double:
		if robj.Inherits(x, "Date") {
			return AsDate, nil
		}
		return AsFloat, nil
	case *robj.Logical:
		return AsBool, nil
	}
	return AsNone, undecodable(v, "an atomic vector")
}

func undecodable(v robj.Value, want string) error {
	got := "nil"
	if v != nil {
		got = robj.TypeName(v)
	}
	return fmt.Errorf("%w: expected %s, got %s", ErrUndecodable, want, got)
}

func atomic(v robj.Value) error {
	switch v.(type) {
	case *robj.Integer, *robj.Double, *robj.Character, *robj.Logical:
		return nil
	case *robj.Null:
		return nil
	}
	return undecodable(v, "an atomic vector")
}

func decodeStrict[T any](v robj.Value, elem func(robj.Value, int) T) ([]T, error) {
	if err := atomic(v); err != nil {
		return nil, err
	}
	out := make([]T, v.Len())
	for i := range out {
		out[i] = elem(v, i)
	}
	return out, nil
}

// Strings decodes an atomic vector as strings. NULL yields an empty slice.
func Strings(v robj.Value) ([]string, error) {
	return decodeStrict(v, elemString)
}

// Ints decodes an atomic vector as ints.
func Ints(v robj.Value) ([]int, error) {
	return decodeStrict(v, elemInt)
}

// Floats decodes an atomic vector as float64; NA becomes NaN.
func Floats(v robj.Value) ([]float64, error) {
	return decodeStrict(v, elemFloat)
}

// Bools decodes an atomic vector as bools.
func Bools(v robj.Value) ([]bool, error) {
	return decodeStrict(v, elemBool)
}

// Dates decodes a vector of day offsets (or date strings) as UTC dates.
func Dates(v robj.Value) ([]time.Time, error) {
	s, err := decodeStrict(v, elemDate)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(s))
	for i, d := range s {
		if d == "NA" {
			continue
		}
		t, err := time.Parse(DateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrUndecodable, i, err)
		}
		out[i] = t
	}
	return out, nil
}
