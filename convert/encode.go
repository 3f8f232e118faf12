// Package convert moves values across the host/runtime boundary.
//
// The Encoder turns Go values into robj values: scalars, slices, sets, maps,
// Arrow records (as data frames) and wrapper objects (as their retained
// handle). Decode and the strict helpers turn robj values back into Go
// values, and DecodeTable materializes a foreign data frame as an Arrow
// record.
package convert

import (
	"log/slog"
	"math"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hugr-lab/sits-go/robj"
)

// HandleOwner is implemented by values that retain the foreign value they
// were built from. The encoder passes that handle through unchanged.
type HandleOwner interface {
	ForeignHandle() robj.Value
}

// RecordOwner is implemented by values holding a local Arrow copy.
// Used when a HandleOwner has no handle.
type RecordOwner interface {
	Record() arrow.RecordBatch
}

// Encoder converts host values into foreign values.
// An Encoder is safe for concurrent use.
type Encoder struct {
	logger *slog.Logger
	warn   WarnFunc
	alloc  memory.Allocator
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger sets the logger used for the default warning handler.
func WithLogger(l *slog.Logger) Option {
	return func(e *Encoder) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWarnFunc sets the handler receiving non-fatal warnings.
func WithWarnFunc(fn WarnFunc) Option {
	return func(e *Encoder) { e.warn = fn }
}

// WithAllocator sets the allocator used when records are materialized.
func WithAllocator(mem memory.Allocator) Option {
	return func(e *Encoder) {
		if mem != nil {
			e.alloc = mem
		}
	}
}

// NewEncoder creates an Encoder.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		logger: slog.Default(),
		alloc:  memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.warn == nil {
		logger := e.logger
		e.warn = func(w Warning) {
			logger.Warn(w.Message, "columns", w.Columns)
		}
	}
	return e
}

// Allocator returns the encoder's Arrow allocator.
func (e *Encoder) Allocator() memory.Allocator { return e.alloc }

var defaultEncoder = NewEncoder()

// Encode converts v with a default Encoder.
func Encode(v any) (robj.Value, error) {
	return defaultEncoder.Encode(v)
}

type encodeFunc func(e *Encoder, v any) (robj.Value, error)

// conversions maps exact Go types to their encoder. Slices, arrays and maps
// of other types fall back to encodeKind; other named types are not
// converted.
var conversions map[reflect.Type]encodeFunc

func init() {
	conversions = map[reflect.Type]encodeFunc{
		reflect.TypeFor[bool]():    func(_ *Encoder, v any) (robj.Value, error) { return robj.NewLogical(v.(bool)), nil },
		reflect.TypeFor[int]():     encodeInt,
		reflect.TypeFor[int8]():    encodeInt,
		reflect.TypeFor[int16]():   encodeInt,
		reflect.TypeFor[int32]():   encodeInt,
		reflect.TypeFor[int64]():   encodeInt,
		reflect.TypeFor[uint]():    encodeInt,
		reflect.TypeFor[uint8]():   encodeInt,
		reflect.TypeFor[uint16]():  encodeInt,
		reflect.TypeFor[uint32]():  encodeInt,
		reflect.TypeFor[uint64]():  encodeInt,
		reflect.TypeFor[float32](): encodeFloat,
		reflect.TypeFor[float64](): encodeFloat,
		reflect.TypeFor[string]():  func(_ *Encoder, v any) (robj.Value, error) { return robj.NewCharacter(v.(string)), nil },
		reflect.TypeFor[Path]():    func(_ *Encoder, v any) (robj.Value, error) { return robj.NewCharacter(v.(Path).String()), nil },
		reflect.TypeFor[time.Time](): func(_ *Encoder, v any) (robj.Value, error) {
			return NewDate(v.(time.Time)), nil
		},

		reflect.TypeFor[[]any]():     func(e *Encoder, v any) (robj.Value, error) { return e.encodeList(v.([]any)) },
		reflect.TypeFor[[]int]():     encodeSlice[int],
		reflect.TypeFor[[]int64]():   encodeSlice[int64],
		reflect.TypeFor[[]float64](): encodeSlice[float64],
		reflect.TypeFor[[]string]():  encodeSlice[string],
		reflect.TypeFor[[]bool]():    encodeSlice[bool],

		reflect.TypeFor[map[string]struct{}](): encodeSet[string],
		reflect.TypeFor[map[int]struct{}]():    encodeSet[int],

		reflect.TypeFor[map[string]any](): func(e *Encoder, v any) (robj.Value, error) {
			m := v.(map[string]any)
			keys := sortedKeys(m)
			vals := make([]any, len(keys))
			for i, k := range keys {
				vals[i] = m[k]
			}
			return e.encodeMapping(keys, vals)
		},
		reflect.TypeFor[map[string]string](): func(e *Encoder, v any) (robj.Value, error) {
			m := v.(map[string]string)
			keys := sortedKeys(m)
			vals := make([]any, len(keys))
			for i, k := range keys {
				vals[i] = m[k]
			}
			return e.encodeMapping(keys, vals)
		},
		reflect.TypeFor[*Dict](): func(e *Encoder, v any) (robj.Value, error) {
			d := v.(*Dict)
			vals := make([]any, len(d.keys))
			for i, k := range d.keys {
				vals[i] = d.values[k]
			}
			return e.encodeMapping(d.Keys(), vals)
		},
	}
}

// Encode converts a host value into a foreign value.
//
// Resolution order: nil, wrapper objects (their retained handle), values that
// already are foreign values, Arrow records (see EncodeTable), an exact type
// lookup, then slices, arrays and maps by kind. Unknown types fail with a
// *TypeError.
func (e *Encoder) Encode(v any) (robj.Value, error) {
	if isNil(v) {
		return robj.NewNull(), nil
	}
	if h, ok := v.(HandleOwner); ok {
		if handle := h.ForeignHandle(); handle != nil {
			return handle, nil
		}
		if r, ok := v.(RecordOwner); ok && r.Record() != nil {
			return e.EncodeTable(r.Record())
		}
	}
	switch x := v.(type) {
	case robj.Value:
		return x, nil
	case arrow.RecordBatch:
		return e.EncodeTable(x)
	}
	if fn, ok := conversions[reflect.TypeOf(v)]; ok {
		return fn(e, v)
	}
	return e.encodeKind(reflect.ValueOf(v))
}

// encodeKind encodes slices and arrays with the list rules, maps with empty
// struct values as sets and maps with string keys as mappings sorted by key.
// Elements go through Encode, so unsupported element types still fail.
func (e *Encoder) encodeKind(rv reflect.Value) (robj.Value, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return e.encodeList(items)
	case reflect.Map:
		t := rv.Type()
		if t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0 {
			items := make([]any, 0, rv.Len())
			for _, k := range rv.MapKeys() {
				items = append(items, k.Interface())
			}
			return e.encodeList(items)
		}
		if t.Key().Kind() != reflect.String {
			break
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		vals := make([]any, len(keys))
		for i, k := range keys {
			vals[i] = rv.MapIndex(reflect.ValueOf(k).Convert(t.Key())).Interface()
		}
		return e.encodeMapping(keys, vals)
	}
	return nil, &TypeError{Type: rv.Type().String()}
}

// NewDate builds a Date-classed double holding the day offset of t's
// calendar date since 1970-01-01.
func NewDate(dates ...time.Time) *robj.Double {
	d := robj.NewDouble(make([]float64, len(dates))...)
	for i, t := range dates {
		d.Values[i] = float64(daysSinceEpoch(t))
	}
	d.Class = []string{"Date"}
	return d
}

func daysSinceEpoch(t time.Time) int64 {
	y, m, day := t.Date()
	u := time.Date(y, m, day, 0, 0, 0, 0, time.UTC).Unix()
	return int64(math.Floor(float64(u) / 86400))
}

func encodeInt(_ *Encoder, v any) (robj.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.CanInt() {
		return robj.NewInteger(int(rv.Int())), nil
	}
	return robj.NewInteger(int(rv.Uint())), nil
}

func encodeFloat(_ *Encoder, v any) (robj.Value, error) {
	return robj.NewDouble(reflect.ValueOf(v).Float()), nil
}

func encodeSlice[T any](e *Encoder, v any) (robj.Value, error) {
	s := v.([]T)
	items := make([]any, len(s))
	for i, x := range s {
		items[i] = x
	}
	return e.encodeList(items)
}

// encodeSet encodes set members in map iteration order, which is not stable.
func encodeSet[T comparable](e *Encoder, v any) (robj.Value, error) {
	m := v.(map[T]struct{})
	items := make([]any, 0, len(m))
	for k := range m {
		items = append(items, k)
	}
	return e.encodeList(items)
}

// encodeList applies the homogeneous vector rules in priority order:
// integer, double (numbers with at least one float), character, logical.
// Anything else becomes a list named by position.
func (e *Encoder) encodeList(items []any) (robj.Value, error) {
	switch {
	case all(items, isInt):
		out := make([]int, len(items))
		for i, x := range items {
			out[i] = int(toInt64(x))
		}
		return robj.NewInteger(out...), nil
	case all(items, isNumber):
		out := make([]float64, len(items))
		for i, x := range items {
			if isInt(x) {
				out[i] = float64(toInt64(x))
			} else {
				out[i] = reflect.ValueOf(x).Float()
			}
		}
		return robj.NewDouble(out...), nil
	case all(items, isString):
		out := make([]string, len(items))
		for i, x := range items {
			out[i] = x.(string)
		}
		return robj.NewCharacter(out...), nil
	case all(items, isBool):
		out := make([]bool, len(items))
		for i, x := range items {
			out[i] = x.(bool)
		}
		return robj.NewLogical(out...), nil
	}

	names := make([]string, len(items))
	values := make([]robj.Value, len(items))
	for i, x := range items {
		v, err := e.Encode(x)
		if err != nil {
			return nil, err
		}
		names[i] = strconv.Itoa(i)
		values[i] = v
	}
	return robj.NewNamedList(names, values), nil
}

// encodeMapping encodes an ordered mapping: a named character vector when
// every value is a string, otherwise a named list.
func (e *Encoder) encodeMapping(keys []string, vals []any) (robj.Value, error) {
	if all(vals, isString) {
		out := make([]string, len(vals))
		for i, x := range vals {
			out[i] = x.(string)
		}
		c := robj.NewCharacter(out...)
		if len(keys) > 0 {
			c.Names = keys
		}
		return c, nil
	}
	values := make([]robj.Value, len(vals))
	for i, x := range vals {
		v, err := e.Encode(x)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return robj.NewNamedList(keys, values), nil
}

func all(items []any, pred func(any) bool) bool {
	return !slices.ContainsFunc(items, func(x any) bool { return !pred(x) })
}

func isInt(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return isInt(v)
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func toInt64(v any) int64 {
	rv := reflect.ValueOf(v)
	if rv.CanInt() {
		return rv.Int()
	}
	return int64(rv.Uint())
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
