package msgpack

import (
	"fmt"
	"sort"

	"github.com/hugr-lab/sits-go/robj"
)

// Value kinds on the wire.
const (
	KindNull       = "null"
	KindLogical    = "logical"
	KindInteger    = "integer"
	KindDouble     = "double"
	KindCharacter  = "character"
	KindRaw        = "raw"
	KindList       = "list"
	KindClosure    = "closure"
	KindExpression = "expression"
	KindRef        = "ref"
)

// Value is the wire form of a foreign value.
type Value struct {
	Kind     string     `msgpack:"k"`
	Names    []string   `msgpack:"n,omitempty"`
	Class    []string   `msgpack:"c,omitempty"`
	Dim      []int      `msgpack:"d,omitempty"`
	DimNames [][]string `msgpack:"dn,omitempty"`
	Extra    []Attr     `msgpack:"x,omitempty"`
	NA       []bool     `msgpack:"na,omitempty"`

	Bools   []bool    `msgpack:"lgl,omitempty"`
	Ints    []int     `msgpack:"int,omitempty"`
	Doubles []float64 `msgpack:"dbl,omitempty"`
	Strings []string  `msgpack:"chr,omitempty"`
	Bytes   []byte    `msgpack:"raw,omitempty"`
	Items   []*Value  `msgpack:"items,omitempty"`

	// Name, ID and Source are used by closures, refs and expressions.
	Name   string `msgpack:"name,omitempty"`
	ID     string `msgpack:"id,omitempty"`
	Source string `msgpack:"src,omitempty"`
}

// Attr is an extra attribute. Attributes travel as a list to keep their order
// stable.
type Attr struct {
	Name  string `msgpack:"n"`
	Value *Value `msgpack:"v"`
}

// ExportFunc returns the wire ID of a closure or ref. object is the
// in-process object it holds, if any.
type ExportFunc func(id string, object any) string

// ResolveFunc returns the in-process object for a wire ID, if any.
type ResolveFunc func(id string) any

// FromValue converts v to its wire form. export may be nil.
func FromValue(v robj.Value, export ExportFunc) (*Value, error) {
	if v == nil {
		return &Value{Kind: KindNull}, nil
	}
	w := &Value{}
	a := v.Attrs()
	w.Names, w.Class, w.Dim, w.DimNames = a.Names, a.Class, a.Dim, a.DimNames
	for _, name := range sortedAttrNames(a.Extra) {
		ev, err := FromValue(a.Extra[name], export)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		w.Extra = append(w.Extra, Attr{Name: name, Value: ev})
	}

	switch x := v.(type) {
	case *robj.Null:
		w.Kind = KindNull
	case *robj.Logical:
		w.Kind, w.Bools, w.NA = KindLogical, x.Values, x.NA
	case *robj.Integer:
		w.Kind, w.Ints, w.NA = KindInteger, x.Values, x.NA
	case *robj.Double:
		w.Kind, w.Doubles, w.NA = KindDouble, x.Values, x.NA
	case *robj.Character:
		w.Kind, w.Strings, w.NA = KindCharacter, x.Values, x.NA
	case *robj.Raw:
		w.Kind, w.Bytes = KindRaw, x.Bytes
	case *robj.List:
		w.Kind = KindList
		w.Items = make([]*Value, len(x.Values))
		for i, item := range x.Values {
			iv, err := FromValue(item, export)
			if err != nil {
				return nil, fmt.Errorf("list item %d: %w", i, err)
			}
			w.Items[i] = iv
		}
	case *robj.Closure:
		w.Kind, w.Name, w.ID = KindClosure, x.Name, exportID(export, x.ID, x.Object)
	case *robj.Ref:
		w.Kind, w.ID = KindRef, exportID(export, x.ID, x.Object)
	case *robj.Expression:
		w.Kind, w.Source = KindExpression, x.Source
	default:
		return nil, fmt.Errorf("unsupported foreign value %T", v)
	}
	return w, nil
}

// ToValue converts the wire form back. resolve may be nil.
func (w *Value) ToValue(resolve ResolveFunc) (robj.Value, error) {
	if w == nil {
		return robj.NewNull(), nil
	}
	var v robj.Value
	switch w.Kind {
	case KindNull:
		v = robj.NewNull()
	case KindLogical:
		v = &robj.Logical{Values: orEmpty(w.Bools), NA: w.NA}
	case KindInteger:
		v = &robj.Integer{Values: orEmpty(w.Ints), NA: w.NA}
	case KindDouble:
		v = &robj.Double{Values: orEmpty(w.Doubles), NA: w.NA}
	case KindCharacter:
		v = &robj.Character{Values: orEmpty(w.Strings), NA: w.NA}
	case KindRaw:
		v = robj.NewRaw(orEmpty(w.Bytes))
	case KindList:
		l := &robj.List{Values: make([]robj.Value, len(w.Items))}
		for i, item := range w.Items {
			iv, err := item.ToValue(resolve)
			if err != nil {
				return nil, fmt.Errorf("list item %d: %w", i, err)
			}
			l.Values[i] = iv
		}
		v = l
	case KindClosure:
		v = &robj.Closure{Name: w.Name, ID: w.ID, Object: resolveID(resolve, w.ID)}
	case KindRef:
		v = &robj.Ref{ID: w.ID, Object: resolveID(resolve, w.ID)}
	case KindExpression:
		v = robj.NewExpression(w.Source)
	default:
		return nil, fmt.Errorf("unknown value kind %q", w.Kind)
	}

	a := v.Attrs()
	a.Names, a.Class, a.Dim, a.DimNames = w.Names, w.Class, w.Dim, w.DimNames
	for _, attr := range w.Extra {
		av, err := attr.Value.ToValue(resolve)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", attr.Name, err)
		}
		a.SetAttr(attr.Name, av)
	}
	return v, nil
}

func exportID(export ExportFunc, id string, object any) string {
	if export == nil {
		return id
	}
	return export(id, object)
}

func resolveID(resolve ResolveFunc, id string) any {
	if resolve == nil || id == "" {
		return nil
	}
	return resolve(id)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func sortedAttrNames(m map[string]robj.Value) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
