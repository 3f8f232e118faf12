package robj

import (
	"reflect"
	"slices"
)

// TagSet is the ordered class-tag set of a foreign value.
type TagSet []string

// Has reports whether all given tags are present.
func (t TagSet) Has(tags ...string) bool {
	for _, tag := range tags {
		if !slices.Contains(t, tag) {
			return false
		}
	}
	return true
}

// Any reports whether at least one of the given tags is present.
func (t TagSet) Any(tags ...string) bool {
	for _, tag := range tags {
		if slices.Contains(t, tag) {
			return true
		}
	}
	return false
}

// Class returns the class-tag set of v: the explicit class attribute when
// present, otherwise the implicit class the runtime would report. Nil values,
// typed or not, are NULL.
func Class(v Value) TagSet {
	if IsNil(v) {
		return TagSet{"NULL"}
	}
	a := v.Attrs()
	if len(a.Class) > 0 {
		return TagSet(a.Class)
	}
	var tags TagSet
	switch len(a.Dim) {
	case 0:
	case 2:
		tags = append(tags, "matrix", "array")
	default:
		tags = append(tags, "array")
	}
	return append(tags, typeTag(v))
}

// IsNil reports whether v is nil or a nil pointer of a value type.
func IsNil(v Value) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Inherits reports whether v carries the class tag.
func Inherits(v Value, tag string) bool {
	return Class(v).Has(tag)
}

// TypeName returns the storage type name of v ("integer", "double", ...).
func TypeName(v Value) string {
	switch v.(type) {
	case *Double:
		return "double"
	case *Closure:
		return "closure"
	case *Expression:
		return "language"
	default:
		return typeTag(v)
	}
}

func typeTag(v Value) string {
	switch v.(type) {
	case *Null:
		return "NULL"
	case *Logical:
		return "logical"
	case *Integer:
		return "integer"
	case *Double:
		return "numeric"
	case *Character:
		return "character"
	case *Raw:
		return "raw"
	case *List:
		return "list"
	case *Closure:
		return "function"
	case *Expression:
		return "call"
	case *Ref:
		return "externalptr"
	default:
		return "unknown"
	}
}
