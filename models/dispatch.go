package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hugr-lab/sits-go/robj"
)

// ErrUnsupportedObject is returned when no dispatch rule matches a value.
var ErrUnsupportedObject = errors.New("unsupported foreign object: only sits objects are supported")

// UnsupportedObjectError reports the class tags of a value no rule matched.
type UnsupportedObjectError struct {
	Tags []string
}

func (e *UnsupportedObjectError) Error() string {
	return fmt.Sprintf("%v (class: %s)", ErrUnsupportedObject, strings.Join(e.Tags, ", "))
}

func (e *UnsupportedObjectError) Unwrap() error {
	return ErrUnsupportedObject
}

// Constructor builds a wrapper from a foreign value.
type Constructor func(v robj.Value, mem memory.Allocator) (Object, error)

// Rule maps a class-tag predicate to a constructor.
type Rule struct {
	Name  string
	Match func(tags robj.TagSet) bool
	New   Constructor
}

func has(tags ...string) func(robj.TagSet) bool {
	return func(t robj.TagSet) bool { return t.Has(tags...) }
}

func construct[W Object](fn func(robj.Value, memory.Allocator) (W, error)) Constructor {
	return func(v robj.Value, mem memory.Allocator) (Object, error) {
		w, err := fn(v, mem)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}

// DataRules select the wrapper of data results. Order is priority: the first
// matching rule wins.
var DataRules = []Rule{
	{Name: "time series classification", Match: has("predicted", "sits"), New: construct(NewTimeSeriesClassification)},
	{Name: "time series", Match: has("sits"), New: construct(NewTimeSeries)},
	{Name: "cube", Match: has("raster_cube"), New: construct(NewCube)},
	{Name: "time series sf", Match: has("sf", "tbl_df"), New: construct(NewTimeSeriesSF)},
	{Name: "sf frame", Match: has("sf"), New: construct(NewFrameSF)},
	{Name: "frame", Match: has("tbl_df"), New: construct(NewFrame)},
}

// AccuracyRules select the wrapper of accuracy assessments.
var AccuracyRules = []Rule{
	{Name: "confusion matrix", Match: has("confusionMatrix"), New: construct(NewConfusionMatrix)},
	{Name: "area accuracy", Match: has("sits_area_accuracy"), New: construct(NewAccuracy)},
}

// RDSRules select the wrapper of objects read from serialized files.
var RDSRules = []Rule{
	{Name: "time series", Match: has("sits"), New: construct(NewTimeSeries)},
	{Name: "cube", Match: has("raster_cube"), New: construct(NewCube)},
}

// SelectFrom returns the constructor of the first rule matching v.
func SelectFrom(rules []Rule, v robj.Value) (Constructor, error) {
	tags := robj.Class(v)
	for _, r := range rules {
		if r.Match(tags) {
			return r.New, nil
		}
	}
	return nil, &UnsupportedObjectError{Tags: append([]string(nil), tags...)}
}

// ResolveFrom selects a rule for v and builds the wrapper.
func ResolveFrom(rules []Rule, v robj.Value, mem memory.Allocator) (Object, error) {
	ctor, err := SelectFrom(rules, v)
	if err != nil {
		return nil, err
	}
	return ctor(v, mem)
}

// Select returns the data wrapper constructor for v.
func Select(v robj.Value) (Constructor, error) { return SelectFrom(DataRules, v) }

// SelectAccuracy returns the accuracy wrapper constructor for v.
func SelectAccuracy(v robj.Value) (Constructor, error) { return SelectFrom(AccuracyRules, v) }

// Resolve wraps a data result.
func Resolve(v robj.Value, mem memory.Allocator) (Object, error) {
	return ResolveFrom(DataRules, v, mem)
}

// ResolveAccuracy wraps an accuracy assessment.
func ResolveAccuracy(v robj.Value, mem memory.Allocator) (Object, error) {
	return ResolveFrom(AccuracyRules, v, mem)
}

// ResolveRDS wraps an object read from a serialized file.
func ResolveRDS(v robj.Value, mem memory.Allocator) (Object, error) {
	return ResolveFrom(RDSRules, v, mem)
}
