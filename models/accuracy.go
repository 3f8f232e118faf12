package models

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hugr-lab/sits-go/convert"
	"github.com/hugr-lab/sits-go/robj"
)

// ConfusionMatrix is a sample-based accuracy assessment (class
// "confusionMatrix"): the contingency table, overall statistics and
// per-class statistics.
type ConfusionMatrix struct {
	handle  *robj.List
	table   *Table
	overall *NamedVector
	byClass *Matrix
}

// NewConfusionMatrix converts a foreign confusion matrix.
func NewConfusionMatrix(v robj.Value, mem memory.Allocator) (*ConfusionMatrix, error) {
	l, err := accuracyList(v, "table")
	if err != nil {
		return nil, err
	}
	cm := &ConfusionMatrix{handle: l}
	if cm.table, err = NewTable(l.Get("table")); err != nil {
		return nil, fmt.Errorf("confusion matrix table: %w", err)
	}
	if o := l.Get("overall"); o != nil {
		if cm.overall, err = NewNamedVector(o, mem); err != nil {
			return nil, fmt.Errorf("confusion matrix overall: %w", err)
		}
	}
	if bc := l.Get("byClass"); bc != nil && len(bc.Attrs().Dim) > 0 {
		if cm.byClass, err = NewMatrix(bc); err != nil {
			return nil, fmt.Errorf("confusion matrix byClass: %w", err)
		}
	}
	return cm, nil
}

func (c *ConfusionMatrix) ForeignHandle() robj.Value { return c.handle }

// Table returns the prediction × reference counts.
func (c *ConfusionMatrix) Table() *Table { return c.table }

// Overall returns the overall statistics (Accuracy, Kappa, ...). May be nil.
func (c *ConfusionMatrix) Overall() *NamedVector { return c.overall }

// ByClass returns per-class statistics (Sensitivity, Specificity, ...). May be nil.
func (c *ConfusionMatrix) ByClass() *Matrix { return c.byClass }

// Accuracy returns the overall accuracy; ok is false when it is absent.
func (c *ConfusionMatrix) Accuracy() (float64, bool) {
	if c.overall == nil {
		return 0, false
	}
	return c.overall.Get("Accuracy")
}

// Release frees the local copies.
func (c *ConfusionMatrix) Release() {
	if c.overall != nil {
		c.overall.Release()
	}
}

// Accuracy is an area-weighted accuracy assessment (class
// "sits_area_accuracy").
type Accuracy struct {
	handle     *robj.List
	errors     *Table
	areaPixels *NamedVector
	user       *NamedVector
	producer   *NamedVector
	overall    float64
}

// NewAccuracy converts a foreign area accuracy assessment.
func NewAccuracy(v robj.Value, mem memory.Allocator) (*Accuracy, error) {
	l, err := accuracyList(v, "error_matrix")
	if err != nil {
		return nil, err
	}
	a := &Accuracy{handle: l}
	if a.errors, err = NewTable(l.Get("error_matrix")); err != nil {
		return nil, fmt.Errorf("area accuracy error_matrix: %w", err)
	}
	if ap := l.Get("area_pixels"); ap != nil {
		if a.areaPixels, err = NewNamedVector(ap, mem); err != nil {
			return nil, fmt.Errorf("area accuracy area_pixels: %w", err)
		}
	}
	if acc, ok := l.Get("accuracy").(*robj.List); ok {
		if u := acc.Get("user"); u != nil {
			if a.user, err = NewNamedVector(u, mem); err != nil {
				return nil, fmt.Errorf("area accuracy user: %w", err)
			}
		}
		if p := acc.Get("producer"); p != nil {
			if a.producer, err = NewNamedVector(p, mem); err != nil {
				return nil, fmt.Errorf("area accuracy producer: %w", err)
			}
		}
		if o := acc.Get("overall"); o != nil {
			vals, err := convert.Floats(o)
			if err != nil {
				return nil, fmt.Errorf("area accuracy overall: %w", err)
			}
			if len(vals) > 0 {
				a.overall = vals[0]
			}
		}
	}
	return a, nil
}

func (a *Accuracy) ForeignHandle() robj.Value { return a.handle }

// ErrorMatrix returns the map × reference pixel counts.
func (a *Accuracy) ErrorMatrix() *Table { return a.errors }

// AreaPixels returns the mapped area per class. May be nil.
func (a *Accuracy) AreaPixels() *NamedVector { return a.areaPixels }

// User returns user's accuracy per class. May be nil.
func (a *Accuracy) User() *NamedVector { return a.user }

// Producer returns producer's accuracy per class. May be nil.
func (a *Accuracy) Producer() *NamedVector { return a.producer }

// Overall returns the overall accuracy.
func (a *Accuracy) Overall() float64 { return a.overall }

// Release frees the local copies.
func (a *Accuracy) Release() {
	for _, nv := range []*NamedVector{a.areaPixels, a.user, a.producer} {
		if nv != nil {
			nv.Release()
		}
	}
}

func accuracyList(v robj.Value, required string) (*robj.List, error) {
	l, ok := v.(*robj.List)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list, got %s", convert.ErrUndecodable, robj.TypeName(v))
	}
	if l.Get(required) == nil {
		return nil, fmt.Errorf("%w: missing %q entry", convert.ErrUndecodable, required)
	}
	return l, nil
}
