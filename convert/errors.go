package convert

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedType is returned when a host value has no foreign representation.
	ErrUnsupportedType = errors.New("unsupported host type")

	// ErrValidation is the base error for inputs rejected before any foreign call.
	ErrValidation = errors.New("validation failed")

	// ErrMissingCRS is returned when a geometry column has no spatial reference.
	ErrMissingCRS = fmt.Errorf("%w: geometry column requires a spatial reference", ErrValidation)

	// ErrUndecodable is returned by the strict decode helpers for values of the wrong shape.
	ErrUndecodable = errors.New("value cannot be decoded")
)

// TypeError reports a host value whose type the encoder does not know.
type TypeError struct {
	Type string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("cannot convert object of type %s to a foreign value", e.Type)
}

func (e *TypeError) Unwrap() error {
	return ErrUnsupportedType
}

// Warning is a non-fatal conversion notice. The table encoder emits one
// warning per table listing every column it had to drop.
type Warning struct {
	Message string
	Columns []string
}

func (w Warning) String() string {
	if len(w.Columns) == 0 {
		return w.Message
	}
	return w.Message + ": " + strings.Join(w.Columns, ", ")
}

// WarnFunc receives non-fatal conversion warnings.
type WarnFunc func(Warning)
