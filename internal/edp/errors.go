package edp

import (
	"errors"
	"fmt"
)

// ErrMalformedValue marks a cell that could not be parsed into its field type.
var ErrMalformedValue = errors.New("malformed value")

// FieldError reports a single unparseable field. The record carrying it is
// kept with the field set to null.
type FieldError struct {
	Row   int
	Field string
	Value any
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("edp: row %d field %s (%v): %v", e.Row, e.Field, e.Value, e.Err)
}

func (e FieldError) Unwrap() error {
	return e.Err
}
