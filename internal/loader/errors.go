package loader

import (
	"fmt"

	"github.com/pkg/errors"
)

// Projection errors. They are returned before anything is sent to the
// database.
var (
	ErrNoColumns          = errors.New("input has no columns")
	ErrUnnamedColumn      = errors.New("unnamed column")
	ErrDuplicateColumn    = errors.New("duplicate column name")
	ErrInvalidIdentifier  = errors.New("invalid identifier")
	ErrRaggedColumns      = errors.New("columns have different lengths")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrRowTooWide         = errors.New("row needs more parameters than the ceiling allows")
)

// BatchError reports a failed submission. Statement and Params are exactly what
// was sent; Err is the driver error, reachable through errors.Is and errors.As.
type BatchError struct {
	Batch     int
	FirstRow  int
	Rows      int
	Statement string
	Params    []any
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (rows %d-%d): %v", e.Batch, e.FirstRow, e.FirstRow+e.Rows-1, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
