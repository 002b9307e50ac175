package mapper

import (
	"errors"
	"fmt"
)

var (
	// ErrSkip is the parent of every validation skip. A skipped document is
	// logged and counted, and the run moves on to the next one.
	ErrSkip = errors.New("document skipped")

	ErrMissingCategory     = fmt.Errorf("%w: missing 'popsize_category' field", ErrSkip)
	ErrInvalidColumnHeader = fmt.Errorf("%w: missing or incorrect 'column_header' field", ErrSkip)
	ErrInvalidRows         = fmt.Errorf("%w: missing or incorrect 'rows' field", ErrSkip)
)

// IsSkip reports whether err is a validation skip rather than a failure
func IsSkip(err error) bool {
	return errors.Is(err, ErrSkip)
}

// CoercionError is raised when a measurement value cannot be read as a number.
// It is fatal for the whole pass.
type CoercionError struct {
	DocumentID string
	SizeLabel  string
	Measure    string
	Value      any
	Err        error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("document %s row %q measure %q: %v", e.DocumentID, e.SizeLabel, e.Measure, e.Err)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort the pass
func IsFatal(err error) bool {
	var coercionErr *CoercionError
	return errors.As(err, &coercionErr)
}
