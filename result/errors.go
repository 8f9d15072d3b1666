package result

import "errors"

// ErrorCategory classifies a control-plane failure for an HTTP layer to
// map onto a status code.
type ErrorCategory string

const (
	CategoryInvalidInput ErrorCategory = "invalid_input"
	CategoryNotFound     ErrorCategory = "not_found"
	CategoryConflict     ErrorCategory = "conflict"
	CategoryInternal     ErrorCategory = "internal"
)

// sentinel errors the core returns that the control boundary classifies
// into the taxonomy above; core operations otherwise return plain wrapped
// errors, which classify as CategoryInternal.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Classify maps an error returned by a core operation onto the control
// plane's taxonomy by sentinel match, falling back to CategoryInternal.
func Classify(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return CategoryInvalidInput
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrConflict):
		return CategoryConflict
	default:
		return CategoryInternal
	}
}
