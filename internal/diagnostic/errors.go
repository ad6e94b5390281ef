package diagnostic

import (
	"errors"
	"strings"
)

// ErrValidation matches every *ValidationError with errors.Is.
var ErrValidation = errors.New("pipeline validation failed")

// ValidationError is a fatal registration or graph preparation error.
type ValidationError struct {
	Reason      string
	Details     []string
	Diagnostics []Diagnostic
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Reason
	}

	return e.Reason + ": " + strings.Join(e.Details, "; ")
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
