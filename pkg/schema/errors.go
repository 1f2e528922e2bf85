package schema

import "fmt"

// Violation represents a single attribute validation failure.
type Violation struct {
	Path   string // Attribute path, e.g. "stats.hp"
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *Violation) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %T)", e.Path, e.Reason, e.Value)
}

// AggregateError carries every validation failure found in one pass, not
// just the first.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Violations returns all violations if err is an AggregateError.
// Otherwise returns nil.
func Violations(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
