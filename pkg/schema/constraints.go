package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Range is an inclusive numeric constraint parsed from "min..max" notation.
// Either bound may be open: "1.." means at least one, "..20" at most twenty.
type Range struct {
	Min *float64
	Max *float64
}

// ParseRange parses "min..max", "min.." or "..max". Both bounds may be
// negative or fractional.
func ParseRange(s string) (*Range, error) {
	idx := strings.Index(s, "..")
	if idx < 0 {
		return nil, fmt.Errorf("invalid range %q: missing '..'", s)
	}
	lo := strings.TrimSpace(s[:idx])
	hi := strings.TrimSpace(s[idx+2:])
	if strings.Contains(hi, "..") {
		return nil, fmt.Errorf("invalid range %q: more than one '..'", s)
	}
	if lo == "" && hi == "" {
		return nil, fmt.Errorf("invalid range %q: both bounds open", s)
	}

	r := &Range{}
	if lo != "" {
		f, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: bad lower bound", s)
		}
		r.Min = &f
	}
	if hi != "" {
		f, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: bad upper bound", s)
		}
		r.Max = &f
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return nil, fmt.Errorf("invalid range %q: lower bound above upper", s)
	}
	return r, nil
}

// Contains reports whether f falls inside the range.
func (r *Range) Contains(f float64) bool {
	if r.Min != nil && f < *r.Min {
		return false
	}
	if r.Max != nil && f > *r.Max {
		return false
	}
	return true
}

// Check validates a numeric value against the range.
func (r *Range) Check(value any) error {
	f, err := coerceFloat(value)
	if err != nil {
		return fmt.Errorf("range requires a number, got %T", value)
	}
	if !r.Contains(f) {
		return fmt.Errorf("value %v outside range %s", value, r)
	}
	return nil
}

func (r *Range) String() string {
	var b strings.Builder
	if r.Min != nil {
		b.WriteString(trimFloat(*r.Min))
	}
	b.WriteString("..")
	if r.Max != nil {
		b.WriteString(trimFloat(*r.Max))
	}
	return b.String()
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Enum is a closed set of allowed values.
type Enum []any

// Check validates membership. Numeric values compare across int and float
// representations, so an enum of [1, 2, 3] accepts float64(2) from JSON.
func (e Enum) Check(value any) error {
	for _, allowed := range e {
		if looseEqual(allowed, value) {
			return nil
		}
	}
	return fmt.Errorf("value '%v' not in allowed set %v", value, []any(e))
}

func looseEqual(a, b any) bool {
	af, aerr := coerceFloat(a)
	bf, berr := coerceFloat(b)
	if aerr == nil && berr == nil {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}
