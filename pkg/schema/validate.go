package schema

// Schema is a map of field names to their expected types.
// Example: {"name": Str(), "level": Int(), "tags": List(Str())}
type Schema map[string]Type

// Validate checks if data conforms to the schema. Every field in the schema
// is required; keys in data that the schema does not mention are ignored,
// which keeps validation idempotent for objects carrying bookkeeping keys
// like "model" and "id".
//
// Returns an AggregateError with all failures found, or nil.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		// No schema = no validation
		return nil
	}

	var errs []error

	for fieldName, fieldType := range schema {
		value, exists := data[fieldName]
		if !exists {
			errs = append(errs, &Violation{
				Path:   fieldName,
				Reason: "required",
				Value:  nil,
			})
			continue
		}

		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &Violation{
				Path:   fieldName,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}

	return nil
}
