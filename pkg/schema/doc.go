// Package schema provides the attribute type system used by model
// definitions and flow declarations.
//
// It defines a small set of built-in types (str, int, float, bool, list)
// plus range and enum constraints, and a tolerant coercion layer that
// converts between strings, numbers and booleans the way YAML authors
// expect. Validation failures are collected, not short-circuited: callers
// receive every violation in one AggregateError.
//
// Basic usage:
//
//	s := schema.Schema{
//	    "name":  schema.Str(),
//	    "level": schema.Int(),
//	    "tags":  schema.List(schema.Str()),
//	}
//
//	if err := schema.Validate(s, data); err != nil {
//	    for _, v := range schema.Violations(err) {
//	        // report each violation
//	    }
//	}
//
// Schemas can also be parsed from the type strings that appear in YAML
// definitions:
//
//	s, err := schema.ParseTypeMap(map[string]string{
//	    "name":  "str",
//	    "level": "int",
//	})
//
// Model types ("character", "item") are not schema types; resolving those
// is the object instantiation service's job. This package only covers the
// primitive leaves.
package schema
