package domain

// ModelDefinition is a named schema for domain objects: a set of typed
// attributes, optionally inherited from one or more parent models.
type ModelDefinition struct {
	ID          string `json:"id" mapstructure:"id"`
	Kind        string `json:"kind" mapstructure:"kind"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Version     int    `json:"version,omitempty" mapstructure:"version"`

	// Extends lists parent model ids. Attributes are merged depth-first,
	// child wins on name collisions. Cycles are rejected at load time.
	Extends []string `json:"extends,omitempty" mapstructure:"extends"`

	// Attributes maps attribute name to its definition.
	Attributes map[string]AttributeDefinition `json:"attributes,omitempty" mapstructure:"attributes"`

	// Validations are cross-attribute rules checked on Create.
	Validations []ValidationRule `json:"validations,omitempty" mapstructure:"validations"`
}

// AttributeDefinition describes one attribute of a model.
//
// Type is a primitive tag (str, int, float, bool, dict, list, roll) or the
// id of another model. A shorthand YAML form "attr: str" is normalized into
// a full definition during parsing.
type AttributeDefinition struct {
	Type     string `json:"type" mapstructure:"type"`
	Default  any    `json:"default,omitempty" mapstructure:"default"`
	Optional bool   `json:"optional,omitempty" mapstructure:"optional"`

	// Range constrains numeric values: "min..max", "min.." or "..max".
	Range string `json:"range,omitempty" mapstructure:"range"`

	// Enum is a closed set of allowed values.
	Enum []any `json:"enum,omitempty" mapstructure:"enum"`

	// Derived holds a formula over sibling attributes. Derived attributes
	// are computed on read, never stored.
	Derived string `json:"derived,omitempty" mapstructure:"derived"`

	// Of names the element type when Type is "list".
	Of string `json:"of,omitempty" mapstructure:"of"`
}

// ValidationRule is a named check evaluated against a whole object.
type ValidationRule struct {
	Expression string `json:"expression" mapstructure:"expression"`
	Message    string `json:"message,omitempty" mapstructure:"message"`
}

// IsDerived reports whether the attribute is computed rather than stored.
func (a AttributeDefinition) IsDerived() bool {
	return a.Derived != ""
}

// HasDefault reports whether a default value was declared.
func (a AttributeDefinition) HasDefault() bool {
	return a.Default != nil
}
