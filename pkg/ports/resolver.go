package ports

// TemplateResolver expands {{ ... }} expressions against a data snapshot.
// The engine resolves step prompts, conditions and action arguments through
// this port so the expression language stays swappable.
type TemplateResolver interface {
	// Resolve expands a template. A template that is exactly one expression
	// yields the expression's native value (map, list, number); anything
	// else renders to a string.
	Resolve(template string, data map[string]any) (any, error)

	// ResolveString expands a template and renders the result as a string.
	ResolveString(template string, data map[string]any) (string, error)

	// EvaluateBool evaluates a bare expression or template as a condition.
	EvaluateBool(expression string, data map[string]any) (bool, error)
}
