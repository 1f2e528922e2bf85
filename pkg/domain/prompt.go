package domain

// PromptDefinition is a named, reusable prompt template for llm_generation
// steps. Steps reference it by id; the free-text prompt shown to the player
// is a separate concern.
type PromptDefinition struct {
	ID          string `json:"id" mapstructure:"id"`
	Kind        string `json:"kind" mapstructure:"kind"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Version     int    `json:"version,omitempty" mapstructure:"version"`

	// Template is the prompt body with {variable} substitution slots. The
	// YAML key "prompt_template" is accepted as an alias.
	Template string `json:"template,omitempty" mapstructure:"template"`

	// Variables declares the substitution slots and optional defaults.
	Variables map[string]any `json:"variables,omitempty" mapstructure:"variables"`

	// LLMSettings carries default generation parameters, overridable per step.
	LLMSettings map[string]any `json:"llm_settings,omitempty" mapstructure:"llm_settings"`
}
