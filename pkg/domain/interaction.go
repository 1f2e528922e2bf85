package domain

// InputRequest asks the host to collect one scalar value from the player.
type InputRequest struct {
	StepID string `json:"step_id"`
	Prompt string `json:"prompt,omitempty"`

	// Type is the declared primitive type the answer will be coerced to.
	Type string `json:"type,omitempty"`

	Default string `json:"default,omitempty"`
}

// Choice is one selectable option presented to the player.
type Choice struct {
	// ID is the value written to context (or resolved through a table)
	// when this choice is selected.
	ID string `json:"id" mapstructure:"id"`

	// Label is the rendered display text.
	Label string `json:"label" mapstructure:"label"`

	// NextStep optionally redirects flow control when selected.
	NextStep string `json:"next_step,omitempty" mapstructure:"next_step"`

	// Actions run after the selection is recorded.
	Actions []map[string]any `json:"actions,omitempty" mapstructure:"actions"`
}

// ChoiceRequest asks the host to present options and collect a selection.
type ChoiceRequest struct {
	StepID  string   `json:"step_id"`
	Prompt  string   `json:"prompt,omitempty"`
	Options []Choice `json:"options"`

	// Count is how many selections to collect; 1 for a single choice.
	Count int `json:"count,omitempty"`
}
