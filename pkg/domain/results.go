package domain

// RollResult is what the dice collaborator returns for one expression.
type RollResult struct {
	Expression  string `json:"expression"`
	Total       int    `json:"total"`
	Rolls       []int  `json:"rolls,omitempty"`
	Description string `json:"description,omitempty"`
}

// NameRequest describes a name to generate. Unknown corpus or style values
// fall back to generator defaults instead of failing.
type NameRequest struct {
	Type      string `json:"type,omitempty"`
	Style     string `json:"style,omitempty"`
	Corpus    string `json:"corpus,omitempty"`
	Segmenter string `json:"segmenter,omitempty"`
	Algorithm string `json:"algorithm,omitempty"`
	MaxLength int    `json:"max_length,omitempty"`
}

// PromptRequest is the fully resolved payload handed to the prompt executor.
type PromptRequest struct {
	Prompt    string         `json:"prompt"`
	Variables map[string]any `json:"variables,omitempty"`
	Settings  map[string]any `json:"settings,omitempty"`
}

// PromptResult is what the prompt executor returns.
type PromptResult struct {
	Response   string         `json:"response"`
	Model      string         `json:"model,omitempty"`
	Provider   string         `json:"provider,omitempty"`
	TokensUsed int            `json:"tokens_used,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Map renders the result in the shape flow contexts store it.
func (r PromptResult) Map() map[string]any {
	meta := r.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		"response":    r.Response,
		"model":       r.Model,
		"provider":    r.Provider,
		"tokens_used": r.TokensUsed,
		"metadata":    meta,
	}
}

// Map renders the result in the shape flow contexts store it.
func (r RollResult) Map() map[string]any {
	rolls := r.Rolls
	if rolls == nil {
		rolls = []int{}
	}
	return map[string]any{
		"expression":  r.Expression,
		"total":       r.Total,
		"rolls":       rolls,
		"description": r.Description,
	}
}

// FlowResult is the terminal value of a successful flow execution.
type FlowResult struct {
	FlowID string `json:"flow_id"`

	// Outputs holds the instantiated output slots declared by the flow.
	Outputs map[string]any `json:"outputs"`

	// StepsRun records step ids in execution order.
	StepsRun []string `json:"steps_run,omitempty"`
}
