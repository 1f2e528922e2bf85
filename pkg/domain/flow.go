package domain

// Step type tags dispatched by the executor registry.
const (
	StepCompletion     = "completion"
	StepPlayerInput    = "player_input"
	StepPlayerChoice   = "player_choice"
	StepDiceRoll       = "dice_roll"
	StepDiceSequence   = "dice_sequence"
	StepTableRoll      = "table_roll"
	StepLLMGeneration  = "llm_generation"
	StepNameGeneration = "name_generation"
	StepConditional    = "conditional"
	StepFlowCall       = "flow_call"
)

// FlowDefinition is a declarative procedure: typed inputs and outputs, scratch
// variables, and an ordered list of steps.
type FlowDefinition struct {
	ID          string `json:"id" mapstructure:"id"`
	Kind        string `json:"kind" mapstructure:"kind"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Version     int    `json:"version,omitempty" mapstructure:"version"`

	Inputs    []FlowInputOutput `json:"inputs,omitempty" mapstructure:"inputs"`
	Outputs   []FlowInputOutput `json:"outputs,omitempty" mapstructure:"outputs"`
	Variables []FlowVariable    `json:"variables,omitempty" mapstructure:"variables"`
	Steps     []FlowStep        `json:"steps,omitempty" mapstructure:"steps"`

	// ResumePoints lists step ids at which a suspended session may be
	// resumed. Sessions saved at other steps restart from the beginning.
	ResumePoints []string `json:"resume_points,omitempty" mapstructure:"resume_points"`
}

// FlowInputOutput declares one typed input or output slot of a flow.
type FlowInputOutput struct {
	Type     string `json:"type" mapstructure:"type"`
	ID       string `json:"id" mapstructure:"id"`
	Required bool   `json:"required,omitempty" mapstructure:"required"`
	Validate bool   `json:"validate,omitempty" mapstructure:"validate"`
}

// FlowVariable declares one internal scratch slot of a flow.
type FlowVariable struct {
	Type        string `json:"type" mapstructure:"type"`
	ID          string `json:"id" mapstructure:"id"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Validate    bool   `json:"validate,omitempty" mapstructure:"validate"`
}

// FlowStep is one unit of flow execution. The Type tag selects the executor;
// every key that is not one of the standard fields below lands in Config and
// is decoded by the executor that owns the type.
type FlowStep struct {
	ID        string `json:"id" mapstructure:"id"`
	Name      string `json:"name,omitempty" mapstructure:"name"`
	Type      string `json:"type" mapstructure:"type"`
	Prompt    string `json:"prompt,omitempty" mapstructure:"prompt"`
	Condition string `json:"condition,omitempty" mapstructure:"condition"`
	Parallel  bool   `json:"parallel,omitempty" mapstructure:"parallel"`

	PreActions []map[string]any `json:"pre_actions,omitempty" mapstructure:"pre_actions"`
	Actions    []map[string]any `json:"actions,omitempty" mapstructure:"actions"`
	NextStep   string           `json:"next_step,omitempty" mapstructure:"next_step"`

	// Config holds the executor-specific payload (e.g. "roll" for dice_roll,
	// "choice_source" for player_choice).
	Config map[string]any `json:"config,omitempty" mapstructure:",remain"`
}

// KnownStepTypes enumerates every built-in step type tag.
func KnownStepTypes() []string {
	return []string{
		StepCompletion,
		StepPlayerInput,
		StepPlayerChoice,
		StepDiceRoll,
		StepDiceSequence,
		StepTableRoll,
		StepLLMGeneration,
		StepNameGeneration,
		StepConditional,
		StepFlowCall,
	}
}
