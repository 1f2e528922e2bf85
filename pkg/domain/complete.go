package domain

import (
	"fmt"
	"sort"
)

// CompleteSystem is the root aggregate: one SystemDefinition plus id-keyed
// maps of every definition kind. It is assembled by a loader and must never
// be mutated once flow execution has started; the engine and the object
// service only read it.
type CompleteSystem struct {
	System      SystemDefinition                 `json:"system"`
	Models      map[string]*ModelDefinition      `json:"models,omitempty"`
	Flows       map[string]*FlowDefinition       `json:"flows,omitempty"`
	Tables      map[string]*TableDefinition      `json:"tables,omitempty"`
	Compendiums map[string]*CompendiumDefinition `json:"compendiums,omitempty"`
	Prompts     map[string]*PromptDefinition     `json:"prompts,omitempty"`
	Sources     map[string]*SourceDefinition     `json:"sources,omitempty"`
}

// NewCompleteSystem returns an empty system ready to be filled by a loader.
func NewCompleteSystem(system SystemDefinition) *CompleteSystem {
	return &CompleteSystem{
		System:      system,
		Models:      make(map[string]*ModelDefinition),
		Flows:       make(map[string]*FlowDefinition),
		Tables:      make(map[string]*TableDefinition),
		Compendiums: make(map[string]*CompendiumDefinition),
		Prompts:     make(map[string]*PromptDefinition),
		Sources:     make(map[string]*SourceDefinition),
	}
}

// Flow looks up a flow definition by id.
func (s *CompleteSystem) Flow(id string) (*FlowDefinition, error) {
	if f, ok := s.Flows[id]; ok {
		return f, nil
	}
	return nil, &UnknownReferenceError{
		Kind:      "flow",
		ID:        id,
		Detail:    fmt.Sprintf("Flow '%s' not found", id),
		Available: sortedKeys(s.Flows),
	}
}

// Model looks up a model definition by id.
func (s *CompleteSystem) Model(id string) (*ModelDefinition, error) {
	if m, ok := s.Models[id]; ok {
		return m, nil
	}
	return nil, &UnknownReferenceError{
		Kind:      "model",
		ID:        id,
		Detail:    fmt.Sprintf("Unknown model type: %s", id),
		Available: sortedKeys(s.Models),
	}
}

// Table looks up a table definition by id.
func (s *CompleteSystem) Table(id string) (*TableDefinition, error) {
	if t, ok := s.Tables[id]; ok {
		return t, nil
	}
	return nil, &UnknownReferenceError{
		Kind:      "table",
		ID:        id,
		Detail:    fmt.Sprintf("Table '%s' not found in system", id),
		Available: sortedKeys(s.Tables),
	}
}

// Prompt looks up a prompt definition by id.
func (s *CompleteSystem) Prompt(id string) (*PromptDefinition, error) {
	if p, ok := s.Prompts[id]; ok {
		return p, nil
	}
	return nil, &UnknownReferenceError{
		Kind:      "prompt",
		ID:        id,
		Detail:    fmt.Sprintf("Prompt '%s' not found in system", id),
		Available: sortedKeys(s.Prompts),
	}
}

// CompendiumForModel returns the first compendium (by id order) whose model
// matches the given model id.
func (s *CompleteSystem) CompendiumForModel(modelID string) (*CompendiumDefinition, bool) {
	for _, id := range sortedKeys(s.Compendiums) {
		if s.Compendiums[id].Model == modelID {
			return s.Compendiums[id], true
		}
	}
	return nil, false
}

// FlowIDs returns every flow id in sorted order.
func (s *CompleteSystem) FlowIDs() []string { return sortedKeys(s.Flows) }

// ModelIDs returns every model id in sorted order.
func (s *CompleteSystem) ModelIDs() []string { return sortedKeys(s.Models) }

// TableIDs returns every table id in sorted order.
func (s *CompleteSystem) TableIDs() []string { return sortedKeys(s.Tables) }

// Validate cross-checks references between definitions and rejects unknown
// step type tags, so that authoring mistakes surface at load time rather
// than mid-execution. Returns a list of human-readable problems.
func (s *CompleteSystem) Validate() []string {
	var problems []string

	knownSteps := make(map[string]bool)
	for _, t := range KnownStepTypes() {
		knownSteps[t] = true
	}
	// conditional_branch is the long-form tag the conditional executor also
	// answers to.
	knownSteps["conditional_branch"] = true

	for _, id := range sortedKeys(s.Models) {
		m := s.Models[id]
		for _, parent := range m.Extends {
			if _, ok := s.Models[parent]; !ok {
				problems = append(problems, fmt.Sprintf("model '%s' extends unknown model '%s'", id, parent))
			}
		}
		if err := s.checkExtendsCycle(id); err != nil {
			problems = append(problems, err.Error())
		}
	}

	for _, id := range sortedKeys(s.Tables) {
		t := s.Tables[id]
		if t.EntryType != "" && t.EntryType != "str" {
			if _, ok := s.Models[t.EntryType]; !ok {
				problems = append(problems, fmt.Sprintf("table '%s' entry_type '%s' matches no model", id, t.EntryType))
			}
		}
	}

	for _, id := range sortedKeys(s.Compendiums) {
		c := s.Compendiums[id]
		if _, ok := s.Models[c.Model]; !ok {
			problems = append(problems, fmt.Sprintf("compendium '%s' references unknown model '%s'", id, c.Model))
		}
	}

	for _, id := range sortedKeys(s.Flows) {
		f := s.Flows[id]
		stepIDs := make(map[string]bool, len(f.Steps))
		for _, st := range f.Steps {
			stepIDs[st.ID] = true
		}
		for _, st := range f.Steps {
			if !knownSteps[st.Type] {
				problems = append(problems, fmt.Sprintf("flow '%s' step '%s' has unknown type '%s'", id, st.ID, st.Type))
			}
			if st.NextStep != "" && !stepIDs[st.NextStep] {
				problems = append(problems, fmt.Sprintf("flow '%s' step '%s' references unknown next_step '%s'", id, st.ID, st.NextStep))
			}
		}
		for _, rp := range f.ResumePoints {
			if !stepIDs[rp] {
				problems = append(problems, fmt.Sprintf("flow '%s' resume point '%s' matches no step", id, rp))
			}
		}
	}

	return problems
}

// checkExtendsCycle walks the inheritance graph from one model and errors
// when it revisits a model already on the path.
func (s *CompleteSystem) checkExtendsCycle(id string) error {
	var walk func(cur string, path []string) error
	walk = func(cur string, path []string) error {
		for _, seen := range path {
			if seen == cur {
				return fmt.Errorf("model '%s' has an inheritance cycle: %v", id, append(path, cur))
			}
		}
		m, ok := s.Models[cur]
		if !ok {
			return nil
		}
		path = append(path, cur)
		for _, parent := range m.Extends {
			if err := walk(parent, path); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(id, nil)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
