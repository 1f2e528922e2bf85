package runtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrdbound/grimoire/internal/runtime"
	"github.com/wyrdbound/grimoire/pkg/adapters/exprtmpl"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/objects"
)

type fakeDice struct {
	queue []domain.RollResult
	exprs []string
}

func (d *fakeDice) Roll(_ context.Context, expression string) (domain.RollResult, error) {
	d.exprs = append(d.exprs, expression)
	if len(d.queue) == 0 {
		return domain.RollResult{Expression: expression, Total: 7, Rolls: []int{3, 4}}, nil
	}
	res := d.queue[0]
	d.queue = d.queue[1:]
	res.Expression = expression
	return res, nil
}

type fakeInteract struct {
	inputs []any
	picks  []int
}

func (i *fakeInteract) PromptInput(_ context.Context, req domain.InputRequest) (any, error) {
	if len(i.inputs) == 0 {
		return req.Default, nil
	}
	v := i.inputs[0]
	i.inputs = i.inputs[1:]
	return v, nil
}

func (i *fakeInteract) PromptChoice(_ context.Context, _ domain.ChoiceRequest) (int, error) {
	if len(i.picks) == 0 {
		return 0, nil
	}
	idx := i.picks[0]
	i.picks = i.picks[1:]
	return idx, nil
}

type recordingSink struct {
	messages []string
	events   []string
}

func (s *recordingSink) Message(text string) { s.messages = append(s.messages, text) }
func (s *recordingSink) Event(name string, _ map[string]any) {
	s.events = append(s.events, name)
}

// knaveSystem builds a small but complete system: one model, one table with
// its compendium, and a character creation flow exercising dice, choices and
// actions.
func knaveSystem(t *testing.T) *domain.CompleteSystem {
	t.Helper()
	sys := domain.NewCompleteSystem(domain.SystemDefinition{ID: "knave", Kind: "system", Name: "Knave"})

	sys.Models["character"] = &domain.ModelDefinition{
		ID:   "character",
		Kind: "model",
		Attributes: map[string]domain.AttributeDefinition{
			"name":   {Type: "str", Default: ""},
			"hp":     {Type: "int", Default: 1},
			"weapon": {Type: "str", Optional: true},
			"level":  {Type: "int", Default: 1},
		},
	}
	sys.Models["weapon"] = &domain.ModelDefinition{
		ID:   "weapon",
		Kind: "model",
		Attributes: map[string]domain.AttributeDefinition{
			"name":   {Type: "str", Default: ""},
			"damage": {Type: "str", Default: "1d4"},
			"cost":   {Type: "int", Default: 0},
		},
	}
	sys.Tables["starting-weapons"] = &domain.TableDefinition{
		ID:        "starting-weapons",
		Kind:      "table",
		EntryType: "weapon",
		Entries: []domain.TableEntry{
			{Range: "1", Value: "dagger"},
			{Range: "2", Value: "sword"},
		},
	}
	sys.Compendiums["weapons"] = &domain.CompendiumDefinition{
		ID:    "weapons",
		Kind:  "compendium",
		Model: "weapon",
		Entries: map[string]map[string]any{
			"dagger": {"name": "Dagger", "damage": "1d6", "cost": 5},
			"sword":  {"name": "Sword", "damage": "1d8", "cost": 10},
		},
	}

	sys.Flows["create-character"] = &domain.FlowDefinition{
		ID:   "create-character",
		Kind: "flow",
		Inputs: []domain.FlowInputOutput{
			{Type: "str", ID: "character_name", Required: true},
		},
		Outputs: []domain.FlowInputOutput{
			{Type: "character", ID: "character"},
		},
		Variables: []domain.FlowVariable{
			{Type: "int", ID: "rolled_hp"},
		},
		Steps: []domain.FlowStep{
			{
				ID:   "init",
				Type: domain.StepCompletion,
				Actions: []map[string]any{
					{"set_value": map[string]any{"path": "outputs.character", "value": map[string]any{
						"model": "character", "name": "{{ inputs.character_name }}",
					}}},
				},
			},
			{
				ID:   "roll-hp",
				Type: domain.StepDiceRoll,
				Config: map[string]any{
					"roll": "1d8",
				},
				Actions: []map[string]any{
					{"set_value": map[string]any{"path": "variables.rolled_hp", "value": "{{ result.total }}"}},
					{"set_value": map[string]any{"path": "outputs.character.hp", "value": "{{ variables.rolled_hp }}"}},
				},
			},
			{
				ID:   "done",
				Type: domain.StepCompletion,
			},
		},
		ResumePoints: []string{"roll-hp"},
	}
	return sys
}

func newEngine(t *testing.T, sys *domain.CompleteSystem, opts ...runtime.Option) *runtime.Engine {
	t.Helper()
	svc, err := objects.NewService(sys, objects.WithResolver(exprtmpl.New()))
	require.NoError(t, err)
	return runtime.NewEngine(sys, svc, exprtmpl.New(), opts...)
}

func TestRunFlowProducesValidatedOutputs(t *testing.T) {
	sys := knaveSystem(t)
	dice := &fakeDice{queue: []domain.RollResult{{Total: 6, Rolls: []int{6}}}}
	eng := newEngine(t, sys, runtime.WithDice(dice))

	result, err := eng.Run(context.Background(), "create-character", map[string]any{
		"character_name": "Fennek",
	})
	require.NoError(t, err)

	assert.Equal(t, "create-character", result.FlowID)
	assert.Equal(t, []string{"init", "roll-hp", "done"}, result.StepsRun)

	character, ok := result.Outputs["character"].(map[string]any)
	require.True(t, ok, "character output must be a mapping, got %T", result.Outputs["character"])
	assert.Equal(t, "Fennek", character["name"])
	assert.Equal(t, 6, character["hp"])
	assert.Equal(t, []string{"1d8"}, dice.exprs)
}

func TestRunFlowMissingRequiredInput(t *testing.T) {
	eng := newEngine(t, knaveSystem(t), runtime.WithDice(&fakeDice{}))

	_, err := eng.Run(context.Background(), "create-character", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Flow execution failed for create-character")
	assert.Contains(t, err.Error(), "Required input 'character_name' not provided")

	var fe *domain.MissingFieldError
	assert.ErrorAs(t, err, &fe)
}

func TestRunFlowUnknownFlow(t *testing.T) {
	eng := newEngine(t, knaveSystem(t))

	_, err := eng.Run(context.Background(), "missing-flow", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Flow 'missing-flow' not found")
	assert.Contains(t, err.Error(), "create-character")
}

func TestStepConditionSkips(t *testing.T) {
	sys := knaveSystem(t)
	flow := sys.Flows["create-character"]
	flow.Steps[1].Condition = "{{ false }}"

	eng := newEngine(t, sys, runtime.WithDice(&fakeDice{}))
	result, err := eng.Run(context.Background(), "create-character", map[string]any{
		"character_name": "Moss",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"init", "done"}, result.StepsRun)

	character := result.Outputs["character"].(map[string]any)
	// The skipped roll never ran, so hp keeps the model default.
	assert.Equal(t, 1, character["hp"])
}

func TestUnknownNextStepFails(t *testing.T) {
	sys := knaveSystem(t)
	sys.Flows["create-character"].Steps[0].NextStep = "nowhere"

	eng := newEngine(t, sys, runtime.WithDice(&fakeDice{}))
	_, err := eng.Run(context.Background(), "create-character", map[string]any{
		"character_name": "Moss",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Step init references unknown next_step: nowhere")
}

func TestStepAliasesAreCleanedUp(t *testing.T) {
	sys := knaveSystem(t)
	flow := sys.Flows["create-character"]
	// After roll-hp finishes, its result alias must be gone for later steps.
	flow.Steps[2].Actions = []map[string]any{
		{"set_value": map[string]any{"path": "variables.rolled_hp", "value": "{{ result ?? -1 }}"}},
	}

	eng := newEngine(t, sys, runtime.WithDice(&fakeDice{}))
	_, err := eng.Run(context.Background(), "create-character", map[string]any{
		"character_name": "Moss",
	})
	require.NoError(t, err)
}

func TestLifecycleHooksFire(t *testing.T) {
	var started, completed, flowDone []string
	hooks := domain.LifecycleHooks{
		OnStepStart: func(_ context.Context, ev *domain.StepEvent) {
			started = append(started, ev.StepID)
		},
		OnStepComplete: func(_ context.Context, ev *domain.StepEvent) {
			completed = append(completed, ev.StepID)
		},
		OnFlowComplete: func(_ context.Context, ev *domain.FlowEvent) {
			flowDone = append(flowDone, ev.FlowID)
		},
	}

	eng := newEngine(t, knaveSystem(t), runtime.WithDice(&fakeDice{}), runtime.WithHooks(hooks))
	_, err := eng.Run(context.Background(), "create-character", map[string]any{
		"character_name": "Moss",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"init", "roll-hp", "done"}, started)
	assert.Equal(t, []string{"init", "roll-hp", "done"}, completed)
	assert.Equal(t, []string{"create-character"}, flowDone)
}

func TestFlowCompleteHookCarriesError(t *testing.T) {
	sys := knaveSystem(t)
	sys.Flows["create-character"].Steps[0].NextStep = "nowhere"

	var failed []error
	hooks := domain.LifecycleHooks{
		OnFlowComplete: func(_ context.Context, ev *domain.FlowEvent) {
			failed = append(failed, ev.Err)
		},
	}

	eng := newEngine(t, sys, runtime.WithDice(&fakeDice{}), runtime.WithHooks(hooks))
	_, err := eng.Run(context.Background(), "create-character", map[string]any{
		"character_name": "Moss",
	})
	require.Error(t, err)

	require.Len(t, failed, 1)
	require.Error(t, failed[0])
	assert.Contains(t, failed[0].Error(), "unknown next_step")
}

func TestCheckpointsCarryContextSnapshots(t *testing.T) {
	var cps []runtime.Checkpoint
	eng := newEngine(t, knaveSystem(t),
		runtime.WithDice(&fakeDice{queue: []domain.RollResult{{Total: 5, Rolls: []int{5}}}}),
		runtime.WithCheckpoint(func(_ context.Context, cp runtime.Checkpoint) error {
			cps = append(cps, cp)
			return nil
		}),
	)

	_, err := eng.Run(context.Background(), "create-character", map[string]any{
		"character_name": "Moss",
	})
	require.NoError(t, err)
	require.Len(t, cps, 3)

	assert.Equal(t, "roll-hp", cps[1].StepID)
	assert.Equal(t, "done", cps[1].NextStepID)
	assert.Equal(t, "", cps[2].NextStepID, "last checkpoint has no next step")

	vars := cps[1].Context["variables"].(map[string]any)
	assert.Equal(t, 5, vars["rolled_hp"])
}

func TestResumeContinuesFromSavedStep(t *testing.T) {
	sys := knaveSystem(t)
	var saved runtime.Checkpoint
	eng := newEngine(t, sys,
		runtime.WithDice(&fakeDice{queue: []domain.RollResult{{Total: 8, Rolls: []int{8}}}}),
		runtime.WithCheckpoint(func(_ context.Context, cp runtime.Checkpoint) error {
			if cp.StepID == "init" {
				saved = cp
			}
			return nil
		}),
	)

	_, err := eng.Run(context.Background(), "create-character", map[string]any{
		"character_name": "Moss",
	})
	require.NoError(t, err)
	require.Equal(t, "roll-hp", saved.NextStepID)

	// Resume at the step the saved checkpoint pointed to.
	resumed := newEngine(t, sys, runtime.WithDice(&fakeDice{queue: []domain.RollResult{{Total: 3, Rolls: []int{3}}}}))
	result, err := resumed.Resume(context.Background(), "create-character", saved.Context, saved.NextStepID)
	require.NoError(t, err)

	character := result.Outputs["character"].(map[string]any)
	assert.Equal(t, "Moss", character["name"])
	assert.Equal(t, 3, character["hp"])
}

func TestResumeAtUnknownStepFails(t *testing.T) {
	eng := newEngine(t, knaveSystem(t))
	_, err := eng.Resume(context.Background(), "create-character", map[string]any{}, "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot resume at unknown step 'bogus'")
}

func TestCancellationStopsBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := newEngine(t, knaveSystem(t), runtime.WithDice(&fakeDice{}))
	_, err := eng.Run(ctx, "create-character", map[string]any{
		"character_name": "Moss",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFlowCallRunsSubFlow(t *testing.T) {
	sys := knaveSystem(t)
	sys.Flows["roll-stats"] = &domain.FlowDefinition{
		ID:   "roll-stats",
		Kind: "flow",
		Inputs: []domain.FlowInputOutput{
			{Type: "int", ID: "bonus"},
		},
		Outputs: []domain.FlowInputOutput{
			{Type: "int", ID: "hp"},
		},
		Steps: []domain.FlowStep{
			{
				ID:   "roll",
				Type: domain.StepDiceRoll,
				Config: map[string]any{
					"roll": "1d8",
				},
				Actions: []map[string]any{
					{"set_value": map[string]any{"path": "outputs.hp", "value": "{{ result.total + inputs.bonus }}"}},
				},
			},
		},
	}
	sys.Flows["wrapper"] = &domain.FlowDefinition{
		ID:   "wrapper",
		Kind: "flow",
		Outputs: []domain.FlowInputOutput{
			{Type: "int", ID: "hp"},
		},
		Steps: []domain.FlowStep{
			{
				ID:   "call",
				Type: domain.StepFlowCall,
				Config: map[string]any{
					"flow_id": "roll-stats",
					"inputs":  map[string]any{"bonus": 2},
					"outputs": map[string]any{"hp": "outputs.hp"},
				},
			},
		},
	}

	eng := newEngine(t, sys, runtime.WithDice(&fakeDice{queue: []domain.RollResult{{Total: 4, Rolls: []int{4}}}}))
	result, err := eng.Run(context.Background(), "wrapper", nil)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Outputs["hp"])
}

func TestSelfCallingFlowHitsDepthGuard(t *testing.T) {
	sys := knaveSystem(t)
	sys.Flows["ouroboros"] = &domain.FlowDefinition{
		ID:   "ouroboros",
		Kind: "flow",
		Steps: []domain.FlowStep{
			{
				ID:     "again",
				Type:   domain.StepFlowCall,
				Config: map[string]any{"flow_id": "ouroboros"},
			},
		},
	}

	eng := newEngine(t, sys)
	_, err := eng.Run(context.Background(), "ouroboros", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum flow call depth")
}

func TestOmittedOutputsAreAbsent(t *testing.T) {
	sys := knaveSystem(t)
	sys.Flows["quiet"] = &domain.FlowDefinition{
		ID:   "quiet",
		Kind: "flow",
		Outputs: []domain.FlowInputOutput{
			{Type: "str", ID: "answer"},
		},
		Steps: []domain.FlowStep{
			{ID: "done", Type: domain.StepCompletion},
		},
	}

	eng := newEngine(t, sys)
	result, err := eng.Run(context.Background(), "quiet", nil)
	require.NoError(t, err)
	_, present := result.Outputs["answer"]
	assert.False(t, present, "unset declared output must be omitted, not nil")
}

func TestDisplayActionsReachSink(t *testing.T) {
	sys := knaveSystem(t)
	sys.Flows["greet"] = &domain.FlowDefinition{
		ID:   "greet",
		Kind: "flow",
		Inputs: []domain.FlowInputOutput{
			{Type: "str", ID: "name", Required: true},
		},
		Steps: []domain.FlowStep{
			{
				ID:   "say",
				Type: domain.StepCompletion,
				Actions: []map[string]any{
					{"display_message": "Hello {{ inputs.name }}!"},
				},
			},
		},
	}

	sink := &recordingSink{}
	eng := newEngine(t, sys, runtime.WithSink(sink))
	_, err := eng.Run(context.Background(), "greet", map[string]any{"name": "Moss"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello Moss!"}, sink.messages)
}
