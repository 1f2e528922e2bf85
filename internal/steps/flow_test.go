package steps_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

func TestTableRollStep(t *testing.T) {
	h := newHarness(t)
	h.dice.queue = []domain.RollResult{{Total: 2, Rolls: []int{2}, Description: "1d6: 2"}}

	out := h.run(t, &domain.FlowStep{
		ID: "loot", Type: "table_roll",
		Config: map[string]any{
			"tables": []any{
				map[string]any{
					"table": "weapons",
					"actions": []any{
						map[string]any{"set_value": map[string]any{
							"path": "variables.weapon_name", "value": "{{ result.entry.name }}",
						}},
					},
				},
			},
		},
	})

	assert.Equal(t, []string{"1d6"}, h.dice.exprs)

	v, ok := out.Get("step_test.result")
	require.True(t, ok)
	res := v.(map[string]any)
	entry := res["entry"].(map[string]any)
	assert.Equal(t, "weapon", entry["model"])
	assert.Equal(t, "Sword", entry["name"])
	roll := res["roll_result"].(map[string]any)
	assert.Equal(t, 2, roll["total"])
	assert.Equal(t, "1d6: 2", roll["detail"])

	name, _ := out.Get("variables.weapon_name")
	assert.Equal(t, "Sword", name)
}

func TestTableRollKeepsLiteralEntryValue(t *testing.T) {
	h := newHarness(t)
	h.dice.queue = []domain.RollResult{{Total: 15}}

	out := h.run(t, &domain.FlowStep{
		ID: "loot", Type: "table_roll",
		Config: map[string]any{
			"tables": []any{map[string]any{"table": "loot"}},
		},
	})

	v, _ := out.Get("step_test.result")
	assert.Equal(t, 42, v.(map[string]any)["entry"])
}

func TestTableRollNoMatchingEntry(t *testing.T) {
	h := newHarness(t)
	h.dice.queue = []domain.RollResult{{Total: 5}}

	out := h.run(t, &domain.FlowStep{
		ID: "loot", Type: "table_roll",
		Config: map[string]any{
			"tables": []any{map[string]any{"table": "gaps"}},
		},
	})

	v, _ := out.Get("step_test.result")
	assert.Equal(t, "<no match for 5>", v.(map[string]any)["entry"])
}

func TestTableRollMissingTables(t *testing.T) {
	h := newHarness(t)
	err := h.runErr(t, &domain.FlowStep{ID: "loot", Type: "table_roll"})
	assert.Contains(t, err.Error(), "Table roll failed in step 'loot'")
	assert.Contains(t, err.Error(), "missing 'tables' field")
}

func TestTableRollUnknownTable(t *testing.T) {
	h := newHarness(t)
	err := h.runErr(t, &domain.FlowStep{
		ID: "loot", Type: "table_roll",
		Config: map[string]any{"tables": []any{map[string]any{"table": "ghost"}}},
	})
	assert.Contains(t, err.Error(), "Table 'ghost'")
	assert.Contains(t, err.Error(), "not found in system")
}

func TestTableRollTableWithoutRoll(t *testing.T) {
	h := newHarness(t)
	err := h.runErr(t, &domain.FlowStep{
		ID: "loot", Type: "table_roll",
		Config: map[string]any{"tables": []any{map[string]any{"table": "noroll"}}},
	})
	assert.Contains(t, err.Error(), "Table 'noroll' has no roll expression defined")
}

func TestConditionalThenBranch(t *testing.T) {
	h := newHarness(t)
	h.fc = h.fc.Set("variables.level", 5)

	out := h.run(t, &domain.FlowStep{
		ID: "gate", Type: "conditional",
		Config: map[string]any{
			"if": "variables.level > 3",
			"then": []any{
				map[string]any{"set_value": map[string]any{"path": "variables.mood", "value": "bold"}},
			},
			"else": []any{
				map[string]any{"set_value": map[string]any{"path": "variables.mood", "value": "timid"}},
			},
		},
	})

	mood, _ := out.Get("variables.mood")
	assert.Equal(t, "bold", mood)
}

func TestConditionalElseBranch(t *testing.T) {
	h := newHarness(t)
	h.fc = h.fc.Set("variables.level", 1)

	out := h.run(t, &domain.FlowStep{
		ID: "gate", Type: "conditional_branch",
		Config: map[string]any{
			"if": "variables.level > 3",
			"else": []any{
				map[string]any{"set_value": map[string]any{"path": "variables.mood", "value": "timid"}},
			},
		},
	})

	mood, _ := out.Get("variables.mood")
	assert.Equal(t, "timid", mood)
}

func TestConditionalNextStepRedirect(t *testing.T) {
	h := newHarness(t)
	h.fc = h.fc.Set("variables.level", 1)

	out := h.run(t, &domain.FlowStep{
		ID: "gate", Type: "conditional",
		Config: map[string]any{
			"if":   "variables.level > 3",
			"else": map[string]any{"next_step": "train"},
		},
	})

	next, _ := out.Get("step_test.next_step_override")
	assert.Equal(t, "train", next)
}

func TestConditionalNestedElse(t *testing.T) {
	h := newHarness(t)
	h.fc = h.fc.Set("variables.level", 1)

	out := h.run(t, &domain.FlowStep{
		ID: "gate", Type: "conditional",
		Config: map[string]any{
			"if": "variables.level > 3",
			"else": map[string]any{
				"if": "variables.level == 1",
				"then": []any{
					map[string]any{"set_value": map[string]any{"path": "variables.rank", "value": "novice"}},
				},
			},
		},
	})

	rank, _ := out.Get("variables.rank")
	assert.Equal(t, "novice", rank)
}

func TestConditionalMissingIf(t *testing.T) {
	h := newHarness(t)
	err := h.runErr(t, &domain.FlowStep{ID: "gate", Type: "conditional"})
	assert.Contains(t, err.Error(), "Conditional branch failed in step 'gate'")
	assert.Contains(t, err.Error(), "missing 'if' condition")
}

func TestConditionalBadExpression(t *testing.T) {
	h := newHarness(t)
	err := h.runErr(t, &domain.FlowStep{
		ID: "gate", Type: "conditional",
		Config: map[string]any{"if": "variables.level >"},
	})
	assert.Contains(t, err.Error(), "Failed to evaluate conditional 'variables.level >'")
}

func TestConditionalInvalidClause(t *testing.T) {
	h := newHarness(t)
	h.fc = h.fc.Set("variables.level", 5)
	err := h.runErr(t, &domain.FlowStep{
		ID: "gate", Type: "conditional",
		Config: map[string]any{"if": "variables.level > 3", "then": "do stuff"},
	})
	assert.Contains(t, err.Error(), "Invalid then clause type")
}

func TestFlowCallStep(t *testing.T) {
	h := newHarness(t)
	h.fc = h.fc.Set("variables.level", 5)

	var gotFlow string
	var gotInputs map[string]any
	h.env.RunFlow = func(_ context.Context, flowID string, inputs map[string]any) (map[string]any, error) {
		gotFlow, gotInputs = flowID, inputs
		return map[string]any{
			"hero":  map[string]any{"name": "Borin"},
			"count": 3,
		}, nil
	}

	out := h.run(t, &domain.FlowStep{
		ID: "call", Type: "flow_call",
		Config: map[string]any{
			"flow_id": "sub",
			"inputs":  map[string]any{"seed": "{{ variables.level }}"},
			"outputs": map[string]any{"hero": "variables.hero", "missing": "variables.nope"},
		},
	})

	assert.Equal(t, "sub", gotFlow)
	assert.Equal(t, map[string]any{"seed": 5}, gotInputs)

	v, _ := out.Get("step_test.result")
	assert.Equal(t, 3, v.(map[string]any)["count"])

	hero, _ := out.Get("variables.hero")
	assert.Equal(t, "Borin", hero.(map[string]any)["name"])
	_, ok := out.Get("variables.nope")
	assert.False(t, ok)
}

func TestFlowCallMissingFlowID(t *testing.T) {
	h := newHarness(t)
	err := h.runErr(t, &domain.FlowStep{ID: "call", Type: "flow_call"})
	assert.Contains(t, err.Error(), "Step call: 'flow_id' field is required in step_config")
}

func TestFlowCallUnknownFlow(t *testing.T) {
	h := newHarness(t)
	err := h.runErr(t, &domain.FlowStep{
		ID: "call", Type: "flow_call",
		Config: map[string]any{"flow_id": "ghost"},
	})
	assert.Contains(t, err.Error(), "Step call: Flow 'ghost' not found")
}

func TestFlowCallPropagatesFailure(t *testing.T) {
	h := newHarness(t)
	h.env.RunFlow = func(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
		return nil, errors.New("sub-flow exploded")
	}

	err := h.runErr(t, &domain.FlowStep{
		ID: "call", Type: "flow_call",
		Config: map[string]any{"flow_id": "sub"},
	})
	assert.Contains(t, err.Error(), "Step call: sub-flow exploded")
}

func TestLLMGenerationStep(t *testing.T) {
	h := newHarness(t)
	h.fc = h.fc.Set("variables.hero_name", "Kargh")

	out := h.run(t, &domain.FlowStep{
		ID: "bio", Type: "llm_generation",
		Config: map[string]any{
			"prompt_id":    "describe",
			"prompt_data":  map[string]any{"name": "{{ variables.hero_name }}"},
			"llm_settings": map[string]any{"temperature": 0.2},
		},
	})

	assert.Equal(t, "Describe Kargh, a level 1 hero.", h.prompts.req.Prompt)
	assert.Equal(t, 0.2, h.prompts.req.Settings["temperature"])
	assert.Equal(t, 200, h.prompts.req.Settings["max_tokens"])

	v, _ := out.Get("step_test.result")
	res := v.(map[string]any)
	assert.Equal(t, "a grim tale", res["response"])
	assert.Equal(t, "test", res["model"])
}

func TestLLMGenerationMissingVariable(t *testing.T) {
	h := newHarness(t)
	err := h.runErr(t, &domain.FlowStep{
		ID: "bio", Type: "llm_generation",
		Config: map[string]any{"prompt_id": "describe"},
	})
	assert.Contains(t, err.Error(), "LLM generation failed in step 'bio'")
	assert.Contains(t, err.Error(), "Missing prompt variable: name")
}

func TestLLMGenerationUnknownPrompt(t *testing.T) {
	h := newHarness(t)
	err := h.runErr(t, &domain.FlowStep{
		ID: "bio", Type: "llm_generation",
		Config: map[string]any{"prompt_id": "ghost"},
	})
	assert.Contains(t, err.Error(), "Prompt 'ghost' not found in system")
}

func TestLLMGenerationMissingPromptID(t *testing.T) {
	h := newHarness(t)
	err := h.runErr(t, &domain.FlowStep{ID: "bio", Type: "llm_generation"})
	assert.Contains(t, err.Error(), "missing 'prompt_id' field")
}

func TestLLMGenerationWithoutExecutor(t *testing.T) {
	h := newHarness(t)
	h.env.Prompts = nil
	err := h.runErr(t, &domain.FlowStep{
		ID: "bio", Type: "llm_generation",
		Config: map[string]any{"prompt_id": "describe"},
	})
	assert.Contains(t, err.Error(), "requires a prompt executor")
}
