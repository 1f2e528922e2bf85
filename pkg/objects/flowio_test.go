package objects_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

func testFlow() *domain.FlowDefinition {
	return &domain.FlowDefinition{
		ID:   "create-character",
		Kind: "flow",
		Name: "Create Character",
		Inputs: []domain.FlowInputOutput{
			{Type: "str", ID: "player_name", Required: true},
			{Type: "int", ID: "starting_level"},
			{Type: "character", ID: "template"},
			{Type: "mystery", ID: "blob"},
		},
		Outputs: []domain.FlowInputOutput{
			{Type: "character", ID: "character", Validate: true},
			{Type: "str", ID: "summary"},
		},
		Variables: []domain.FlowVariable{
			{Type: "int", ID: "rolls"},
		},
	}
}

func TestFlowInputsRequiresDeclaredInputs(t *testing.T) {
	svc := newService(t)

	_, err := svc.FlowInputs(testFlow(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to instantiate flow inputs")
	assert.Contains(t, err.Error(), "Required input 'player_name' not provided")

	var missing *domain.MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "player_name", missing.Field)
}

func TestFlowInputsCoercesPrimitives(t *testing.T) {
	svc := newService(t)

	out, err := svc.FlowInputs(testFlow(), map[string]any{
		"player_name":    "Ada",
		"starting_level": "3",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", out["player_name"])
	assert.Equal(t, 3, out["starting_level"])
}

func TestFlowInputsOmitsMissingOptionals(t *testing.T) {
	svc := newService(t)

	out, err := svc.FlowInputs(testFlow(), map[string]any{"player_name": "Ada"})
	require.NoError(t, err)
	assert.NotContains(t, out, "starting_level")
	assert.NotContains(t, out, "template")
}

func TestFlowInputsBuildsModelDrafts(t *testing.T) {
	svc := newService(t)

	out, err := svc.FlowInputs(testFlow(), map[string]any{
		"player_name": "Ada",
		"template":    map[string]any{"name": "Kargh"},
	})
	require.NoError(t, err)

	tmpl, ok := out["template"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "character", tmpl["model"])
	assert.Equal(t, "Kargh", tmpl["name"])
	assert.Equal(t, 1, tmpl["level"])
}

func TestFlowInputsPassesUnknownTypesThrough(t *testing.T) {
	svc := newService(t)

	out, err := svc.FlowInputs(testFlow(), map[string]any{
		"player_name": "Ada",
		"blob":        []any{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, out["blob"])
}

func TestFlowInputsRejectsUncoercibleValues(t *testing.T) {
	svc := newService(t)

	_, err := svc.FlowInputs(testFlow(), map[string]any{
		"player_name":    "Ada",
		"starting_level": "three",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to instantiate flow inputs")
	assert.Contains(t, err.Error(), "Cannot convert input 'starting_level' value 'three' to type 'int'")
}

func TestFlowOutputValidatesFlaggedSlots(t *testing.T) {
	svc := newService(t)
	flow := testFlow()

	_, err := svc.FlowOutput(flow.Outputs[0], map[string]any{"level": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to create character object")

	out, err := svc.FlowOutput(flow.Outputs[0], map[string]any{"name": "Kargh"})
	require.NoError(t, err)
	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "character", m["model"])
	assert.Equal(t, 10, m["strength"])
}

func TestExpectedTypeWalksDeclarations(t *testing.T) {
	svc := newService(t)
	flow := testFlow()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"inputs.player_name", "str", true},
		{"inputs.starting_level", "int", true},
		{"variables.rolls", "int", true},
		{"outputs.character", "character", true},
		{"outputs.character.strength", "int", true},
		{"outputs.character.weapon.damage", "str", true},
		{"outputs.character.gear", "list", true},
		{"outputs.character.gear.0", "str", true},
		{"outputs.character.nope", "", false},
		{"outputs.ghost", "", false},
		{"result", "", false},
		{"step_abc.value", "", false},
	}
	for _, tt := range tests {
		got, ok := svc.ExpectedType(flow, tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestCoerceToTypePrimitives(t *testing.T) {
	svc := newService(t)

	v, err := svc.CoerceToType("5", "int")
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	_, err = svc.CoerceToType("five", "int")
	require.Error(t, err)

	v, err = svc.CoerceToType("anything", "any")
	require.NoError(t, err)
	assert.Equal(t, "anything", v)
}

func TestCoerceToTypeInstantiatesModels(t *testing.T) {
	svc := newService(t)

	v, err := svc.CoerceToType(map[string]any{"name": "Kargh"}, "character")
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "character", m["model"])
	assert.Equal(t, 1, m["level"])
}

func TestCoerceToTypeDefersModelValidationFailures(t *testing.T) {
	svc := newService(t)

	raw := map[string]any{"level": 99}
	v, err := svc.CoerceToType(raw, "character")
	require.NoError(t, err)
	assert.Equal(t, raw, v)

	v, err = svc.CoerceToType("not-a-map", "character")
	require.NoError(t, err)
	assert.Equal(t, "not-a-map", v)
}
