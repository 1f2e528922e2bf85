package actions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrdbound/grimoire/internal/actions"
	"github.com/wyrdbound/grimoire/pkg/adapters/exprtmpl"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/flowctx"
	"github.com/wyrdbound/grimoire/pkg/objects"
)

type recordingSink struct {
	messages []string
	events   []string
}

func (s *recordingSink) Message(text string) { s.messages = append(s.messages, text) }
func (s *recordingSink) Event(name string, data map[string]any) {
	s.events = append(s.events, name)
}

type notification struct {
	action  string
	payload any
}

func testEnv(t *testing.T) (*actions.Env, *recordingSink, *[]notification) {
	t.Helper()

	sys := domain.NewCompleteSystem(domain.SystemDefinition{ID: "test"})
	sys.Models["character"] = &domain.ModelDefinition{
		ID: "character",
		Attributes: map[string]domain.AttributeDefinition{
			"name":     {Type: "str"},
			"strength": {Type: "int", Default: 10},
		},
	}
	svc, err := objects.NewService(sys, objects.WithResolver(exprtmpl.New()))
	require.NoError(t, err)

	flow := &domain.FlowDefinition{
		ID: "test-flow",
		Outputs: []domain.FlowInputOutput{
			{Type: "int", ID: "score"},
			{Type: "character", ID: "hero"},
		},
	}

	sink := &recordingSink{}
	var notes []notification
	env := &actions.Env{
		Flow:    flow,
		Objects: svc,
		Sink:    sink,
		OnAction: func(action string, payload any) {
			notes = append(notes, notification{action, payload})
		},
	}
	return env, sink, &notes
}

func testContext(data map[string]any) flowctx.Context {
	return flowctx.New(data).WithResolver(exprtmpl.New())
}

func TestSetValueWritesResolvedValue(t *testing.T) {
	env, _, _ := testEnv(t)
	fc := testContext(map[string]any{
		"inputs":    map[string]any{"count": 3},
		"variables": map[string]any{},
	})

	fc, err := actions.Default().Run(env, fc, map[string]any{
		"set_value": map[string]any{"path": "variables.total", "value": "{{ inputs.count }}"},
	})
	require.NoError(t, err)

	v, ok := fc.Get("variables.total")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestSetValueResolvesTemplatedPath(t *testing.T) {
	env, _, _ := testEnv(t)
	fc := testContext(map[string]any{
		"variables": map[string]any{"slot": "score"},
		"outputs":   map[string]any{},
	})

	fc, err := actions.Default().Run(env, fc, map[string]any{
		"set_value": map[string]any{"path": "outputs.{{ variables.slot }}", "value": 7},
	})
	require.NoError(t, err)

	v, ok := fc.Get("outputs.score")
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestSetValueCoercesDeclaredSlots(t *testing.T) {
	env, _, _ := testEnv(t)
	fc := testContext(map[string]any{"outputs": map[string]any{}})

	fc, err := actions.Default().Run(env, fc, map[string]any{
		"set_value": map[string]any{"path": "outputs.score", "value": "42"},
	})
	require.NoError(t, err)

	v, _ := fc.Get("outputs.score")
	assert.Equal(t, 42, v)

	fc, err = actions.Default().Run(env, fc, map[string]any{
		"set_value": map[string]any{"path": "outputs.hero.strength", "value": "15"},
	})
	require.NoError(t, err)

	v, _ = fc.Get("outputs.hero.strength")
	assert.Equal(t, 15, v)
}

func TestSetValueRequiresPath(t *testing.T) {
	env, _, _ := testEnv(t)
	fc := testContext(nil)

	_, err := actions.Default().Run(env, fc, map[string]any{
		"set_value": map[string]any{"value": 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Action execution failed (set_value)")
	assert.Contains(t, err.Error(), "set_value action requires 'path' field")
}

func TestSwapValuesExchangesPaths(t *testing.T) {
	env, _, _ := testEnv(t)
	fc := testContext(map[string]any{
		"variables": map[string]any{"a": 1, "b": 2},
	})

	swap := map[string]any{
		"swap_values": map[string]any{"path1": "variables.a", "path2": "variables.b"},
	}

	fc, err := actions.Default().Run(env, fc, swap)
	require.NoError(t, err)
	a, _ := fc.Get("variables.a")
	b, _ := fc.Get("variables.b")
	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)

	// Swapping twice restores the original arrangement.
	fc, err = actions.Default().Run(env, fc, swap)
	require.NoError(t, err)
	a, _ = fc.Get("variables.a")
	b, _ = fc.Get("variables.b")
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestSwapValuesRequiresBothPaths(t *testing.T) {
	env, _, _ := testEnv(t)
	fc := testContext(map[string]any{"variables": map[string]any{"a": 1}})

	_, err := actions.Default().Run(env, fc, map[string]any{
		"swap_values": map[string]any{"path1": "variables.a"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "swap_values requires both 'path1' and 'path2' fields")
}

func TestSwapValuesMissingPath(t *testing.T) {
	env, _, _ := testEnv(t)
	fc := testContext(map[string]any{"variables": map[string]any{"a": 1}})

	_, err := actions.Default().Run(env, fc, map[string]any{
		"swap_values": map[string]any{"path1": "variables.a", "path2": "variables.ghost"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot swap: path not found: variables.ghost")
}

func TestValidateValueChecksModelObjects(t *testing.T) {
	env, _, _ := testEnv(t)
	fc := testContext(map[string]any{
		"outputs": map[string]any{
			"hero":   map[string]any{"model": "character", "name": "Kargh"},
			"broken": map[string]any{"model": "character"},
			"plain":  "just a string",
			"untyped": map[string]any{
				"name": "no model tag",
			},
		},
	})

	_, err := actions.Default().Run(env, fc, map[string]any{"validate_value": "outputs.hero"})
	require.NoError(t, err)

	_, err = actions.Default().Run(env, fc, map[string]any{"validate_value": "outputs.broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Validation failed for outputs.broken")
	assert.Contains(t, err.Error(), `"name"`)

	// Non-objects and untagged mappings are not validated.
	_, err = actions.Default().Run(env, fc, map[string]any{"validate_value": "outputs.plain"})
	require.NoError(t, err)
	_, err = actions.Default().Run(env, fc, map[string]any{"validate_value": "outputs.untyped"})
	require.NoError(t, err)
}

func TestValidateValueMissingPath(t *testing.T) {
	env, _, _ := testEnv(t)
	fc := testContext(nil)

	_, err := actions.Default().Run(env, fc, map[string]any{"validate_value": "outputs.ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot validate: path not found: outputs.ghost")
}

func TestDisplayValueShowsValue(t *testing.T) {
	env, sink, notes := testEnv(t)
	fc := testContext(map[string]any{"outputs": map[string]any{"score": 5}})

	_, err := actions.Default().Run(env, fc, map[string]any{"display_value": "outputs.score"})
	require.NoError(t, err)
	require.Len(t, sink.messages, 1)
	assert.Equal(t, "outputs.score: 5", sink.messages[0])

	require.Len(t, *notes, 1)
	assert.Equal(t, "display_value", (*notes)[0].action)
	assert.Equal(t, "outputs.score: 5", (*notes)[0].payload)
}

func TestDisplayValueMissingPathIsNotFatal(t *testing.T) {
	env, sink, _ := testEnv(t)
	fc := testContext(nil)

	_, err := actions.Default().Run(env, fc, map[string]any{"display_value": "outputs.ghost"})
	require.NoError(t, err)
	require.Len(t, sink.messages, 1)
	assert.Equal(t, "Cannot display: path not found: outputs.ghost", sink.messages[0])
}

func TestDisplayMessageRendersTemplate(t *testing.T) {
	env, sink, notes := testEnv(t)
	fc := testContext(map[string]any{"inputs": map[string]any{"name": "Ada"}})

	_, err := actions.Default().Run(env, fc, map[string]any{
		"display_message": "Welcome, {{ inputs.name }}!",
	})
	require.NoError(t, err)
	require.Len(t, sink.messages, 1)
	assert.Equal(t, "Welcome, Ada!", sink.messages[0])
	require.Len(t, *notes, 1)
	assert.Equal(t, "display_message", (*notes)[0].action)
}

func TestDisplayMessageMapForm(t *testing.T) {
	env, sink, _ := testEnv(t)
	fc := testContext(nil)

	_, err := actions.Default().Run(env, fc, map[string]any{
		"display_message": map[string]any{"message": "plain text"},
	})
	require.NoError(t, err)
	require.Len(t, sink.messages, 1)
	assert.Equal(t, "plain text", sink.messages[0])
}

func TestLogMessageStaysOffTheSink(t *testing.T) {
	env, sink, notes := testEnv(t)
	fc := testContext(map[string]any{"inputs": map[string]any{"name": "Ada"}})

	_, err := actions.Default().Run(env, fc, map[string]any{
		"log_message": "starting for {{ inputs.name }}",
	})
	require.NoError(t, err)
	assert.Empty(t, sink.messages)
	require.Len(t, *notes, 1)
	assert.Equal(t, "log_message", (*notes)[0].action)
}

func TestLogEventEmitsToSink(t *testing.T) {
	env, sink, _ := testEnv(t)
	fc := testContext(map[string]any{"inputs": map[string]any{"name": "Ada"}})

	_, err := actions.Default().Run(env, fc, map[string]any{
		"log_event": map[string]any{
			"type": "character_created",
			"data": map[string]any{"who": "{{ inputs.name }}"},
		},
	})
	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "character_created", sink.events[0])
}

func TestLogEventDefaults(t *testing.T) {
	env, sink, _ := testEnv(t)
	fc := testContext(nil)

	_, err := actions.Default().Run(env, fc, map[string]any{"log_event": map[string]any{}})
	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "unknown", sink.events[0])
}

func TestRunSkipsUnknownActions(t *testing.T) {
	env, sink, notes := testEnv(t)
	fc := testContext(nil)

	_, err := actions.Default().Run(env, fc, map[string]any{
		"teleport": map[string]any{"to": "the moon"},
	})
	require.NoError(t, err)
	assert.Empty(t, sink.messages)
	assert.Empty(t, *notes)
}

func TestRegistryCustomHandler(t *testing.T) {
	env, _, _ := testEnv(t)
	reg := actions.NewRegistry()
	reg.Register("stamp", func(env *actions.Env, fc flowctx.Context, payload any) (flowctx.Context, error) {
		return fc.Set("variables.stamped", true), nil
	})

	fc := testContext(map[string]any{"variables": map[string]any{}})
	fc, err := reg.Run(env, fc, map[string]any{"stamp": nil})
	require.NoError(t, err)

	v, _ := fc.Get("variables.stamped")
	assert.Equal(t, true, v)
	assert.True(t, reg.Known("stamp"))
	assert.Equal(t, []string{"stamp"}, reg.Names())
}
