package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrdbound/grimoire"
	"github.com/wyrdbound/grimoire/pkg/adapters/memory"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/runner"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	src, err := memory.NewFromDocuments(
		map[string]any{"kind": "system", "id": "mini", "name": "Mini"},
		map[string]any{
			"kind": "flow",
			"id":   "stash",
			"inputs": []any{
				map[string]any{"type": "int", "id": "amount", "required": true},
			},
			"outputs": []any{
				map[string]any{"type": "int", "id": "total"},
			},
			"steps": []any{
				map[string]any{
					"id":   "tally",
					"type": "completion",
					"actions": []any{
						map[string]any{"set_value": map[string]any{"path": "outputs.total", "value": "{{ inputs.amount }}"}},
					},
				},
			},
		},
		map[string]any{
			"kind": "flow",
			"id":   "name-hero",
			"outputs": []any{
				map[string]any{"type": "str", "id": "hero_name"},
			},
			"resume_points": []any{"ask"},
			"steps": []any{
				map[string]any{"id": "init", "type": "completion"},
				map[string]any{
					"id":     "ask",
					"type":   "player_input",
					"prompt": "Name your hero.",
					"output": "outputs.hero_name",
				},
			},
		},
	)
	require.NoError(t, err)

	eng, err := grimoire.New("",
		grimoire.WithSource(src),
		grimoire.WithInteraction(runner.Scripted{}),
		grimoire.WithStore(memory.NewStore()),
	)
	require.NoError(t, err)
	return NewServer(eng)
}

func TestHandleRunFlow(t *testing.T) {
	s := testServer(t)

	result, err := s.handleRunFlow(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"flow_id": "name-hero",
		"answers": `["Brannic"]`,
	})
	require.NoError(t, err)
	assert.Equal(t, "name-hero", result.FlowID)
	assert.Equal(t, "Brannic", result.Outputs["hero_name"])
}

func TestHandleRunFlowValidatesDeclaredInputs(t *testing.T) {
	s := testServer(t)

	_, err := s.handleRunFlow(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"flow_id": "stash",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "amount": required`)

	_, err = s.handleRunFlow(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"flow_id": "stash",
		"inputs":  `{"amount": "lots"}`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected int")

	result, err := s.handleRunFlow(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"flow_id": "stash",
		"inputs":  `{"amount": 21}`,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 21, result.Outputs["total"])
}

func TestHandleRunFlowRejectsMalformedAnswers(t *testing.T) {
	s := testServer(t)

	_, err := s.handleRunFlow(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"flow_id": "name-hero",
		"answers": `{"not":"an array"}`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answers must be a JSON array")
}

func TestSessionToolsSuspendAndResume(t *testing.T) {
	s := testServer(t)

	// No answers: the run checkpoints at the input step and stops.
	started, err := s.handleStartSession(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"flow_id": "name-hero",
	})
	require.NoError(t, err)
	require.NotNil(t, started.Session)
	assert.Equal(t, domain.SessionFailed, started.Session.Status)
	assert.Equal(t, "ask", started.Session.StepID)
	assert.Contains(t, started.Error, "waiting for player input")

	resumed, err := s.handleResumeSession(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"session_id": started.Session.ID,
		"answers":    `["Wren"]`,
	})
	require.NoError(t, err)
	assert.Empty(t, resumed.Error)
	assert.Equal(t, domain.SessionCompleted, resumed.Session.Status)
	assert.Equal(t, "Wren", resumed.Outputs["hero_name"])
}

func TestParseRunArgs(t *testing.T) {
	inputs, answers, err := parseRunArgs(map[string]any{
		"inputs":  `{"character_name":"Wren"}`,
		"answers": `["bow", 2]`,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"character_name": "Wren"}, inputs)
	assert.Equal(t, []any{"bow", float64(2)}, answers)

	_, _, err = parseRunArgs(map[string]any{"inputs": `not json`})
	assert.ErrorContains(t, err, "inputs must be a JSON object")
}
