package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiffSessions(t *testing.T) {
	running := SessionRunning
	completed := SessionCompleted
	stepRoll := "roll-stats"
	stepDone := "wrap-up"

	tests := []struct {
		name string
		old  *Session
		new  *Session
		want *SessionDiff
	}{
		{
			name: "initial load when old is nil",
			old:  nil,
			new: &Session{
				ID:      "sess-1",
				FlowID:  "character-creation",
				Status:  SessionRunning,
				StepID:  "roll-stats",
				Context: map[string]any{"inputs": map[string]any{"seed": 7}},
			},
			want: &SessionDiff{
				SessionID: "sess-1",
				StepID:    &stepRoll,
				Status:    &running,
				Context:   map[string]any{"inputs": map[string]any{"seed": 7}},
			},
		},
		{
			name: "no changes",
			old: &Session{
				ID:      "sess-1",
				Status:  SessionRunning,
				StepID:  "roll-stats",
				Context: map[string]any{"a": 1},
			},
			new: &Session{
				ID:      "sess-1",
				Status:  SessionRunning,
				StepID:  "roll-stats",
				Context: map[string]any{"a": 1},
			},
			want: nil,
		},
		{
			name: "step advance with context change and deletion",
			old: &Session{
				ID:      "sess-1",
				Status:  SessionRunning,
				StepID:  "roll-stats",
				Context: map[string]any{"a": 1, "b": 2},
			},
			new: &Session{
				ID:      "sess-1",
				Status:  SessionRunning,
				StepID:  "wrap-up",
				Context: map[string]any{"a": 3},
			},
			want: &SessionDiff{
				SessionID: "sess-1",
				StepID:    &stepDone,
				Context:   map[string]any{"a": 3, "b": nil},
			},
		},
		{
			name: "completion sends outputs whole",
			old: &Session{
				ID:      "sess-1",
				Status:  SessionRunning,
				StepID:  "wrap-up",
				Context: map[string]any{"a": 3},
			},
			new: &Session{
				ID:      "sess-1",
				Status:  SessionCompleted,
				StepID:  "wrap-up",
				Context: map[string]any{"a": 3},
				Outputs: map[string]any{"hero": map[string]any{"name": "Borin"}},
			},
			want: &SessionDiff{
				SessionID: "sess-1",
				Status:    &completed,
				Outputs:   map[string]any{"hero": map[string]any{"name": "Borin"}},
			},
		},
		{
			name: "new is nil",
			old:  &Session{ID: "sess-1"},
			new:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiffSessions(tt.old, tt.new)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil diff, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected diff %+v, got nil", tt.want)
			}
			if got.SessionID != tt.want.SessionID {
				t.Errorf("SessionID = %q, want %q", got.SessionID, tt.want.SessionID)
			}
			if !reflect.DeepEqual(got.StepID, tt.want.StepID) {
				t.Errorf("StepID = %v, want %v", got.StepID, tt.want.StepID)
			}
			if !reflect.DeepEqual(got.Status, tt.want.Status) {
				t.Errorf("Status = %v, want %v", got.Status, tt.want.Status)
			}
			if !reflect.DeepEqual(got.Context, tt.want.Context) {
				t.Errorf("Context = %v, want %v", got.Context, tt.want.Context)
			}
			if !reflect.DeepEqual(got.Outputs, tt.want.Outputs) {
				t.Errorf("Outputs = %v, want %v", got.Outputs, tt.want.Outputs)
			}
		})
	}
}

func TestSessionDiffJSONOmitsEmptyFields(t *testing.T) {
	old := &Session{ID: "sess-9", Status: SessionRunning, StepID: "a", Context: map[string]any{"x": 1}}
	new := &Session{ID: "sess-9", Status: SessionRunning, StepID: "b", Context: map[string]any{"x": 1}}

	diff := DiffSessions(old, new)
	if diff == nil {
		t.Fatal("expected a diff")
	}

	raw, err := json.Marshal(diff)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	if !strings.Contains(body, `"step_id":"b"`) {
		t.Errorf("expected step_id in payload, got %s", body)
	}
	if strings.Contains(body, "status") {
		t.Errorf("unchanged status should be omitted, got %s", body)
	}
	if strings.Contains(body, "outputs") {
		t.Errorf("outputs should be omitted before completion, got %s", body)
	}
}

func TestSessionDiffDeletionSurvivesJSON(t *testing.T) {
	old := &Session{ID: "s", Status: SessionRunning, Context: map[string]any{"gone": 1}}
	new := &Session{ID: "s", Status: SessionRunning, Context: map[string]any{}}

	diff := DiffSessions(old, new)
	if diff == nil {
		t.Fatal("expected a diff")
	}

	raw, err := json.Marshal(diff)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"gone":null`) {
		t.Errorf("deleted key must serialize as explicit null, got %s", raw)
	}
}
