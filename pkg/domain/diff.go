package domain

import (
	"reflect"
)

// SessionDiff represents the changes between two session snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	StepID *string        `json:"step_id,omitempty"`
	Status *SessionStatus `json:"status,omitempty"`

	// Context contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	// Clients should merge these updates into their local state.
	Context map[string]any `json:"context,omitempty"`

	// Outputs is sent whole once the session completes.
	Outputs map[string]any `json:"outputs,omitempty"`
}

// DiffSessions calculates the difference between two snapshots of the same
// session. If old is nil, the diff represents the entire new snapshot
// (initial load). Returns nil when nothing changed.
func DiffSessions(old, new *Session) *SessionDiff {
	if new == nil {
		return nil
	}

	diff := &SessionDiff{SessionID: new.ID}

	if old == nil || old.StepID != new.StepID {
		diff.StepID = &new.StepID
	}
	if old == nil || old.Status != new.Status {
		diff.Status = &new.Status
	}
	diff.Context = diffContext(old, new)
	if new.Status == SessionCompleted && (old == nil || old.Status != SessionCompleted) {
		diff.Outputs = new.Outputs
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffContext(old, new *Session) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Context {
			delta[k] = v
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVal := range new.Context {
		oldVal, exists := old.Context[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}
	for k := range old.Context {
		if _, exists := new.Context[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.StepID == nil &&
		d.Status == nil &&
		len(d.Context) == 0 &&
		len(d.Outputs) == 0
}
