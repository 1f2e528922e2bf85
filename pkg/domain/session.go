package domain

import "time"

// SessionStatus is the lifecycle state of a flow session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionWaiting   SessionStatus = "waiting"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session is the persistable snapshot of a flow execution. It is saved at
// resume points so a run can stop and continue later, possibly in another
// process.
type Session struct {
	ID     string        `json:"id"`
	FlowID string        `json:"flow_id"`
	Status SessionStatus `json:"status"`

	// StepID is the id of the step the session stopped at.
	StepID string `json:"step_id,omitempty"`

	// Context is the full context snapshot (inputs, outputs, variables).
	Context map[string]any `json:"context,omitempty"`

	// Outputs is filled once the session completes.
	Outputs map[string]any `json:"outputs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a pending session for a flow.
func NewSession(id, flowID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		FlowID:    flowID,
		Status:    SessionPending,
		Context:   make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the modification timestamp.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}
