package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepStart     EventType = "step_start"
	EventStepComplete  EventType = "step_complete"
	EventActionExecute EventType = "action_execute"
	EventFlowComplete  EventType = "flow_complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	FlowID    string    `json:"flow_id"`
}

// StepEvent represents entry into or completion of a flow step.
type StepEvent struct {
	EventBase
	StepID   string         `json:"step_id"`
	StepType string         `json:"step_type"`
	Result   map[string]any `json:"result,omitempty"`
}

// ActionEvent represents one action dispatched during a step.
type ActionEvent struct {
	EventBase
	StepID string         `json:"step_id"`
	Action string         `json:"action"`
	Data   map[string]any `json:"data,omitempty"`
}

// FlowEvent represents the end of a whole flow execution.
type FlowEvent struct {
	EventBase
	Outputs map[string]any `json:"outputs,omitempty"`
	Err     error          `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability. All hooks are
// optional and must not block; they run inline with step execution.
type LifecycleHooks struct {
	OnStepStart     func(context.Context, *StepEvent)
	OnStepComplete  func(context.Context, *StepEvent)
	OnActionExecute func(context.Context, *ActionEvent)
	OnFlowComplete  func(context.Context, *FlowEvent)
}
