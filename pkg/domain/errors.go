package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session id cannot be found in a store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoInteraction is returned when a flow reaches a player_input or
// player_choice step and no interaction handler was configured.
var ErrNoInteraction = errors.New("no interaction handler configured")

// InputError reports malformed caller-supplied data (wrong shape, missing
// discriminator). It is surfaced immediately and never retried.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

// NewInputError builds an InputError from a format string.
func NewInputError(format string, args ...any) *InputError {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}

// MissingFieldError reports a required flow input or attribute that was not
// provided.
type MissingFieldError struct {
	Field string
	// Slot names what kind of field is missing ("input", "attribute").
	Slot string
}

func (e *MissingFieldError) Error() string {
	slot := e.Slot
	if slot == "" {
		slot = "field"
	}
	return fmt.Sprintf("Required %s '%s' not provided", slot, e.Field)
}

// UnknownReferenceError reports an id that resolves to nothing: a model,
// table, flow, prompt or compendium entry. The message always enumerates
// the ids that would have been valid; that list is a debugging contract,
// not decoration.
type UnknownReferenceError struct {
	Kind      string
	ID        string
	Available []string

	// Detail optionally replaces the generic first sentence with call-site
	// phrasing (e.g. naming the config key holding the bad reference).
	Detail string
}

func (e *UnknownReferenceError) Error() string {
	detail := e.Detail
	if detail == "" {
		detail = fmt.Sprintf("unknown %s '%s'", e.Kind, e.ID)
	}
	if len(e.Available) == 0 {
		return detail
	}
	return fmt.Sprintf("%s. Available %s: %v", detail, plural(e.Kind), e.Available)
}

func plural(kind string) string {
	if strings.HasSuffix(kind, "y") {
		return kind[:len(kind)-1] + "ies"
	}
	return kind + "s"
}

// FlowError wraps any failure during step or action execution with the
// originating step id. It is the single error type flow execution lets
// propagate to the caller; there is no partial-success result.
type FlowError struct {
	FlowID string
	StepID string

	// Op names what was being attempted when StepID is set, e.g.
	// "Step execution" or "Action execution".
	Op  string
	Err error
}

func (e *FlowError) Error() string {
	switch {
	case e.FlowID != "":
		return fmt.Sprintf("Flow execution failed for %s: %v", e.FlowID, e.Err)
	case e.StepID != "":
		op := e.Op
		if op == "" {
			op = "Step execution"
		}
		return fmt.Sprintf("%s failed in step '%s': %v", op, e.StepID, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "flow execution failed"
	}
}

func (e *FlowError) Unwrap() error { return e.Err }

// NewFlowError wraps a plain message, without step attribution.
func NewFlowError(format string, args ...any) *FlowError {
	return &FlowError{Err: fmt.Errorf(format, args...)}
}

// NewStepError attributes an error to a step.
func NewStepError(stepID, op string, err error) *FlowError {
	return &FlowError{StepID: stepID, Op: op, Err: err}
}

// WrapFlowFailure tags the terminal error of a flow run with the flow id,
// keeping the originating step id when the cause already carries one.
func WrapFlowFailure(flowID string, err error) *FlowError {
	var fe *FlowError
	stepID := ""
	if errors.As(err, &fe) {
		stepID = fe.StepID
	}
	return &FlowError{FlowID: flowID, StepID: stepID, Err: err}
}
