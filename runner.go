package grimoire

import (
	"context"
	"fmt"
	"slices"

	"github.com/wyrdbound/grimoire/internal/runtime"
	"github.com/wyrdbound/grimoire/pkg/domain"
)

// ErrNoStore is returned by session verbs when the engine was built
// without WithStore.
var ErrNoStore = fmt.Errorf("session persistence requires a state store (WithStore)")

// StartSession creates a persisted session and runs the flow under it.
// The session is checkpointed at the flow's declared resume points, so a
// failed or interrupted run can be picked up with ResumeSession. The
// session reflects the final state even when the run errors.
func (e *Engine) StartSession(ctx context.Context, flowID string, inputs map[string]any) (*domain.Session, *domain.FlowResult, error) {
	if e.sessions == nil {
		return nil, nil, ErrNoStore
	}
	if _, err := e.system.Flow(flowID); err != nil {
		return nil, nil, err
	}

	sess, err := e.sessions.Start(ctx, flowID)
	if err != nil {
		return nil, nil, err
	}

	result, runErr := e.runSession(ctx, sess, func(rt *runtime.Engine) (*domain.FlowResult, error) {
		return rt.Run(ctx, flowID, inputs)
	})
	return sess, result, runErr
}

// ResumeSession re-enters a suspended session. When the saved step is one
// of the flow's resume points execution continues there with the saved
// context; otherwise the flow restarts from the beginning with the
// session's original inputs.
func (e *Engine) ResumeSession(ctx context.Context, id string) (*domain.Session, *domain.FlowResult, error) {
	if e.sessions == nil {
		return nil, nil, ErrNoStore
	}

	sess, err := e.sessions.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status == domain.SessionCompleted {
		return sess, &domain.FlowResult{FlowID: sess.FlowID, Outputs: sess.Outputs}, nil
	}

	flow, err := e.system.Flow(sess.FlowID)
	if err != nil {
		return sess, nil, err
	}

	resumable := sess.StepID != "" && slices.Contains(flow.ResumePoints, sess.StepID)
	result, runErr := e.runSession(ctx, sess, func(rt *runtime.Engine) (*domain.FlowResult, error) {
		if resumable {
			e.logger.Info("resuming session", "session", sess.ID, "flow", sess.FlowID, "step", sess.StepID)
			return rt.Resume(ctx, sess.FlowID, sess.Context, sess.StepID)
		}
		e.logger.Info("restarting session", "session", sess.ID, "flow", sess.FlowID)
		inputs, _ := sess.Context["inputs"].(map[string]any)
		return rt.Run(ctx, sess.FlowID, inputs)
	})
	return sess, result, runErr
}

// runSession drives one execution under a session, checkpointing at
// resume points and persisting the terminal state.
func (e *Engine) runSession(ctx context.Context, sess *domain.Session, run func(*runtime.Engine) (*domain.FlowResult, error)) (*domain.FlowResult, error) {
	flow, err := e.system.Flow(sess.FlowID)
	if err != nil {
		return nil, err
	}

	checkpoint := func(ctx context.Context, cp runtime.Checkpoint) error {
		// Only top-level progress is persisted; sub-flows checkpoint
		// under their parent's resume points, not their own.
		if cp.FlowID != sess.FlowID {
			return nil
		}
		if cp.NextStepID == "" || !slices.Contains(flow.ResumePoints, cp.NextStepID) {
			return nil
		}
		sess.Status = domain.SessionRunning
		sess.StepID = cp.NextStepID
		sess.Context = cp.Context
		return e.sessions.Save(ctx, sess)
	}

	result, runErr := run(e.runtime(checkpoint))
	if runErr != nil {
		sess.Status = domain.SessionFailed
		if saveErr := e.sessions.Save(ctx, sess); saveErr != nil {
			e.logger.Warn("failed to persist failed session", "session", sess.ID, "err", saveErr)
		}
		return nil, runErr
	}

	sess.Status = domain.SessionCompleted
	sess.StepID = ""
	sess.Outputs = result.Outputs
	if err := e.sessions.Save(ctx, sess); err != nil {
		return result, fmt.Errorf("persisting completed session %s: %w", sess.ID, err)
	}
	return result, nil
}

// Sessions lists persisted session ids.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	if e.sessions == nil {
		return nil, ErrNoStore
	}
	return e.sessions.List(ctx)
}

// Session retrieves one persisted session.
func (e *Engine) Session(ctx context.Context, id string) (*domain.Session, error) {
	if e.sessions == nil {
		return nil, ErrNoStore
	}
	return e.sessions.Load(ctx, id)
}

// DeleteSession removes a persisted session.
func (e *Engine) DeleteSession(ctx context.Context, id string) error {
	if e.sessions == nil {
		return ErrNoStore
	}
	return e.sessions.Delete(ctx, id)
}
