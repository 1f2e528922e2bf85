// Package runtime drives flow execution: it instantiates inputs, walks the
// step sequence, dispatches each step to its executor, runs authored
// actions, and extracts validated outputs. Everything user-visible flows
// through the ports the engine is constructed with.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wyrdbound/grimoire/internal/actions"
	"github.com/wyrdbound/grimoire/internal/logging"
	"github.com/wyrdbound/grimoire/internal/steps"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/flowctx"
	"github.com/wyrdbound/grimoire/pkg/objects"
	"github.com/wyrdbound/grimoire/pkg/ports"
)

// maxFlowDepth bounds flow_call recursion. Authored systems never get close;
// the guard exists so a self-calling flow fails instead of blowing the stack.
const maxFlowDepth = 16

// Checkpoint is the snapshot the engine offers after each completed step.
// Session managers persist it at resume points; everyone else ignores it.
type Checkpoint struct {
	FlowID string

	// StepID is the step that just completed.
	StepID string

	// NextStepID is where execution continues, empty when the flow is about
	// to finish.
	NextStepID string

	// Context is a deep copy of the full flow context.
	Context map[string]any
}

// CheckpointFunc receives checkpoints. Returning an error aborts the flow.
type CheckpointFunc func(ctx context.Context, cp Checkpoint) error

// Engine executes flows against one immutable CompleteSystem.
type Engine struct {
	system   *domain.CompleteSystem
	objects  *objects.Service
	resolver ports.TemplateResolver

	steps   *steps.Registry
	actions *actions.Registry

	dice     ports.DiceRoller
	names    ports.NameGenerator
	prompts  ports.PromptExecutor
	interact ports.Interaction
	sink     ports.EventSink

	hooks      domain.LifecycleHooks
	checkpoint CheckpointFunc
	logger     *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithDice sets the dice collaborator.
func WithDice(d ports.DiceRoller) Option {
	return func(e *Engine) { e.dice = d }
}

// WithNames sets the name generation collaborator.
func WithNames(n ports.NameGenerator) Option {
	return func(e *Engine) { e.names = n }
}

// WithPrompts sets the LLM prompt collaborator.
func WithPrompts(p ports.PromptExecutor) Option {
	return func(e *Engine) { e.prompts = p }
}

// WithInteraction sets the handler that collects player decisions.
func WithInteraction(i ports.Interaction) Option {
	return func(e *Engine) { e.interact = i }
}

// WithSink sets the destination for display output and flow events.
func WithSink(s ports.EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithHooks registers lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithCheckpoint registers a checkpoint receiver called after every
// completed step.
func WithCheckpoint(fn CheckpointFunc) Option {
	return func(e *Engine) { e.checkpoint = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSteps replaces the step executor registry.
func WithSteps(r *steps.Registry) Option {
	return func(e *Engine) { e.steps = r }
}

// WithActions replaces the action handler registry.
func WithActions(r *actions.Registry) Option {
	return func(e *Engine) { e.actions = r }
}

// NewEngine builds an engine over a loaded system. The object service and
// resolver are required; collaborators are optional and steps that need a
// missing one fail when reached.
func NewEngine(system *domain.CompleteSystem, svc *objects.Service, resolver ports.TemplateResolver, opts ...Option) *Engine {
	e := &Engine{
		system:   system,
		objects:  svc,
		resolver: resolver,
		steps:    steps.Default(),
		actions:  actions.Default(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// System returns the system this engine executes against.
func (e *Engine) System() *domain.CompleteSystem { return e.system }

// Run executes a flow from the beginning. Every failure comes back as a
// single *domain.FlowError tagged with the flow id and, when known, the
// step that caused it.
func (e *Engine) Run(ctx context.Context, flowID string, inputs map[string]any) (*domain.FlowResult, error) {
	return e.runDepth(ctx, flowID, inputs, 0)
}

// Resume re-enters a flow at a previously checkpointed step with the saved
// context snapshot. Callers are responsible for only resuming at the flow's
// declared resume points.
func (e *Engine) Resume(ctx context.Context, flowID string, snapshot map[string]any, fromStepID string) (*domain.FlowResult, error) {
	flow, err := e.system.Flow(flowID)
	if err != nil {
		return nil, domain.WrapFlowFailure(flowID, err)
	}
	if indexOf(flow, fromStepID) < 0 {
		return nil, domain.WrapFlowFailure(flowID,
			fmt.Errorf("cannot resume at unknown step '%s'", fromStepID))
	}

	fc := flowctx.New(snapshot).WithResolver(e.resolver)
	result, err := e.execute(ctx, flow, fc, fromStepID, 0)
	if err != nil {
		return nil, domain.WrapFlowFailure(flowID, err)
	}
	return result, nil
}

func (e *Engine) runDepth(ctx context.Context, flowID string, inputs map[string]any, depth int) (*domain.FlowResult, error) {
	if depth >= maxFlowDepth {
		return nil, domain.WrapFlowFailure(flowID,
			fmt.Errorf("maximum flow call depth (%d) exceeded", maxFlowDepth))
	}

	flow, err := e.system.Flow(flowID)
	if err != nil {
		return nil, domain.WrapFlowFailure(flowID, err)
	}

	hydrated, err := e.objects.FlowInputs(flow, inputs)
	if err != nil {
		return nil, domain.WrapFlowFailure(flowID, err)
	}

	fc := flowctx.New(seedContext(flow, hydrated)).WithResolver(e.resolver)

	result, err := e.execute(ctx, flow, fc, "", depth)
	if err != nil {
		return nil, domain.WrapFlowFailure(flowID, err)
	}
	return result, nil
}

// seedContext builds the initial namespaces: hydrated inputs, plus declared
// output and variable slots pre-set to nil so templates can reference them
// before the first write.
func seedContext(flow *domain.FlowDefinition, inputs map[string]any) map[string]any {
	outputs := make(map[string]any, len(flow.Outputs))
	for _, slot := range flow.Outputs {
		outputs[slot.ID] = nil
	}
	variables := make(map[string]any, len(flow.Variables))
	for _, v := range flow.Variables {
		variables[v.ID] = nil
	}
	return map[string]any{
		"inputs":    inputs,
		"outputs":   outputs,
		"variables": variables,
	}
}

// execute runs the step loop from fromStepID (or the first step when empty)
// and extracts outputs. Errors are returned without the flow-id wrapper; the
// callers add it. The flow completion hook fires either way, carrying the
// error on failure.
func (e *Engine) execute(ctx context.Context, flow *domain.FlowDefinition, fc flowctx.Context, fromStepID string, depth int) (*domain.FlowResult, error) {
	result, err := e.executeSteps(ctx, flow, fc, fromStepID, depth)
	if err != nil {
		e.fireFlowError(ctx, flow.ID, err)
		return nil, err
	}
	return result, nil
}

func (e *Engine) executeSteps(ctx context.Context, flow *domain.FlowDefinition, fc flowctx.Context, fromStepID string, depth int) (*domain.FlowResult, error) {
	cursor := 0
	if fromStepID != "" {
		cursor = indexOf(flow, fromStepID)
	}

	env := e.stepEnv(flow, depth)
	var stepsRun []string

	for cursor >= 0 && cursor < len(flow.Steps) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := &flow.Steps[cursor]

		if step.Condition != "" {
			ok, err := fc.EvaluateBool(step.Condition)
			if err != nil {
				return nil, domain.NewStepError(step.ID, "Condition evaluation", err)
			}
			if !ok {
				e.logger.Debug("step skipped", "flow", flow.ID, "step", step.ID)
				cursor++
				continue
			}
		}

		next, nextStep, err := e.runStep(ctx, env, flow, step, &fc)
		if err != nil {
			return nil, err
		}
		stepsRun = append(stepsRun, step.ID)

		if e.checkpoint != nil {
			cp := Checkpoint{FlowID: flow.ID, StepID: step.ID, NextStepID: nextStep, Context: fc.Snapshot()}
			if err := e.checkpoint(ctx, cp); err != nil {
				return nil, fmt.Errorf("checkpoint after step '%s': %w", step.ID, err)
			}
		}
		cursor = next
	}

	outputs, err := e.extractOutputs(flow, fc)
	if err != nil {
		return nil, err
	}

	e.fireFlowComplete(ctx, flow.ID, outputs)
	return &domain.FlowResult{FlowID: flow.ID, Outputs: outputs, StepsRun: stepsRun}, nil
}

// runStep executes one step: namespace allocation, pre_actions, the typed
// executor, actions, alias cleanup and next-step selection. It returns the
// next cursor position and the id of the next step (empty at the end).
func (e *Engine) runStep(ctx context.Context, env *steps.Env, flow *domain.FlowDefinition, step *domain.FlowStep, fcp *flowctx.Context) (int, string, error) {
	fc := *fcp
	ns := "step_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	e.fireStepStart(ctx, flow.ID, step)
	e.logger.Info("executing step", "flow", flow.ID, "step", step.ID, "type", step.Type)

	fc, err := e.withActions(env, fc, step, step.PreActions)
	if err != nil {
		return 0, "", domain.NewStepError(step.ID, "Pre-action execution", err)
	}

	fc, err = e.steps.Execute(ctx, env, step, ns, fc)
	if err != nil {
		return 0, "", err
	}

	// The step's own result is visible to its actions under the documented
	// aliases. They share the namespace's lifetime.
	for _, alias := range []string{"result", "item", "results"} {
		if v, ok := fc.Get(ns + "." + alias); ok {
			fc = fc.Set(alias, v)
		}
	}

	fc, err = e.withActions(env, fc, step, step.Actions)
	if err != nil {
		return 0, "", domain.NewStepError(step.ID, "Action execution", err)
	}

	override, _ := fc.Get(ns + ".next_step_override")
	result, _ := fc.Get(ns + ".result")

	// Drop the step namespace and its aliases before control moves on.
	fc = fc.Delete(ns)
	for _, alias := range []string{"result", "item", "results"} {
		fc = fc.Delete(alias)
	}
	*fcp = fc

	e.fireStepComplete(ctx, flow.ID, step, result)

	next, nextID, err := e.nextCursor(flow, step, override)
	if err != nil {
		return 0, "", err
	}
	return next, nextID, nil
}

// nextCursor picks the next step: a choice's next_step_override wins, then
// the step's own next_step, then sequence order.
func (e *Engine) nextCursor(flow *domain.FlowDefinition, step *domain.FlowStep, override any) (int, string, error) {
	if target, ok := override.(string); ok && target != "" {
		idx := indexOf(flow, target)
		if idx < 0 {
			return 0, "", domain.NewFlowError("Choice in step %s references unknown next_step: %s", step.ID, target)
		}
		return idx, target, nil
	}

	if step.NextStep != "" {
		idx := indexOf(flow, step.NextStep)
		if idx < 0 {
			return 0, "", domain.NewFlowError("Step %s references unknown next_step: %s", step.ID, step.NextStep)
		}
		return idx, step.NextStep, nil
	}

	cur := indexOf(flow, step.ID)
	if cur < 0 || cur+1 >= len(flow.Steps) {
		return len(flow.Steps), "", nil
	}
	return cur + 1, flow.Steps[cur+1].ID, nil
}

// withActions runs a step's authored action list. Sequential steps resolve
// each action's templates just before it runs (the default inside the
// registry path); parallel steps resolve everything upfront so actions
// cannot observe each other's writes.
func (e *Engine) withActions(env *steps.Env, fc flowctx.Context, step *domain.FlowStep, list []map[string]any) (flowctx.Context, error) {
	if len(list) == 0 {
		return fc, nil
	}

	if step.Parallel {
		resolved := make([]map[string]any, 0, len(list))
		for _, action := range list {
			r, err := fc.ResolveMap(action)
			if err != nil {
				return fc, err
			}
			resolved = append(resolved, r)
		}
		for _, action := range resolved {
			var err error
			fc, err = e.actions.Run(e.actionEnv(env, step), fc, action)
			if err != nil {
				return fc, err
			}
		}
		return fc, nil
	}

	for _, action := range list {
		resolved, err := fc.ResolveMap(action)
		if err != nil {
			return fc, err
		}
		fc, err = e.actions.Run(e.actionEnv(env, step), fc, resolved)
		if err != nil {
			return fc, err
		}
	}
	return fc, nil
}

func (e *Engine) extractOutputs(flow *domain.FlowDefinition, fc flowctx.Context) (map[string]any, error) {
	outputs := make(map[string]any, len(flow.Outputs))
	for _, slot := range flow.Outputs {
		value, ok := fc.Get("outputs." + slot.ID)
		if !ok || value == nil {
			// Declared but never produced outputs are omitted, not nulled.
			continue
		}
		hydrated, err := e.objects.FlowOutput(slot, value)
		if err != nil {
			return nil, fmt.Errorf("Failed to instantiate flow outputs: %w", err)
		}
		outputs[slot.ID] = hydrated
	}
	return outputs, nil
}

func (e *Engine) stepEnv(flow *domain.FlowDefinition, depth int) *steps.Env {
	env := &steps.Env{
		System:   e.system,
		Flow:     flow,
		Objects:  e.objects,
		Actions:  e.actions,
		Dice:     e.dice,
		Names:    e.names,
		Prompts:  e.prompts,
		Interact: e.interact,
		Sink:     e.sink,
		Logger:   e.logger,
	}
	env.OnAction = func(actionType string, payload any) {
		e.fireAction(flow.ID, actionType, payload)
	}
	env.RunFlow = func(ctx context.Context, flowID string, inputs map[string]any) (map[string]any, error) {
		result, err := e.runDepth(ctx, flowID, inputs, depth+1)
		if err != nil {
			return nil, err
		}
		return result.Outputs, nil
	}
	return env
}

func (e *Engine) actionEnv(env *steps.Env, step *domain.FlowStep) *actions.Env {
	return &actions.Env{
		Flow:    env.Flow,
		Objects: e.objects,
		Sink:    e.sink,
		Logger:  e.logger,
		OnAction: func(actionType string, payload any) {
			e.fireAction(env.Flow.ID, actionType, payload)
			if e.hooks.OnActionExecute != nil {
				data, _ := payload.(map[string]any)
				e.hooks.OnActionExecute(context.Background(), &domain.ActionEvent{
					EventBase: eventBase(domain.EventActionExecute, env.Flow.ID),
					StepID:    step.ID,
					Action:    actionType,
					Data:      data,
				})
			}
		},
	}
}

func (e *Engine) fireAction(flowID, actionType string, payload any) {
	e.logger.Debug("action executed", "flow", flowID, "action", actionType)
}

func (e *Engine) fireStepStart(ctx context.Context, flowID string, step *domain.FlowStep) {
	if e.hooks.OnStepStart == nil {
		return
	}
	e.hooks.OnStepStart(ctx, &domain.StepEvent{
		EventBase: eventBase(domain.EventStepStart, flowID),
		StepID:    step.ID,
		StepType:  step.Type,
	})
}

func (e *Engine) fireStepComplete(ctx context.Context, flowID string, step *domain.FlowStep, result any) {
	if e.hooks.OnStepComplete == nil {
		return
	}
	data, _ := result.(map[string]any)
	e.hooks.OnStepComplete(ctx, &domain.StepEvent{
		EventBase: eventBase(domain.EventStepComplete, flowID),
		StepID:    step.ID,
		StepType:  step.Type,
		Result:    data,
	})
}

func (e *Engine) fireFlowComplete(ctx context.Context, flowID string, outputs map[string]any) {
	if e.hooks.OnFlowComplete == nil {
		return
	}
	e.hooks.OnFlowComplete(ctx, &domain.FlowEvent{
		EventBase: eventBase(domain.EventFlowComplete, flowID),
		Outputs:   outputs,
	})
}

func (e *Engine) fireFlowError(ctx context.Context, flowID string, err error) {
	if e.hooks.OnFlowComplete == nil {
		return
	}
	e.hooks.OnFlowComplete(ctx, &domain.FlowEvent{
		EventBase: eventBase(domain.EventFlowComplete, flowID),
		Err:       err,
	})
}

func eventBase(t domain.EventType, flowID string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now().UTC(), Type: t, FlowID: flowID}
}

func indexOf(flow *domain.FlowDefinition, stepID string) int {
	for i := range flow.Steps {
		if flow.Steps[i].ID == stepID {
			return i
		}
	}
	return -1
}
