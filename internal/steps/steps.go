// Package steps implements the typed step executors a flow dispatches on:
// dice, tables, player interaction, LLM prompts, conditionals and sub-flow
// calls. Executors share a registry keyed by the step's type tag.
package steps

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/wyrdbound/grimoire/internal/actions"
	"github.com/wyrdbound/grimoire/internal/logging"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/flowctx"
	"github.com/wyrdbound/grimoire/pkg/objects"
	"github.com/wyrdbound/grimoire/pkg/ports"
)

// Env is everything an executor may need: the system being played, the
// collaborator ports, the action registry for choice/table/branch actions,
// and a seam back into the engine for sub-flow calls.
type Env struct {
	System  *domain.CompleteSystem
	Flow    *domain.FlowDefinition
	Objects *objects.Service
	Actions *actions.Registry

	Dice     ports.DiceRoller
	Names    ports.NameGenerator
	Prompts  ports.PromptExecutor
	Interact ports.Interaction
	Sink     ports.EventSink
	Logger   *slog.Logger

	// OnAction forwards action lifecycle notifications to the engine.
	OnAction func(actionType string, payload any)

	// RunFlow executes a sub-flow and returns its outputs. Wired by the
	// engine; nil outside of it.
	RunFlow func(ctx context.Context, flowID string, inputs map[string]any) (map[string]any, error)
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

func (e *Env) actionEnv() *actions.Env {
	return &actions.Env{
		Flow:     e.Flow,
		Objects:  e.Objects,
		Sink:     e.Sink,
		Logger:   e.Logger,
		OnAction: e.OnAction,
	}
}

// runActions executes a list of authored actions, resolving each action's
// templates just before it runs so later actions see earlier writes.
func (e *Env) runActions(fc flowctx.Context, list []map[string]any) (flowctx.Context, error) {
	reg := e.Actions
	if reg == nil {
		reg = actions.Default()
	}
	for _, action := range list {
		resolved, err := fc.ResolveMap(action)
		if err != nil {
			return fc, err
		}
		fc, err = reg.Run(e.actionEnv(), fc, resolved)
		if err != nil {
			return fc, err
		}
	}
	return fc, nil
}

// ExecFunc runs one step. ns is the step's private context namespace
// ("step_<uuid>"); executors store their result at ns.result and may set
// ns.next_step_override to redirect flow control.
type ExecFunc func(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error)

type entry struct {
	label string
	fn    ExecFunc
}

// Registry maps step type tags to executors. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	execs map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{execs: make(map[string]entry)}
}

// Default returns a registry with every built-in step type registered,
// including the conditional_branch alias.
func Default() *Registry {
	r := NewRegistry()
	r.Register(domain.StepCompletion, "", execCompletion)
	r.Register(domain.StepPlayerInput, "Player input", execPlayerInput)
	r.Register(domain.StepPlayerChoice, "Player choice", execPlayerChoice)
	r.Register(domain.StepDiceRoll, "Dice roll", execDiceRoll)
	r.Register(domain.StepDiceSequence, "Dice sequence", execDiceSequence)
	r.Register(domain.StepTableRoll, "Table roll", execTableRoll)
	r.Register(domain.StepLLMGeneration, "LLM generation", execLLMGeneration)
	r.Register(domain.StepNameGeneration, "Name generation", execNameGeneration)
	r.Register(domain.StepConditional, "Conditional branch", execConditional)
	r.Register("conditional_branch", "Conditional branch", execConditional)
	r.Register(domain.StepFlowCall, "", execFlowCall)
	return r
}

// Register adds an executor for a type tag. label is the human operation
// name used when attributing failures ("Dice roll failed in step 'x'");
// empty means the executor produces fully-attributed errors itself.
func (r *Registry) Register(typeTag, label string, fn ExecFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs[typeTag] = entry{label: label, fn: fn}
}

// Known reports whether a step type is registered.
func (r *Registry) Known(typeTag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.execs[typeTag]
	return ok
}

// Names returns the sorted registered type tags.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.execs))
	for name := range r.execs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute dispatches a step to its executor. Failures are attributed to the
// step id.
func (r *Registry) Execute(ctx context.Context, env *Env, step *domain.FlowStep, ns string, fc flowctx.Context) (flowctx.Context, error) {
	r.mu.RLock()
	e, ok := r.execs[step.Type]
	r.mu.RUnlock()
	if !ok {
		return fc, domain.NewStepError(step.ID, "Step execution",
			fmt.Errorf("Unknown step type: %s", step.Type))
	}

	out, err := e.fn(ctx, env, step, ns, fc)
	if err != nil {
		if e.label == "" {
			return fc, err
		}
		return fc, domain.NewStepError(step.ID, e.label, err)
	}
	return out, nil
}

// resolveIfTemplate resolves strings still carrying {{ }} markers; the
// engine resolves most step fields upfront, so this is usually a no-op.
func resolveIfTemplate(fc flowctx.Context, v any) (any, error) {
	s, ok := v.(string)
	if !ok || !strings.Contains(s, "{{") {
		return v, nil
	}
	return fc.Resolve(s)
}

func resolveString(fc flowctx.Context, s string) (string, error) {
	v, err := resolveIfTemplate(fc, s)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

// toActionList normalizes a decoded YAML list into action mappings.
func toActionList(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		if direct, ok := v.([]map[string]any); ok {
			return direct
		}
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
