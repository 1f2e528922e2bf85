// Package actions implements the side-effect verbs a flow step can list
// under pre_actions and actions: context writes, validation, display and
// logging. Handlers are dispatched by name through a registry so embedders
// can add their own verbs next to the built-in set.
package actions

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/wyrdbound/grimoire/internal/logging"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/flowctx"
	"github.com/wyrdbound/grimoire/pkg/objects"
	"github.com/wyrdbound/grimoire/pkg/ports"
)

// Built-in action names.
const (
	SetValue       = "set_value"
	SwapValues     = "swap_values"
	ValidateValue  = "validate_value"
	DisplayValue   = "display_value"
	DisplayMessage = "display_message"
	LogMessage     = "log_message"
	LogEvent       = "log_event"
)

// Env is the execution environment handlers run against. The engine builds
// one per flow run.
type Env struct {
	Flow    *domain.FlowDefinition
	Objects *objects.Service
	Sink    ports.EventSink
	Logger  *slog.Logger

	// OnAction receives lifecycle notifications. Display handlers invoke it
	// themselves with their rendered text; the registry invokes it for
	// every other action after its handler succeeds.
	OnAction func(actionType string, payload any)
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

func (e *Env) notify(actionType string, payload any) {
	if e.OnAction != nil {
		e.OnAction(actionType, payload)
	}
}

func (e *Env) message(text string) {
	if e.Sink != nil {
		e.Sink.Message(text)
	}
}

// HandlerFunc executes one action. The action payload is the value under
// the action's type key, templates already resolved except where a handler
// documents otherwise. Handlers return the possibly-updated flow context.
type HandlerFunc func(env *Env, fc flowctx.Context, payload any) (flowctx.Context, error)

// Registry maps action type names to handlers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Default returns a registry with every built-in action registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(SetValue, handleSetValue)
	r.Register(SwapValues, handleSwapValues)
	r.Register(ValidateValue, handleValidateValue)
	r.Register(DisplayValue, handleDisplayValue)
	r.Register(DisplayMessage, handleDisplayMessage)
	r.Register(LogMessage, handleLogMessage)
	r.Register(LogEvent, handleLogEvent)
	return r
}

// Register adds a handler. An existing handler with the same name is
// overwritten.
func (r *Registry) Register(name string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Names returns the sorted registered action names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether an action type is registered.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Run executes one authored action mapping, {action_type: payload}. A
// mapping with several keys runs each in sorted key order. Unknown action
// types log a warning and are skipped; load-time validation already
// reported them as authoring mistakes. Handler failures wrap the action
// type into the error.
func (r *Registry) Run(env *Env, fc flowctx.Context, action map[string]any) (flowctx.Context, error) {
	names := make([]string, 0, len(action))
	for name := range action {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r.mu.RLock()
		fn, ok := r.handlers[name]
		r.mu.RUnlock()
		if !ok {
			env.logger().Warn("Unknown action type", "action", name)
			continue
		}

		next, err := fn(env, fc, action[name])
		if err != nil {
			return fc, fmt.Errorf("Action execution failed (%s): %w", name, err)
		}
		fc = next

		if !IsDisplayAction(name) {
			env.notify(name, action[name])
		}
	}
	return fc, nil
}

// IsDisplayAction reports whether the action renders user-facing output and
// therefore drives the lifecycle callback itself.
func IsDisplayAction(name string) bool {
	return name == DisplayValue || name == DisplayMessage
}
