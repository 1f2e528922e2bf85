package grimoire

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/wyrdbound/grimoire/internal/logging"
	"github.com/wyrdbound/grimoire/internal/runtime"
	diceAdapter "github.com/wyrdbound/grimoire/pkg/adapters/dice"
	"github.com/wyrdbound/grimoire/pkg/adapters/exprtmpl"
	"github.com/wyrdbound/grimoire/pkg/adapters/namegen"
	promptAdapter "github.com/wyrdbound/grimoire/pkg/adapters/prompt"
	"github.com/wyrdbound/grimoire/pkg/adapters/yamlfs"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/objects"
	"github.com/wyrdbound/grimoire/pkg/ports"
	"github.com/wyrdbound/grimoire/pkg/session"
)

// Version is the library version, surfaced by the CLI and the HTTP API.
const Version = "0.3.0"

// Engine is the high-level entry point for the grimoire library. It loads
// a game system, wires the collaborator adapters and exposes flow
// execution plus session management on top of the internal runtime.
type Engine struct {
	source   ports.SystemSource
	system   *domain.CompleteSystem
	objects  *objects.Service
	resolver ports.TemplateResolver

	dice     ports.DiceRoller
	names    ports.NameGenerator
	prompts  ports.PromptExecutor
	interact ports.Interaction
	sink     ports.EventSink

	store    ports.StateStore
	locker   ports.DistributedLocker
	sessions *session.Manager

	hooks  domain.LifecycleHooks
	logger *slog.Logger

	// Name labels log lines and session listings, defaulting to the base
	// name of the system directory.
	Name string
}

// Option configures the Engine.
type Option func(*Engine)

// WithSource injects a custom system source, bypassing the default YAML
// directory loader. The path argument of New may then be empty.
func WithSource(src ports.SystemSource) Option {
	return func(e *Engine) { e.source = src }
}

// WithResolver replaces the template resolver.
func WithResolver(r ports.TemplateResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithDice replaces the default dice roller.
func WithDice(d ports.DiceRoller) Option {
	return func(e *Engine) { e.dice = d }
}

// WithNames replaces the default name generator.
func WithNames(n ports.NameGenerator) Option {
	return func(e *Engine) { e.names = n }
}

// WithPrompts replaces the default (static) prompt executor.
func WithPrompts(p ports.PromptExecutor) Option {
	return func(e *Engine) { e.prompts = p }
}

// WithInteraction wires the player interaction port. Flows containing
// player_input or player_choice steps fail without one.
func WithInteraction(i ports.Interaction) Option {
	return func(e *Engine) { e.interact = i }
}

// WithSink wires the event sink display and log events are forwarded to.
func WithSink(s ports.EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithStore enables session persistence.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithLocker extends session locking across replicas. Only meaningful
// together with WithStore.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithHooks registers lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithLogger sets a structured logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New loads the system at path and initializes an engine over it. By
// default the system is read from a YAML directory; WithSource replaces
// that, in which case path may be empty.
func New(path string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.source == nil {
		if path == "" {
			return nil, fmt.Errorf("system path is required when no custom source is provided")
		}
		src, err := yamlfs.New(path, yamlfs.WithLogger(eng.logger))
		if err != nil {
			return nil, err
		}
		eng.source = src
		eng.Name = filepath.Base(src.Root())
	} else if path != "" {
		eng.Name = filepath.Base(path)
	}

	sys, err := eng.source.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading system: %w", err)
	}
	eng.system = sys
	if eng.Name == "" {
		eng.Name = sys.System.ID
	}
	eng.logger = eng.logger.With("system", sys.System.ID)

	if eng.resolver == nil {
		eng.resolver = exprtmpl.New()
	}
	if eng.dice == nil {
		eng.dice = diceAdapter.New()
	}
	if eng.names == nil {
		eng.names = namegen.New()
	}
	if eng.prompts == nil {
		eng.prompts = promptAdapter.NewStatic("")
	}

	svc, err := objects.NewService(sys, objects.WithResolver(eng.resolver), objects.WithLogger(eng.logger))
	if err != nil {
		return nil, err
	}
	eng.objects = svc

	if eng.store != nil {
		sessOpts := []session.Option{session.WithLogger(eng.logger)}
		if eng.locker != nil {
			sessOpts = append(sessOpts, session.WithLocker(eng.locker))
		}
		eng.sessions = session.NewManager(eng.store, sessOpts...)
	}

	return eng, nil
}

// System returns the loaded system.
func (e *Engine) System() *domain.CompleteSystem { return e.system }

// Objects returns the object instantiation service.
func (e *Engine) Objects() *objects.Service { return e.objects }

// Flows returns the ids of every flow in the system, sorted.
func (e *Engine) Flows() []string { return e.system.FlowIDs() }

// Validate re-checks cross-references and returns the problems found.
func (e *Engine) Validate() []string { return e.system.Validate() }

// RunFlow executes a flow to completion without session persistence.
func (e *Engine) RunFlow(ctx context.Context, flowID string, inputs map[string]any) (*domain.FlowResult, error) {
	return e.runtime(nil).Run(ctx, flowID, inputs)
}

// Watch surfaces change notifications from the system source. Sources
// without watch support return an error.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.source.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current system source does not support watching")
}

// Reload re-reads the system from its source, replacing the loaded
// definitions. Meant to pair with Watch during authoring.
func (e *Engine) Reload(ctx context.Context) error {
	sys, err := e.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("reloading system: %w", err)
	}
	svc, err := objects.NewService(sys, objects.WithResolver(e.resolver), objects.WithLogger(e.logger))
	if err != nil {
		return err
	}
	e.system = sys
	e.objects = svc
	return nil
}

// runtime assembles a runtime engine for one execution. The checkpoint
// function differs per session, so this is rebuilt per run; everything it
// wires is shared and read-only.
func (e *Engine) runtime(checkpoint runtime.CheckpointFunc) *runtime.Engine {
	opts := []runtime.Option{
		runtime.WithDice(e.dice),
		runtime.WithNames(e.names),
		runtime.WithPrompts(e.prompts),
		runtime.WithHooks(e.hooks),
		runtime.WithLogger(e.logger),
	}
	if e.interact != nil {
		opts = append(opts, runtime.WithInteraction(e.interact))
	}
	if e.sink != nil {
		opts = append(opts, runtime.WithSink(e.sink))
	}
	if checkpoint != nil {
		opts = append(opts, runtime.WithCheckpoint(checkpoint))
	}
	return runtime.NewEngine(e.system, e.objects, e.resolver, opts...)
}
