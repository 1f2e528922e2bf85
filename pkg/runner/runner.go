package runner

import (
	"context"
	"log/slog"

	"github.com/wyrdbound/grimoire"
	"github.com/wyrdbound/grimoire/internal/logging"
	"github.com/wyrdbound/grimoire/pkg/domain"
)

// Runner drives interactive flow execution. It implements the engine's
// Interaction and EventSink ports by delegating to an IOHandler, and
// wraps each run with signal handling so Ctrl+C cancels cleanly.
//
// Typical wiring:
//
//	r := runner.New()
//	eng, err := grimoire.New(path,
//		grimoire.WithInteraction(r),
//		grimoire.WithSink(r),
//	)
//	result, err := r.Run(context.Background(), eng, "create-character", nil)
type Runner struct {
	handler IOHandler
	logger  *slog.Logger
}

// Option configures the Runner.
type Option func(*Runner)

// WithHandler replaces the default text handler.
func WithHandler(h IOHandler) Option {
	return func(r *Runner) { r.handler = h }
}

// WithLogger sets the logger for deferred errors.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a runner. Without options it talks plain text on
// stdin/stdout.
func New(opts ...Option) *Runner {
	r := &Runner{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = NewTextHandler(nil, nil)
	}
	return r
}

// Handler returns the active IO handler.
func (r *Runner) Handler() IOHandler { return r.handler }

// Run executes a flow under signal management. SIGINT and SIGTERM cancel
// the run between steps and during interaction reads.
func (r *Runner) Run(ctx context.Context, eng *grimoire.Engine, flowID string, inputs map[string]any) (*domain.FlowResult, error) {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	return eng.RunFlow(signals.Context(), flowID, inputs)
}

// RunSession executes a flow under a persisted session, or resumes one
// when resumeID is non-empty.
func (r *Runner) RunSession(ctx context.Context, eng *grimoire.Engine, flowID string, inputs map[string]any, resumeID string) (*domain.Session, *domain.FlowResult, error) {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	if resumeID != "" {
		return eng.ResumeSession(signals.Context(), resumeID)
	}
	return eng.StartSession(signals.Context(), flowID, inputs)
}

// PromptInput implements ports.Interaction.
func (r *Runner) PromptInput(ctx context.Context, req domain.InputRequest) (any, error) {
	val, err := r.handler.PromptInput(ctx, req)
	if err != nil {
		return nil, err
	}
	if val == "" && req.Default != "" {
		return req.Default, nil
	}
	return val, nil
}

// PromptChoice implements ports.Interaction.
func (r *Runner) PromptChoice(ctx context.Context, req domain.ChoiceRequest) (int, error) {
	return r.handler.PromptChoice(ctx, req)
}

// Message implements ports.EventSink. Handler failures are logged, not
// propagated; display output must never abort a flow.
func (r *Runner) Message(text string) {
	if err := r.handler.Message(text); err != nil {
		r.logger.Warn("message output failed", "err", err)
	}
}

// Event implements ports.EventSink.
func (r *Runner) Event(name string, data map[string]any) {
	if err := r.handler.Event(name, data); err != nil {
		r.logger.Warn("event output failed", "event", name, "err", err)
	}
}
