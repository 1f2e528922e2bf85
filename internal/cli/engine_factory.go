package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	backend "github.com/redis/go-redis/v9"

	"github.com/wyrdbound/grimoire"
	"github.com/wyrdbound/grimoire/internal/logging"
	"github.com/wyrdbound/grimoire/pkg/adapters/dice"
	"github.com/wyrdbound/grimoire/pkg/adapters/file"
	"github.com/wyrdbound/grimoire/pkg/adapters/memory"
	"github.com/wyrdbound/grimoire/pkg/adapters/redis"
	"github.com/wyrdbound/grimoire/pkg/adapters/sqlite"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/ports"
	"github.com/wyrdbound/grimoire/pkg/runner"
)

// StoreOptions selects the session persistence backend for commands that
// touch sessions.
type StoreOptions struct {
	Backend       string
	FilePath      string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultSQLitePath is where session state lands unless overridden.
const DefaultSQLitePath = ".grimoire/sessions.db"

// createLogger configures the command logger. In debug mode it writes to
// stderr so log lines stay out of the flow UI on stdout.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// openStore builds the configured state store, plus a distributed locker
// when the backend supports one. A "none" backend returns nil.
func openStore(opts StoreOptions) (ports.StateStore, ports.DistributedLocker, error) {
	switch opts.Backend {
	case "", "none":
		return nil, nil, nil
	case "memory":
		return memory.NewStore(), nil, nil
	case "file":
		return file.New(opts.FilePath), nil, nil
	case "sqlite":
		path := opts.SQLitePath
		if path == "" {
			path = DefaultSQLitePath
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating session directory: %w", err)
			}
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, nil, nil
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		return redis.NewFromClient(client), redis.NewLocker(client, "grimoire:lock:"), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (want memory, file, sqlite, redis or none)", opts.Backend)
	}
}

// createEngine initializes an engine with standard CLI conventions: the
// runner as both interaction and sink, debug hooks when asked for, and a
// state store when the run is session-backed.
func createEngine(opts RunOptions, r *runner.Runner, logger *slog.Logger) (*grimoire.Engine, error) {
	engineOpts := []grimoire.Option{
		grimoire.WithLogger(logger),
		grimoire.WithInteraction(r),
		grimoire.WithSink(r),
	}

	if opts.Debug {
		engineOpts = append(engineOpts, grimoire.WithHooks(createDebugHooks(logger)))
	}
	if opts.SeedSet {
		engineOpts = append(engineOpts, grimoire.WithDice(dice.New(dice.WithSeed(opts.Seed))))
	}

	if opts.Session || opts.ResumeID != "" {
		store, locker, err := openStore(opts.StoreOptions)
		if err != nil {
			return nil, err
		}
		if store == nil {
			return nil, fmt.Errorf("session runs need a store backend (--store)")
		}
		engineOpts = append(engineOpts, grimoire.WithStore(store))
		if locker != nil {
			engineOpts = append(engineOpts, grimoire.WithLocker(locker))
		}
	}

	eng, err := grimoire.New(opts.SystemPath, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return eng, nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(_ context.Context, e *domain.StepEvent) {
			logger.Debug("Step Start", "flow", e.FlowID, "step", e.StepID, "type", e.StepType)
		},
		OnStepComplete: func(_ context.Context, e *domain.StepEvent) {
			logger.Debug("Step Complete", "flow", e.FlowID, "step", e.StepID)
		},
		OnActionExecute: func(_ context.Context, e *domain.ActionEvent) {
			logger.Debug("Action", "step", e.StepID, "action", e.Action)
		},
		OnFlowComplete: func(_ context.Context, e *domain.FlowEvent) {
			if e.Err != nil {
				logger.Debug("Flow Complete (Error)", "flow", e.FlowID, "err", e.Err)
			} else {
				logger.Debug("Flow Complete", "flow", e.FlowID)
			}
		},
	}
}
