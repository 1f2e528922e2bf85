package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	backend "github.com/redis/go-redis/v9"

	"github.com/wyrdbound/grimoire"
	"github.com/wyrdbound/grimoire/pkg/adapters/file"
	"github.com/wyrdbound/grimoire/pkg/adapters/memory"
	"github.com/wyrdbound/grimoire/pkg/adapters/redis"
	"github.com/wyrdbound/grimoire/pkg/adapters/sqlite"
	"github.com/wyrdbound/grimoire/pkg/persistence/middleware"
	"github.com/wyrdbound/grimoire/pkg/ports"
	"github.com/wyrdbound/grimoire/pkg/runner"
)

// Config is the serve configuration, read from the environment.
type Config struct {
	Address    string `env:"GRIMOIRE_HTTP_ADDR" envDefault:":8080"`
	SystemPath string `env:"GRIMOIRE_SYSTEM_PATH"`

	// Store selects session persistence: memory, file, sqlite, redis or none.
	Store      string `env:"GRIMOIRE_STORE" envDefault:"memory"`
	FilePath   string `env:"GRIMOIRE_FILE_PATH"`
	SQLitePath string `env:"GRIMOIRE_SQLITE_PATH" envDefault:"grimoire.db"`

	RedisAddr     string `env:"GRIMOIRE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"GRIMOIRE_REDIS_PASSWORD"`
	RedisDB       int    `env:"GRIMOIRE_REDIS_DB" envDefault:"0"`

	// StateKey enables encryption at rest when set: a base64-encoded
	// 32-byte AES-256 key. StateFallbackKeys lists old keys, comma
	// separated, tried during key rotation.
	StateKey          string `env:"GRIMOIRE_STATE_KEY"`
	StateFallbackKeys string `env:"GRIMOIRE_STATE_FALLBACK_KEYS"`

	// PIIPatterns masks matching context keys before persistence, comma
	// separated regular expressions.
	PIIPatterns string `env:"GRIMOIRE_PII_PATTERNS"`
}

// LoadConfig reads the server configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// NewEngine builds an engine suitable for serving: input steps are answered
// from request bodies, display output goes to the logger, and sessions
// persist to the store selected by cfg.Store. Extra options, such as metrics
// hooks, append after the defaults.
func NewEngine(cfg Config, logger *slog.Logger, extra ...grimoire.Option) (*grimoire.Engine, error) {
	opts := []grimoire.Option{
		grimoire.WithLogger(logger),
		grimoire.WithInteraction(runner.Scripted{}),
		grimoire.WithSink(&logSink{logger: logger}),
	}
	opts = append(opts, extra...)

	var store ports.StateStore
	switch cfg.Store {
	case "", "none":
	case "memory":
		store = memory.NewStore()
	case "file":
		store = file.New(cfg.FilePath)
	case "sqlite":
		opened, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		store = opened
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = redis.NewFromClient(client)
		opts = append(opts, grimoire.WithLocker(redis.NewLocker(client, "grimoire:lock:")))
	default:
		return nil, fmt.Errorf("unknown store backend %q (want memory, file, sqlite, redis or none)", cfg.Store)
	}

	if store != nil {
		wrapped, err := wrapStore(cfg, store)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grimoire.WithStore(wrapped))
	}

	return grimoire.New(cfg.SystemPath, opts...)
}

// wrapStore layers the configured persistence middlewares over the raw
// store. PII masking runs before encryption so masked sessions are what
// get encrypted.
func wrapStore(cfg Config, store ports.StateStore) (ports.StateStore, error) {
	var middlewares []middleware.Middleware

	if cfg.PIIPatterns != "" {
		mw, err := middleware.NewPIIMiddleware(splitList(cfg.PIIPatterns))
		if err != nil {
			return nil, err
		}
		middlewares = append(middlewares, mw)
	}

	if cfg.StateKey != "" {
		activeKey, err := base64.StdEncoding.DecodeString(cfg.StateKey)
		if err != nil {
			return nil, fmt.Errorf("decoding GRIMOIRE_STATE_KEY: %w", err)
		}
		var fallbackKeys [][]byte
		for _, encoded := range splitList(cfg.StateFallbackKeys) {
			key, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return nil, fmt.Errorf("decoding GRIMOIRE_STATE_FALLBACK_KEYS: %w", err)
			}
			fallbackKeys = append(fallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    activeKey,
			FallbackKeys: fallbackKeys,
		})
		if err != nil {
			return nil, err
		}
		middlewares = append(middlewares, mw)
	}

	return middleware.Chain(store, middlewares...), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// logSink routes flow display output and events to the server log. HTTP
// clients consume outputs from the response body, not a live transcript.
type logSink struct {
	logger *slog.Logger
}

func (s *logSink) Message(text string) {
	s.logger.Info("flow message", "text", text)
}

func (s *logSink) Event(name string, data map[string]any) {
	s.logger.Info("flow event", "event", name, "data", data)
}
