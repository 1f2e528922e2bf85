// Package yamlfs loads a complete game system from a directory tree of
// YAML documents. Every *.yaml / *.yml file under the root is parsed and
// dispatched on its "kind" field; the directory layout itself carries no
// meaning, so authors are free to organize files however they like.
package yamlfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/wyrdbound/grimoire/internal/logging"
	"github.com/wyrdbound/grimoire/pkg/domain"
)

// pattern matches every YAML document under the root.
const pattern = "**/*.{yaml,yml}"

// Source implements ports.SystemSource and ports.Watchable over a
// directory.
type Source struct {
	root   string
	strict bool
	logger *slog.Logger
}

// Option configures the Source.
type Option func(*Source)

// WithStrict makes Load fail on cross-reference problems (unknown step
// types, dangling extends, ...) instead of logging them. Authoring tools
// want warnings; servers running finished systems want strict.
func WithStrict(strict bool) Option {
	return func(s *Source) { s.strict = strict }
}

// WithLogger sets the logger used for per-file warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) { s.logger = l }
}

// New creates a source over the given directory.
func New(root string, opts ...Option) (*Source, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid system path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("system path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("system path %s is not a directory", abs)
	}

	s := &Source{root: abs, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute directory the source reads from.
func (s *Source) Root() string { return s.root }

// Load reads every YAML document under the root and assembles the
// CompleteSystem. Exactly one document of kind "system" is required.
func (s *Source) Load(ctx context.Context) (*domain.CompleteSystem, error) {
	files, err := doublestar.Glob(os.DirFS(s.root), pattern)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", s.root, err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no YAML documents found under %s", s.root)
	}

	sys := domain.NewCompleteSystem(domain.SystemDefinition{})
	seenSystem := false

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docs, err := readDocuments(os.DirFS(s.root), file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		for _, raw := range docs {
			kind, def, err := domain.ParseDocument(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			if kind == "system" {
				if seenSystem {
					return nil, fmt.Errorf("%s: second system document (one per directory)", file)
				}
				seenSystem = true
			}
			if err := place(sys, kind, def); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
		}
	}

	if !seenSystem {
		return nil, fmt.Errorf("no document of kind 'system' under %s", s.root)
	}

	if problems := sys.Validate(); len(problems) > 0 {
		if s.strict {
			return nil, fmt.Errorf("system validation failed:\n  %s", strings.Join(problems, "\n  "))
		}
		for _, p := range problems {
			s.logger.Warn("system validation", "problem", p)
		}
	}

	s.logger.Info("system loaded",
		"system", sys.System.ID,
		"models", len(sys.Models),
		"flows", len(sys.Flows),
		"tables", len(sys.Tables),
		"compendiums", len(sys.Compendiums),
	)
	return sys, nil
}

// place stores one parsed definition, rejecting duplicate ids per kind.
func place(sys *domain.CompleteSystem, kind string, def any) error {
	switch d := def.(type) {
	case *domain.SystemDefinition:
		sys.System = *d
	case *domain.ModelDefinition:
		return put(sys.Models, kind, d.ID, d)
	case *domain.FlowDefinition:
		return put(sys.Flows, kind, d.ID, d)
	case *domain.TableDefinition:
		return put(sys.Tables, kind, d.ID, d)
	case *domain.CompendiumDefinition:
		return put(sys.Compendiums, kind, d.ID, d)
	case *domain.PromptDefinition:
		return put(sys.Prompts, kind, d.ID, d)
	case *domain.SourceDefinition:
		return put(sys.Sources, kind, d.ID, d)
	default:
		return fmt.Errorf("unhandled document kind '%s'", kind)
	}
	return nil
}

func put[V any](m map[string]V, kind, id string, def V) error {
	if _, dup := m[id]; dup {
		return fmt.Errorf("duplicate %s id '%s'", kind, id)
	}
	m[id] = def
	return nil
}

// readDocuments parses one file, which may hold several YAML documents
// separated by "---". Empty documents are skipped.
func readDocuments(fsys fs.FS, name string) ([]map[string]any, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []map[string]any
	dec := yaml.NewDecoder(f)
	for {
		var raw map[string]any
		err := dec.Decode(&raw)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		if len(raw) == 0 {
			continue
		}
		docs = append(docs, normalizeMap(raw))
	}
	return docs, nil
}

// normalizeMap rewrites nested map[any]any values (which yaml.v3 produces
// for merge keys and non-scalar keys) into map[string]any so the rest of
// the system can rely on one map shape.
func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
