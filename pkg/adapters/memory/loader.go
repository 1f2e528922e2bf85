// Package memory provides in-memory adapters: a SystemSource assembled
// from documents declared in code, and a session StateStore. Both are
// aimed at tests and embedded use where no files or servers exist.
package memory

import (
	"context"
	"fmt"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// Source implements ports.SystemSource over an in-code system.
type Source struct {
	system *domain.CompleteSystem
}

// NewSource wraps an already-assembled system.
func NewSource(sys *domain.CompleteSystem) *Source {
	return &Source{system: sys}
}

// NewFromDocuments assembles a system from raw documents, the same maps a
// YAML loader would produce. This keeps test fixtures declarative without
// touching the filesystem.
func NewFromDocuments(docs ...map[string]any) (*Source, error) {
	sys := domain.NewCompleteSystem(domain.SystemDefinition{})
	seenSystem := false

	for i, raw := range docs {
		kind, def, err := domain.ParseDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		switch d := def.(type) {
		case *domain.SystemDefinition:
			if seenSystem {
				return nil, fmt.Errorf("document %d: second system document", i)
			}
			seenSystem = true
			sys.System = *d
		case *domain.ModelDefinition:
			sys.Models[d.ID] = d
		case *domain.FlowDefinition:
			sys.Flows[d.ID] = d
		case *domain.TableDefinition:
			sys.Tables[d.ID] = d
		case *domain.CompendiumDefinition:
			sys.Compendiums[d.ID] = d
		case *domain.PromptDefinition:
			sys.Prompts[d.ID] = d
		case *domain.SourceDefinition:
			sys.Sources[d.ID] = d
		default:
			return nil, fmt.Errorf("document %d: unhandled kind '%s'", i, kind)
		}
	}

	if !seenSystem {
		return nil, fmt.Errorf("no document of kind 'system'")
	}
	return &Source{system: sys}, nil
}

// Load returns the wrapped system.
func (s *Source) Load(ctx context.Context) (*domain.CompleteSystem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.system, nil
}
