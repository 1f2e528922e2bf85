package ports

import (
	"context"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// DiceRoller evaluates dice expressions like "3d6+2".
type DiceRoller interface {
	// Roll evaluates one expression and returns the detailed result.
	// Empty or malformed expressions fail with an error.
	Roll(ctx context.Context, expression string) (domain.RollResult, error)
}

// NameGenerator produces flavor names for characters, places and things.
type NameGenerator interface {
	// Generate returns a single name for the request. Implementations are
	// expected to tolerate unknown styles and corpora rather than fail.
	Generate(ctx context.Context, req domain.NameRequest) (string, error)
}

// PromptExecutor sends a rendered prompt to a language model and returns the
// completion. The engine never talks to a provider directly.
type PromptExecutor interface {
	Execute(ctx context.Context, req domain.PromptRequest) (domain.PromptResult, error)
}
