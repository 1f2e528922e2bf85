package ports

import (
	"context"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// SystemSource defines how the engine retrieves a complete system definition.
// This allows the storage layer (filesystem, memory) to be decoupled.
type SystemSource interface {
	// Load reads every definition the backend holds and assembles them into
	// a CompleteSystem. Implementations decide how documents are discovered;
	// the engine only cares that the result is internally consistent.
	Load(ctx context.Context) (*domain.CompleteSystem, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that receives the path of each changed
	// definition. The channel is closed when ctx is canceled.
	Watch(ctx context.Context) (<-chan string, error)
}
