package ports

import (
	"context"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// StateStore defines the interface for persisting flow sessions.
// This allows for durable execution, enabling "Stop & Resume" workflows.
type StateStore interface {
	// Save persists the session under its own ID, overwriting any previous
	// snapshot.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves the session for a given ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, id string) (*domain.Session, error)

	// List returns the IDs of every stored session.
	List(ctx context.Context) ([]string, error)

	// Delete removes the session for a given ID. Deleting an unknown ID is
	// not an error.
	Delete(ctx context.Context, id string) error
}
