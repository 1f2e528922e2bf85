package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// nullStore does nothing; the test only exercises the lock map.
type nullStore struct{}

func (nullStore) Save(ctx context.Context, sess *domain.Session) error { return nil }
func (nullStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}
func (nullStore) Delete(ctx context.Context, id string) error { return nil }
func (nullStore) List(ctx context.Context) ([]string, error)  { return nil, nil }

func TestLockEntriesDoNotLeak(t *testing.T) {
	mgr := NewManager(nullStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("session-%d", i)
		_ = mgr.Save(ctx, domain.NewSession(id, "character-creation"))
		_ = mgr.Delete(ctx, id)
	}

	if remaining := len(mgr.locks); remaining != 0 {
		t.Errorf("%d lock entries remain after all sessions were deleted", remaining)
	}
}
