package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrdbound/grimoire/pkg/domain"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore
// implementation adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID, "character-creation")
		session.StepID = "roll-stats"
		session.Status = domain.SessionWaiting
		session.Context = map[string]any{
			"inputs":    map[string]any{"class": "knave"},
			"variables": map[string]any{"count": 42},
		}

		err := store.Save(ctx, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.FlowID, loaded.FlowID)
		assert.Equal(t, session.StepID, loaded.StepID)
		assert.Equal(t, session.Status, loaded.Status)

		inputs, ok := loaded.Context["inputs"].(map[string]any)
		require.True(t, ok, "context maps must survive the round trip")
		assert.Equal(t, "knave", inputs["class"])
		// JSON persistence turns ints into float64; only presence is part of
		// the contract.
		vars, ok := loaded.Context["variables"].(map[string]any)
		require.True(t, ok)
		assert.NotNil(t, vars["count"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, domain.NewSession(sessionID, "character-creation"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("Delete Non-Existent", func(t *testing.T) {
		err := store.Delete(ctx, "non-existent-"+sessionID)
		assert.NoError(t, err, "deleting an unknown id is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, domain.NewSession(id1, "character-creation"))
		_ = store.Save(ctx, domain.NewSession(id2, "character-creation"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
