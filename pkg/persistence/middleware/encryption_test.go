package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrdbound/grimoire/pkg/adapters/memory"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/persistence/middleware"
	"github.com/wyrdbound/grimoire/pkg/ports"
)

func testKey(b byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return key
}

func sampleSession() *domain.Session {
	sess := domain.NewSession("s1", "character-creation")
	sess.Status = domain.SessionWaiting
	sess.StepID = "roll-stats"
	sess.Context = map[string]any{"inputs": map[string]any{"name": "Brannic"}}
	return sess
}

func TestEncryptionRoundTrip(t *testing.T) {
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: testKey(1)})
	require.NoError(t, err)

	inner := memory.NewStore()
	store := mw(inner)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "roll-stats", loaded.StepID)
	inputs := loaded.Context["inputs"].(map[string]any)
	assert.Equal(t, "Brannic", inputs["name"])
}

func TestEncryptionEnvelopeHidesContent(t *testing.T) {
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: testKey(1)})
	require.NoError(t, err)

	inner := memory.NewStore()
	require.NoError(t, mw(inner).Save(context.Background(), sampleSession()))

	raw, err := inner.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionWaiting, raw.Status)
	assert.Empty(t, raw.StepID)
	assert.NotContains(t, raw.Context, "inputs")
	assert.Contains(t, raw.Context, "__encrypted__")
}

func TestEncryptionKeyRotation(t *testing.T) {
	oldKey, newKey := testKey(1), testKey(2)
	inner := memory.NewStore()
	ctx := context.Background()

	oldMw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	require.NoError(t, oldMw(inner).Save(ctx, sampleSession()))

	rotated, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	loaded, err := rotated(inner).Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "roll-stats", loaded.StepID)

	noFallback, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})
	require.NoError(t, err)
	_, err = noFallback(inner).Load(ctx, "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt")
}

func TestEncryptionRejectsPlaintextSessions(t *testing.T) {
	inner := memory.NewStore()
	require.NoError(t, inner.Save(context.Background(), sampleSession()))

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: testKey(1)})
	require.NoError(t, err)
	_, err = mw(inner).Load(context.Background(), "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "envelope")
}

func TestEncryptionRejectsShortKeys(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	require.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    testKey(1),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	require.Error(t, err)
}

func TestEncryptedStoreContract(t *testing.T) {
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: testKey(7)})
	require.NoError(t, err)
	ports.RunStateStoreContract(t, mw(memory.NewStore()))
}
