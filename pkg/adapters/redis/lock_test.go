package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrdbound/grimoire/pkg/adapters/redis"
)

func TestLockerSerializesHolders(t *testing.T) {
	_, client := newTestClient(t)
	locker := redis.NewLocker(client, "grimoire:session:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)

	// A second holder must block until the first releases.
	blocked, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blocked, "s1", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLockerIndependentKeysDoNotContend(t *testing.T) {
	_, client := newTestClient(t)
	locker := redis.NewLocker(client, "grimoire:session:")
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a", time.Second)
	require.NoError(t, err)
	defer func() { _ = unlockA(ctx) }()

	unlockB, err := locker.Lock(ctx, "b", time.Second)
	require.NoError(t, err)
	require.NoError(t, unlockB(ctx))
}

func TestUnlockIsTokenChecked(t *testing.T) {
	mr, client := newTestClient(t)
	locker := redis.NewLocker(client, "grimoire:session:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", time.Second)
	require.NoError(t, err)

	// Simulate TTL expiry followed by another holder taking the lock.
	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "s1", 5*time.Second)
	require.NoError(t, err)

	// The stale holder's release must not free the new holder's lock.
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("grimoire:session:lock:s1"))

	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("grimoire:session:lock:s1"))
}
