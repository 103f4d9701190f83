package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-genstudio/internal/testutil"
)

func TestRedisLockRepo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	repo := NewRedisLockRepo(client, "test:lock:")
	ctx := context.Background()

	token, ok, err := repo.TryLock(ctx, "reconciler", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = repo.TryLock(ctx, "reconciler", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	require.NoError(t, repo.Unlock(ctx, "reconciler", "someone-else"))
	_, ok, err = repo.TryLock(ctx, "reconciler", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "foreign token must not release the lock")

	require.NoError(t, repo.Unlock(ctx, "reconciler", token))
	_, ok, err = repo.TryLock(ctx, "reconciler", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl := client.TTL(ctx, "test:lock:reconciler").Val()
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}

func TestRedisLockRepo_EmptyKey(t *testing.T) {
	repo := NewRedisLockRepo(nil, "")
	_, _, err := repo.TryLock(context.Background(), "", time.Second)
	require.ErrorIs(t, err, ErrLockKeyRequired)
	require.ErrorIs(t, repo.Unlock(context.Background(), "", "t"), ErrLockKeyRequired)
}
