package staging

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundmatch/server/internal/apperrors"
)

func setupRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, mr := setupRedisStore(t, 30*time.Minute)
	ctx := context.Background()

	session := NewSession(3)
	require.NoError(t, session.Replace(testCandidates()))
	require.NoError(t, store.Save(ctx, session))
	require.NoError(t, store.Ping(ctx))

	assert.True(t, mr.Exists(keyPrefix+session.ID))
	assert.Equal(t, 30*time.Minute, mr.TTL(keyPrefix+session.ID))

	loaded, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.CompanyID, loaded.CompanyID)
	assert.Equal(t, session.Candidates, loaded.Candidates)

	require.NoError(t, store.Delete(ctx, session.ID))
	_, err = store.Load(ctx, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRedisStore_Expires(t *testing.T) {
	store, mr := setupRedisStore(t, time.Minute)
	ctx := context.Background()

	session := NewSession(3)
	require.NoError(t, store.Save(ctx, session))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := setupRedisStore(t, time.Minute)
	mr.Close()

	_, err := store.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	session := NewSession(5)
	require.NoError(t, session.Replace(testCandidates()))
	require.NoError(t, store.Save(ctx, session))
	assert.Equal(t, 1, store.Len())

	loaded, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Candidates, loaded.Candidates)

	// Loaded sessions are copies.
	loaded.Candidates = nil
	again, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, again.Candidates, 3)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	session := NewSession(5)
	require.NoError(t, store.Save(ctx, session))
	require.NoError(t, store.Delete(ctx, session.ID))

	_, err := store.Load(ctx, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}
