package db

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/healthtrack/backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisRefreshRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRefreshRepository(client, nil), m
}

func TestRedisRefreshRepository_InsertGetDelete(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	rec := model.RefreshRecord{
		ID:         "rec-1",
		UserID:     "user-1",
		Secret:     "plaintext",
		SecretHash: "hash-1",
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now,
	}

	require.NoError(t, repo.InsertRefreshRecord(ctx, rec))

	raw, err := m.Get("refresh:hash-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "plaintext")
	assert.InDelta(t, time.Hour.Seconds(), m.TTL("refresh:hash-1").Seconds(), 5)

	got, err := repo.GetRefreshRecordByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Empty(t, got.Secret)
	assert.True(t, got.ExpiresAt.Equal(rec.ExpiresAt))

	require.ErrorIs(t, repo.InsertRefreshRecord(ctx, rec), ErrDuplicate)

	require.NoError(t, repo.DeleteRefreshRecordByHash(ctx, "hash-1"))
	require.NoError(t, repo.DeleteRefreshRecordByHash(ctx, "hash-1"))
	_, err = repo.GetRefreshRecordByHash(ctx, "hash-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisRefreshRepository_TTLExpiry(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.InsertRefreshRecord(ctx, model.RefreshRecord{
		ID: "rec-2", UserID: "user-2", SecretHash: "hash-2",
		ExpiresAt: now.Add(2 * time.Second), CreatedAt: now,
	}))

	_, err := repo.GetRefreshRecordByHash(ctx, "hash-2")
	require.NoError(t, err)

	m.FastForward(3 * time.Second)

	_, err = repo.GetRefreshRecordByHash(ctx, "hash-2")
	require.ErrorIs(t, err, ErrNotFound)

	n, err := repo.DeleteExpiredRefreshRecords(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisRefreshRepository_SkipsAlreadyExpired(t *testing.T) {
	repo, m := newRedisRepo(t)
	now := time.Now().UTC()

	require.NoError(t, repo.InsertRefreshRecord(context.Background(), model.RefreshRecord{
		ID: "rec-3", UserID: "user-3", SecretHash: "hash-3",
		ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour),
	}))
	assert.False(t, m.Exists("refresh:hash-3"))
}
