package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/healthtrack/backend/internal/config"
	"github.com/healthtrack/backend/internal/model"
	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "refresh:"

// RedisRefreshRepository stores refresh records as JSON under
// "refresh:<tokenHash>" with a TTL equal to the remaining lifetime.
type RedisRefreshRepository struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisRefreshRepository(client *redis.Client, now func() time.Time) *RedisRefreshRepository {
	if now == nil {
		now = time.Now
	}
	return &RedisRefreshRepository{client: client, now: now}
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisRefreshRepository) key(tokenHash string) string {
	return refreshKeyPrefix + tokenHash
}

func (r *RedisRefreshRepository) InsertRefreshRecord(ctx context.Context, rec model.RefreshRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := rec.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	ok, err := r.client.SetNX(ctx, r.key(rec.SecretHash), b, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis set refresh record: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

func (r *RedisRefreshRepository) GetRefreshRecordByHash(ctx context.Context, tokenHash string) (*model.RefreshRecord, error) {
	b, err := r.client.Get(ctx, r.key(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get refresh record: %w", err)
	}
	var rec model.RefreshRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode refresh record: %w", err)
	}
	return &rec, nil
}

func (r *RedisRefreshRepository) DeleteRefreshRecordByHash(ctx context.Context, tokenHash string) error {
	if err := r.client.Del(ctx, r.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("redis delete refresh record: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshRecords is a no-op: Redis evicts keys on TTL.
func (r *RedisRefreshRepository) DeleteExpiredRefreshRecords(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
