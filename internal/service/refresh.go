package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/healthtrack/backend/internal/db"
	"github.com/healthtrack/backend/internal/model"
)

const (
	RefreshTokenTTL   = 30 * 24 * time.Hour
	refreshSecretSize = 32
)

// RefreshRepository is implemented by the Postgres, Redis and Mongo stores.
// Lookups of absent records return db.ErrNotFound; deletes of absent records succeed.
type RefreshRepository interface {
	InsertRefreshRecord(ctx context.Context, rec model.RefreshRecord) error
	GetRefreshRecordByHash(ctx context.Context, tokenHash string) (*model.RefreshRecord, error)
	DeleteRefreshRecordByHash(ctx context.Context, tokenHash string) error
	DeleteExpiredRefreshRecords(ctx context.Context, now time.Time) (int64, error)
}

// RefreshStore issues opaque refresh secrets and persists only their hash.
type RefreshStore struct {
	repo RefreshRepository
	now  func() time.Time
}

func NewRefreshStore(repo RefreshRepository, now func() time.Time) *RefreshStore {
	if now == nil {
		now = time.Now
	}
	return &RefreshStore{repo: repo, now: now}
}

// Create persists a new record for userID. The returned record carries the
// plaintext secret; nothing else ever sees it.
func (s *RefreshStore) Create(ctx context.Context, userID string) (model.RefreshRecord, error) {
	secret, hash, err := newRefreshSecret()
	if err != nil {
		return model.RefreshRecord{}, err
	}
	now := s.now().UTC()
	rec := model.RefreshRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		SecretHash: hash,
		ExpiresAt:  now.Add(RefreshTokenTTL),
		CreatedAt:  now,
	}
	if err := s.repo.InsertRefreshRecord(ctx, rec); err != nil {
		return model.RefreshRecord{}, fmt.Errorf("store refresh record: %w", err)
	}
	rec.Secret = secret
	return rec, nil
}

// FindBySecret returns ErrNotFound for unknown or empty secrets. Expiry is
// left to the caller.
func (s *RefreshStore) FindBySecret(ctx context.Context, secret string) (*model.RefreshRecord, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNotFound
	}
	rec, err := s.repo.GetRefreshRecordByHash(ctx, hashRefreshSecret(secret))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load refresh record: %w", err)
	}
	return rec, nil
}

func (s *RefreshStore) DeleteBySecret(ctx context.Context, secret string) error {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	if err := s.repo.DeleteRefreshRecordByHash(ctx, hashRefreshSecret(secret)); err != nil {
		return fmt.Errorf("delete refresh record: %w", err)
	}
	return nil
}

func (s *RefreshStore) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredRefreshRecords(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh records: %w", err)
	}
	return n, nil
}

func (s *RefreshStore) Now() time.Time {
	return s.now()
}

func newRefreshSecret() (string, string, error) {
	raw := make([]byte, refreshSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)
	return secret, hashRefreshSecret(secret), nil
}

func hashRefreshSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
