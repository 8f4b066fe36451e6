package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/healthtrack/backend/internal/model"
)

const userColumns = `id::text, email, password_hash, name, is_active, created_at, updated_at`

func (db *Postgres) CreateUser(ctx context.Context, email, passwordHash, name string) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING ` + userColumns
	user, err := scanUser(db.Pool.QueryRow(ctx, query, uuid.NewString(), email, passwordHash, name))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return db.getUser(ctx, query, email)
}

func (db *Postgres) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return db.getUser(ctx, query, userID)
}

func (db *Postgres) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *Postgres) InsertRefreshRecord(ctx context.Context, rec model.RefreshRecord) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := db.Pool.Exec(ctx, query, rec.ID, rec.UserID, rec.SecretHash, rec.ExpiresAt, rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert refresh record: %w", err)
	}
	return nil
}

func (db *Postgres) GetRefreshRecordByHash(ctx context.Context, tokenHash string) (*model.RefreshRecord, error) {
	query := `
		SELECT id::text, user_id::text, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	var rec model.RefreshRecord
	err := db.Pool.QueryRow(ctx, query, tokenHash).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.SecretHash,
		&rec.ExpiresAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select refresh record: %w", err)
	}
	return &rec, nil
}

// DeleteRefreshRecordByHash succeeds whether or not a row matched.
func (db *Postgres) DeleteRefreshRecordByHash(ctx context.Context, tokenHash string) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("delete refresh record: %w", err)
	}
	return nil
}

func (db *Postgres) DeleteExpiredRefreshRecords(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh records: %w", err)
	}
	return tag.RowsAffected(), nil
}
