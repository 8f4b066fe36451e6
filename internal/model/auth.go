package model

import "time"

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Name     string `json:"name" binding:"required,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,max=72"`
}

// AuthResponse is returned by registration and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// MeResponse is the identity without its password hash.
type MeResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshRecord is a persisted refresh session. Secret is only set on the
// record returned from creation; storage keys on SecretHash.
type RefreshRecord struct {
	ID         string    `json:"id" bson:"_id"`
	UserID     string    `json:"userId" bson:"userId"`
	Secret     string    `json:"-" bson:"-"`
	SecretHash string    `json:"tokenHash" bson:"tokenHash"`
	ExpiresAt  time.Time `json:"expiresAt" bson:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

func (u *User) Public() UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

func (u *User) Me() MeResponse {
	return MeResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Expired reports whether the record is no longer usable at now.
func (r *RefreshRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
