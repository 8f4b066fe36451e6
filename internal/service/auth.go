package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/healthtrack/backend/internal/db"
	"github.com/healthtrack/backend/internal/metrics"
	"github.com/healthtrack/backend/internal/model"
)

const (
	RefreshCookieName = "refreshToken"
	minPasswordLength = 6
	maxPasswordLength = 72
	maxNameLength     = 100
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("email already registered")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidSession    = errors.New("invalid session")
	ErrMisconfigured     = errors.New("auth config invalid")
)

// AccountStore is the identity persistence the session logic depends on.
// Lookups of unknown identities return db.ErrNotFound; duplicate emails on
// create return db.ErrDuplicate.
type AccountStore interface {
	CreateUser(ctx context.Context, email, passwordHash, name string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
}

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	MaxAge   int
}

type AuthOptions struct {
	CookieSecure  bool
	CookieDomain  string
	CookiePath    string
	RotateRefresh bool
}

// Session is the result of a successful registration or login.
type Session struct {
	User             *model.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshSecret    string
	RefreshExpiresAt time.Time
}

// Renewal carries a fresh access token. RefreshSecret is set only when the
// presented refresh record was rotated.
type Renewal struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshSecret    string
	RefreshExpiresAt time.Time
}

func (r Renewal) Rotated() bool {
	return r.RefreshSecret != ""
}

type AuthService struct {
	accounts  AccountStore
	refresh   *RefreshStore
	codec     *TokenCodec
	hasher    *PasswordHasher
	rotate    bool
	cookieCfg CookieConfig
	log       *slog.Logger
}

func NewAuthService(accounts AccountStore, refresh *RefreshStore, codec *TokenCodec, hasher *PasswordHasher, cfg AuthOptions, logger *slog.Logger) (*AuthService, error) {
	if accounts == nil || refresh == nil || codec == nil || hasher == nil {
		return nil, fmt.Errorf("%w: missing dependency", ErrMisconfigured)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cookiePath := cfg.CookiePath
	if strings.TrimSpace(cookiePath) == "" {
		cookiePath = "/"
	}

	return &AuthService{
		accounts: accounts,
		refresh:  refresh,
		codec:    codec,
		hasher:   hasher,
		rotate:   cfg.RotateRefresh,
		cookieCfg: CookieConfig{
			Name:     RefreshCookieName,
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cfg.CookieSecure,
			HTTPOnly: true,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   int(RefreshTokenTTL.Seconds()),
		},
		log: logger,
	}, nil
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*Session, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateRegistration(email, password, name); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.accounts.CreateUser(ctx, email, hash, name)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			metrics.AuthFailures.WithLabelValues("conflict").Inc()
			return nil, ErrConflict
		}
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID)
	return s.issueSession(ctx, user, "registration")
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.accounts.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			metrics.AuthFailures.WithLabelValues("unknown_email").Inc()
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.AuthFailures.WithLabelValues("bad_password").Inc()
		return nil, ErrInvalidCredential
	}
	if !user.IsActive {
		metrics.AuthFailures.WithLabelValues("inactive").Inc()
		return nil, ErrInvalidCredential
	}

	return s.issueSession(ctx, user, "login")
}

// Renew mints a new access token for the identity behind a live refresh
// secret. With rotation enabled the presented record is replaced.
func (s *AuthService) Renew(ctx context.Context, secret string) (*Renewal, error) {
	if strings.TrimSpace(secret) == "" {
		metrics.Renewals.WithLabelValues("unauthenticated").Inc()
		return nil, ErrUnauthenticated
	}

	record, err := s.refresh.FindBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.Renewals.WithLabelValues("invalid").Inc()
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	if record.Expired(s.refresh.Now()) {
		if err := s.refresh.DeleteBySecret(ctx, secret); err != nil {
			s.log.Warn("failed to drop expired refresh record", "record_id", record.ID, "error", err)
		}
		metrics.Renewals.WithLabelValues("expired").Inc()
		return nil, ErrInvalidSession
	}

	user, err := s.accounts.GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			metrics.Renewals.WithLabelValues("invalid").Inc()
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	if !user.IsActive {
		metrics.Renewals.WithLabelValues("inactive").Inc()
		return nil, ErrInvalidSession
	}

	token, expiresAt, err := s.codec.Mint(user.ID)
	if err != nil {
		return nil, err
	}
	renewal := &Renewal{AccessToken: token, AccessExpiresAt: expiresAt}

	if s.rotate {
		next, err := s.refresh.Create(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if err := s.refresh.DeleteBySecret(ctx, secret); err != nil {
			return nil, err
		}
		renewal.RefreshSecret = next.Secret
		renewal.RefreshExpiresAt = next.ExpiresAt
		metrics.SessionsIssued.WithLabelValues("rotation").Inc()
	}

	metrics.Renewals.WithLabelValues("ok").Inc()
	return renewal, nil
}

// Logout deletes the record behind secret if there is one. An empty or
// unknown secret is not an error.
func (s *AuthService) Logout(ctx context.Context, secret string) error {
	metrics.Logouts.Inc()
	return s.refresh.DeleteBySecret(ctx, secret)
}

// Authenticate resolves a bearer access token to a live, active identity.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	userID, err := s.codec.Verify(accessToken)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("bad_token").Inc()
		return nil, ErrUnauthenticated
	}

	user, err := s.accounts.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			metrics.AuthFailures.WithLabelValues("unknown_user").Inc()
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		metrics.AuthFailures.WithLabelValues("inactive").Inc()
		return nil, ErrUnauthenticated
	}
	return user, nil
}

func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.refresh.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	metrics.SweptRecords.Add(float64(n))
	return n, nil
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *AuthService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				s.log.Error("refresh sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.log.Info("refresh sweep", "deleted", n)
			}
		}
	}
}

func (s *AuthService) issueSession(ctx context.Context, user *model.User, kind string) (*Session, error) {
	token, accessExp, err := s.codec.Mint(user.ID)
	if err != nil {
		return nil, err
	}

	rec, err := s.refresh.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	metrics.SessionsIssued.WithLabelValues(kind).Inc()
	return &Session{
		User:             user,
		AccessToken:      token,
		AccessExpiresAt:  accessExp,
		RefreshSecret:    rec.Secret,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(email, password, name string) error {
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidInput
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLength || len(password) > maxPasswordLength {
		return ErrInvalidInput
	}
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return ErrInvalidInput
	}
	return nil
}
