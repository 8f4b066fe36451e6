package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad(t *testing.T) {
	t.Run("uses defaults when only required keys are set", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")

		cfg, err := Load(noEnvFile(t))
		require.NoError(t, err)

		assert.Equal(t, EnvDevelopment, cfg.Server.Env)
		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, StorePostgres, cfg.Store.Backend)
		assert.Equal(t, "/", cfg.Auth.CookiePath)
		assert.False(t, cfg.Auth.CookieSecure)
		assert.False(t, cfg.Auth.RotateRefresh)
		assert.Zero(t, cfg.Auth.SweepInterval)
		assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
		assert.True(t, cfg.Diagnostic())
	})

	t.Run("production turns on secure cookies and hides diagnostics", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		t.Setenv("APP_ENV", "production")

		cfg, err := Load(noEnvFile(t))
		require.NoError(t, err)

		assert.True(t, cfg.Auth.CookieSecure)
		assert.False(t, cfg.Diagnostic())
	})

	t.Run("explicit cookie flag wins over environment default", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		t.Setenv("APP_ENV", "production")
		t.Setenv("AUTH_COOKIE_SECURE", "false")

		cfg, err := Load(noEnvFile(t))
		require.NoError(t, err)
		assert.False(t, cfg.Auth.CookieSecure)
	})

	t.Run("reads values from env file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		content := "JWT_SECRET=file-secret\nPORT=3000\nSESSION_STORE=redis\nAUTH_SWEEP_INTERVAL=1h\nCORS_ALLOWED_ORIGINS=http://a.test, http://b.test\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		for _, k := range []string{"JWT_SECRET", "PORT", "SESSION_STORE", "AUTH_SWEEP_INTERVAL", "CORS_ALLOWED_ORIGINS"} {
			// t.Setenv restores the original value once the test ends.
			t.Setenv(k, "")
			require.NoError(t, os.Unsetenv(k))
		}

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
		assert.Equal(t, "3000", cfg.Server.Port)
		assert.Equal(t, StoreRedis, cfg.Store.Backend)
		assert.Equal(t, time.Hour, cfg.Auth.SweepInterval)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	})

	t.Run("missing secret is rejected", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")

		_, err := Load(noEnvFile(t))
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("unknown store backend is rejected", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		t.Setenv("SESSION_STORE", "etcd")

		_, err := Load(noEnvFile(t))
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("mongo store requires uri", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		t.Setenv("SESSION_STORE", "mongo")
		t.Setenv("MONGODB_URI", "")

		_, err := Load(noEnvFile(t))
		require.ErrorIs(t, err, ErrInvalid)
	})
}
