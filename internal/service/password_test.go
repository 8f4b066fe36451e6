package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestPasswordHasher(t *testing.T) {
	h := newTestHasher(t)

	t.Run("round trip", func(t *testing.T) {
		digest, err := h.Hash("secret123")
		require.NoError(t, err)
		assert.NotEqual(t, "secret123", digest)
		assert.True(t, h.Verify("secret123", digest))
		assert.False(t, h.Verify("secret124", digest))
	})

	t.Run("salt differs per call", func(t *testing.T) {
		a, err := h.Hash("secret123")
		require.NoError(t, err)
		b, err := h.Hash("secret123")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("malformed digest is a mismatch", func(t *testing.T) {
		for _, digest := range []string{"", "not-a-hash", "$2a$04$short"} {
			assert.NotPanics(t, func() {
				assert.False(t, h.Verify("secret123", digest))
			})
		}
	})

	t.Run("over bcrypt limit is invalid input", func(t *testing.T) {
		_, err := h.Hash(strings.Repeat("a", 73))
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("dummy hash is a valid digest that matches nothing real", func(t *testing.T) {
		cost, err := bcrypt.Cost([]byte(h.DummyHash()))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.MinCost, cost)
		assert.False(t, h.Verify("secret123", h.DummyHash()))
		assert.NotPanics(t, func() { h.VerifyDummy("secret123") })
	})
}

func TestNewPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	h, err := NewPasswordHasher(0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}
