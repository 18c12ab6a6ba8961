package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/account-service/internal/apperror"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	for _, p := range []string{"pw123456", "correct horse battery staple", "ünïcødé", " "} {
		hash, err := h.Hash(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, hash)

		ok, err := h.Verify(p, hash)
		require.NoError(t, err)
		assert.True(t, ok, "password %q should verify", p)
	}
}

func TestPasswordHasherRejectsOtherPassword(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("pw123456")
	require.NoError(t, err)

	ok, err := h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasherSaltsEachHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, err := h.Hash("pw123456")
	require.NoError(t, err)
	b, err := h.Hash("pw123456")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPasswordHasherMalformedHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	ok, err := h.Verify("pw123456", "not-a-bcrypt-hash")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, apperror.CodeHashing, apperror.Code(err))
}

func TestPasswordHasherTooLong(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeHashing, apperror.Code(err))
}

func TestNewPasswordHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(1).cost)
	assert.Equal(t, bcrypt.MaxCost, NewPasswordHasher(99).cost)
}
