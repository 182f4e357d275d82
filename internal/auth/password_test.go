package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestCreateHashAndVerify(t *testing.T) {
	hash, err := CreateHash("hunter22", testParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := VerifyPassword("hunter22", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("hunter23", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	a, err := CreateHash("same", testParams)
	require.NoError(t, err)
	b, err := CreateHash("same", testParams)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, h := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$***$a2V5",
	} {
		_, err := VerifyPassword("x", h)
		assert.ErrorIs(t, err, ErrInvalidHash, h)
	}

	_, err := VerifyPassword("x", "$argon2id$v=16$m=8192,t=1,p=1$c2FsdA$a2V5")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}
