package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaintextScheme(t *testing.T) {
	scheme := PlaintextScheme{}

	stored, err := scheme.Hash("pw1")
	require.NoError(t, err)
	assert.Equal(t, "pw1", stored)

	assert.NoError(t, scheme.Compare(stored, "pw1"))
	assert.ErrorIs(t, scheme.Compare(stored, "pw2"), ErrPasswordMismatch)
	assert.ErrorIs(t, scheme.Compare(stored, ""), ErrPasswordMismatch)
}

func TestBcryptScheme(t *testing.T) {
	scheme := BcryptScheme{Cost: 4} // minimum cost keeps the test fast

	stored, err := scheme.Hash("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", stored)

	assert.NoError(t, scheme.Compare(stored, "pw1"))
	assert.ErrorIs(t, scheme.Compare(stored, "pw2"), ErrPasswordMismatch)
}

func TestSchemeFromName(t *testing.T) {
	scheme, err := SchemeFromName("plaintext")
	require.NoError(t, err)
	assert.IsType(t, PlaintextScheme{}, scheme)

	scheme, err = SchemeFromName("bcrypt")
	require.NoError(t, err)
	assert.IsType(t, BcryptScheme{}, scheme)

	_, err = SchemeFromName("argon2")
	assert.Error(t, err)
}
