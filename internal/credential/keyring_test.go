package credential

import (
	"errors"
	"fmt"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/repowatch/internal/source"
)

func TestTokenPrefersEnvironment(t *testing.T) {
	t.Parallel()

	tok, err := tokenFrom(" env-token ", func(string) (string, error) {
		t.Fatal("keyring must not be consulted")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "env-token", tok)
}

func TestTokenFallsBackToKeyring(t *testing.T) {
	t.Parallel()

	tok, err := tokenFrom("", func(key string) (string, error) {
		assert.Equal(t, TokenKey, key)
		return "ring-token", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ring-token", tok)
}

func TestMissingTokenIsAuthError(t *testing.T) {
	t.Parallel()

	_, err := tokenFrom("", func(key string) (string, error) {
		return "", fmt.Errorf("getting credential %q: %w", key, keyring.ErrKeyNotFound)
	})
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))
}

func TestKeyringFailureIsReturned(t *testing.T) {
	t.Parallel()
	boom := errors.New("dbus unavailable")

	_, err := tokenFrom("", func(string) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, source.IsAuthError(err))
}
