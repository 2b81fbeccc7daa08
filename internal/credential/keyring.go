package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"

	"github.com/nhle/repowatch/internal/source"
)

const (
	serviceName = "repowatch"

	// TokenKey is the keyring entry holding the GitHub token.
	TokenKey = "github-token"

	// TokenEnv overrides the keyring when set.
	TokenEnv = "GITHUB_TOKEN"
)

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/repowatch/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("repowatch-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       "repowatch GitHub token",
		Description: "Personal access token used to poll GitHub",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Token returns the GitHub token, preferring $GITHUB_TOKEN over the keyring.
// A missing token is reported as a source.AuthError.
func Token() (string, error) {
	return tokenFrom(os.Getenv(TokenEnv), Get)
}

func tokenFrom(env string, lookup func(key string) (string, error)) (string, error) {
	if t := strings.TrimSpace(env); t != "" {
		return t, nil
	}

	t, err := lookup(TokenKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return "", err
	}
	if t = strings.TrimSpace(t); t == "" {
		return "", &source.AuthError{
			Provider: "github",
			Message:  fmt.Sprintf("no token configured: run `repowatch login` or set $%s", TokenEnv),
		}
	}
	return t, nil
}
