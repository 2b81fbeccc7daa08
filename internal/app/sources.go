package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nhle/repowatch/internal/credential"
	"github.com/nhle/repowatch/internal/model"
	"github.com/nhle/repowatch/internal/source/github"
	"github.com/nhle/repowatch/internal/store"
)

// NewGitHubSource builds the GitHub adapter, loading the token from
// $GITHUB_TOKEN or the system keyring.
func NewGitHubSource(cfg model.GitHubConfig) (*github.Adapter, error) {
	token, err := credential.Token()
	if err != nil {
		return nil, err
	}
	return github.NewAdapter(cfg.BaseURL, token), nil
}

// OpenStore opens the KV backend named by cfg.Driver.
func OpenStore(ctx context.Context, cfg model.StoreConfig) (store.KV, error) {
	switch cfg.Driver {
	case "redis":
		s, err := store.ConnectRedis(ctx, store.DefaultRedisConfig(cfg.RedisURL))
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return s, nil
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(model.DefaultConfigDir(), "state.db")
		}
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		return store.NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// ensureDir creates the parent directory of a database file.
func ensureDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
