package testutil

import (
	"testing"

	"github.com/nhle/repowatch/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestStateStore wraps an in-memory SQLiteStore in a StateStore.
func NewTestStateStore(t *testing.T) (*store.StateStore, *store.SQLiteStore) {
	t.Helper()

	kv := NewTestStore(t)
	return store.NewStateStore(kv, nil), kv
}
