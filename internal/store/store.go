package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrStateChanged is returned when a conditional write finds that another
// writer, possibly in another process, changed the state since it was read.
var ErrStateChanged = errors.New("state changed since it was loaded")

// KV is the persistence contract of the poller: a flat key/value space where
// each call is atomic on its own. There is no transaction spanning calls, so
// callers that need two values to change together must write them in a
// single Set, and callers doing read-modify-write must use CompareAndSet.
type KV interface {
	// Get returns the values stored under keys. Missing keys are absent from
	// the result rather than mapped to nil.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)

	// Set writes every pair or none of them.
	Set(ctx context.Context, values map[string][]byte) error

	// CompareAndSet writes every pair of values, or none of them, provided
	// the value stored under guard still equals expected. An empty expected
	// means guard must be absent. values must carry the new value of guard.
	// It reports false without writing when the guard did not match.
	CompareAndSet(ctx context.Context, guard string, expected []byte, values map[string][]byte) (bool, error)

	Close() error
}

// PersistenceError wraps a failed read or write of per-login state.
type PersistenceError struct {
	Op    string
	Login string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s for %s: %v", e.Op, e.Login, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err (or any error in its chain) is a
// PersistenceError.
func IsPersistenceError(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}
