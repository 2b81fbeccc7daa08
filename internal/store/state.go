package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nhle/repowatch/internal/model"
)

const (
	keyAlertConfig   = "alertConfig"
	keySnapshot      = "lastCheckedData"
	keyNotifications = "activeNotifications"
	keyVersion       = "stateVersion"
)

// State is everything persisted for one login.
type State struct {
	Alerts        model.AlertConfig
	Snapshot      model.Snapshot
	Notifications model.Notifications

	// Version identifies the stored snapshot and notifications as loaded.
	// Writes carrying it fail with ErrStateChanged once anyone else has
	// written since. Empty when nothing was written yet.
	Version []byte
}

// StateStore gives typed, per-login access to the values the poller keeps in
// a KV backend.
type StateStore struct {
	kv     KV
	logger *slog.Logger
}

// NewStateStore wraps kv. A nil logger discards output.
func NewStateStore(kv KV, logger *slog.Logger) *StateStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StateStore{kv: kv, logger: logger.With("module", "store")}
}

// Key returns the namespaced key of name for login.
func Key(login, name string) string {
	return login + ":" + name
}

// Load reads the alert configuration, snapshot, notifications and version of
// login in one Get. Missing values load as empty.
func (s *StateStore) Load(ctx context.Context, login string) (*State, error) {
	alertsKey := Key(login, keyAlertConfig)
	snapKey := Key(login, keySnapshot)
	notifKey := Key(login, keyNotifications)
	versionKey := Key(login, keyVersion)

	vals, err := s.kv.Get(ctx, alertsKey, snapKey, notifKey, versionKey)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Login: login, Err: err}
	}

	st := &State{
		Alerts:   model.AlertConfig{},
		Snapshot: model.Snapshot{},
		Version:  vals[versionKey],
	}

	if raw, ok := vals[alertsKey]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &st.Alerts); err != nil {
			return nil, &PersistenceError{Op: "load", Login: login, Err: fmt.Errorf("decoding alert config: %w", err)}
		}
		if st.Alerts == nil {
			st.Alerts = model.AlertConfig{}
		}
	}

	if raw, ok := vals[snapKey]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &st.Snapshot); err != nil {
			return nil, &PersistenceError{Op: "load", Login: login, Err: fmt.Errorf("decoding snapshot: %w", err)}
		}
		if st.Snapshot == nil {
			st.Snapshot = model.Snapshot{}
		}
	}

	notifs, skipped, err := model.DecodeNotifications(vals[notifKey])
	if err != nil {
		return nil, &PersistenceError{Op: "load", Login: login, Err: err}
	}
	if skipped > 0 {
		s.logger.Warn("skipped malformed notification markers",
			"login", login,
			"skipped", skipped,
		)
	}
	st.Notifications = notifs

	return st, nil
}

// LoadNotifications reads only the notification store of login.
func (s *StateStore) LoadNotifications(ctx context.Context, login string) (model.Notifications, error) {
	key := Key(login, keyNotifications)
	vals, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, &PersistenceError{Op: "load notifications", Login: login, Err: err}
	}

	notifs, skipped, err := model.DecodeNotifications(vals[key])
	if err != nil {
		return nil, &PersistenceError{Op: "load notifications", Login: login, Err: err}
	}
	if skipped > 0 {
		s.logger.Warn("skipped malformed notification markers",
			"login", login,
			"skipped", skipped,
		)
	}
	return notifs, nil
}

// SaveCycle writes the snapshot and notifications of login together, so a
// reader never observes one without the other. The write only happens if the
// state is still at version; otherwise it fails with ErrStateChanged and the
// caller must reload.
func (s *StateStore) SaveCycle(ctx context.Context, login string, version []byte, snap model.Snapshot, notifs model.Notifications) error {
	snapData, err := json.Marshal(snap)
	if err != nil {
		return &PersistenceError{Op: "save cycle", Login: login, Err: fmt.Errorf("encoding snapshot: %w", err)}
	}
	notifData, err := encodeNotifications(notifs)
	if err != nil {
		return &PersistenceError{Op: "save cycle", Login: login, Err: err}
	}

	return s.swap(ctx, "save cycle", login, version, map[string][]byte{
		Key(login, keySnapshot):      snapData,
		Key(login, keyNotifications): notifData,
	})
}

// SaveNotifications writes only the notification store of login, under the
// same version check as SaveCycle.
func (s *StateStore) SaveNotifications(ctx context.Context, login string, version []byte, notifs model.Notifications) error {
	data, err := encodeNotifications(notifs)
	if err != nil {
		return &PersistenceError{Op: "save notifications", Login: login, Err: err}
	}

	return s.swap(ctx, "save notifications", login, version, map[string][]byte{
		Key(login, keyNotifications): data,
	})
}

// swap writes values together with a fresh version of login's state if the
// stored version still equals version.
func (s *StateStore) swap(ctx context.Context, op, login string, version []byte, values map[string][]byte) error {
	versionKey := Key(login, keyVersion)
	values[versionKey] = []byte(uuid.NewString())

	ok, err := s.kv.CompareAndSet(ctx, versionKey, version, values)
	if err != nil {
		return &PersistenceError{Op: op, Login: login, Err: err}
	}
	if !ok {
		return &PersistenceError{Op: op, Login: login, Err: ErrStateChanged}
	}
	return nil
}

// SaveAlerts writes the alert configuration of login.
func (s *StateStore) SaveAlerts(ctx context.Context, login string, alerts model.AlertConfig) error {
	if alerts == nil {
		alerts = model.AlertConfig{}
	}
	data, err := json.Marshal(alerts)
	if err != nil {
		return &PersistenceError{Op: "save alerts", Login: login, Err: fmt.Errorf("encoding alert config: %w", err)}
	}

	if err := s.kv.Set(ctx, map[string][]byte{Key(login, keyAlertConfig): data}); err != nil {
		return &PersistenceError{Op: "save alerts", Login: login, Err: err}
	}
	return nil
}

func encodeNotifications(n model.Notifications) ([]byte, error) {
	if n == nil {
		n = model.Notifications{}
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encoding notifications: %w", err)
	}
	return data, nil
}
