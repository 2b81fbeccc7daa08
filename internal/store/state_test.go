package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/repowatch/internal/model"
	"github.com/nhle/repowatch/internal/store"
	"github.com/nhle/repowatch/tests/testutil"
)

func TestLoadEmptyState(t *testing.T) {
	t.Parallel()
	ss, _ := testutil.NewTestStateStore(t)

	st, err := ss.Load(context.Background(), "octocat")
	require.NoError(t, err)
	assert.True(t, st.Alerts.IsEmpty())
	assert.Empty(t, st.Snapshot)
	assert.Empty(t, st.Notifications)
}

func TestSaveCycleWritesBothValuesInOneWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := &countingKV{KV: testutil.NewTestStore(t)}
	ss := store.NewStateStore(kv, nil)

	snap := model.Snapshot{"o/r": {Issues: []int64{1, 2}, PRs: []int64{}}}
	notifs := model.Notifications{"o/r": {model.CategoryIssues: {2}}}
	require.NoError(t, ss.SaveCycle(ctx, "octocat", nil, snap, notifs))
	assert.Equal(t, 1, kv.writes)

	st, err := ss.Load(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, snap, st.Snapshot)
	assert.Equal(t, notifs, st.Notifications)

	// observed-but-empty survives, never-observed stays nil
	assert.NotNil(t, st.Snapshot["o/r"].PRs)
	assert.Nil(t, st.Snapshot["o/r"].Releases)
	assert.NotEmpty(t, st.Version)
}

func TestStaleVersionIsRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ss, _ := testutil.NewTestStateStore(t)

	require.NoError(t, ss.SaveCycle(ctx, "octocat", nil,
		model.Snapshot{"o/r": {Issues: []int64{1, 2}}}, model.Notifications{}))

	first, err := ss.Load(ctx, "octocat")
	require.NoError(t, err)
	second, err := ss.Load(ctx, "octocat")
	require.NoError(t, err)
	require.Equal(t, first.Version, second.Version)

	// a cycle commits on top of the first read
	require.NoError(t, ss.SaveCycle(ctx, "octocat", first.Version,
		model.Snapshot{"o/r": {Issues: []int64{1, 2, 3}}},
		model.Notifications{"o/r": {model.CategoryIssues: {3}}}))

	// an acknowledgement based on the second, now stale, read must not land
	err = ss.SaveNotifications(ctx, "octocat", second.Version, model.Notifications{})
	require.ErrorIs(t, err, store.ErrStateChanged)
	assert.True(t, store.IsPersistenceError(err))

	st, err := ss.Load(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, model.Notifications{"o/r": {model.CategoryIssues: {3}}}, st.Notifications)
	assert.NotEqual(t, first.Version, st.Version)
}

func TestFirstWriteRequiresAbsentVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ss, _ := testutil.NewTestStateStore(t)

	require.NoError(t, ss.SaveNotifications(ctx, "octocat", nil, model.Notifications{}))
	err := ss.SaveNotifications(ctx, "octocat", nil, model.Notifications{})
	assert.ErrorIs(t, err, store.ErrStateChanged)
}

func TestStateIsNamespacedByLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ss, kv := testutil.NewTestStateStore(t)

	alerts := model.AlertConfig{}
	alerts.Set("o/r", model.CategoryActions, true)
	require.NoError(t, ss.SaveAlerts(ctx, "alice", alerts))

	raw, err := kv.Get(ctx, "alice:alertConfig", "bob:alertConfig")
	require.NoError(t, err)
	assert.JSONEq(t, `{"o/r":{"actions":true}}`, string(raw["alice:alertConfig"]))
	assert.NotContains(t, raw, "bob:alertConfig")

	st, err := ss.Load(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, st.Alerts.IsEmpty())
}

func TestLoadToleratesMalformedNotifications(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ss, kv := testutil.NewTestStateStore(t)

	require.NoError(t, kv.Set(ctx, map[string][]byte{
		"octocat:activeNotifications": []byte(`{"o/r":{"issues":[3],"newPRs":"oops"}}`),
	}))

	notifs, err := ss.LoadNotifications(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, model.Notifications{"o/r": {model.CategoryIssues: {3}}}, notifs)
}

func TestLoadRejectsCorruptSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ss, kv := testutil.NewTestStateStore(t)

	require.NoError(t, kv.Set(ctx, map[string][]byte{
		"octocat:lastCheckedData": []byte(`[1,2,3]`),
	}))

	_, err := ss.Load(ctx, "octocat")
	require.Error(t, err)
	assert.True(t, store.IsPersistenceError(err))
}

func TestWriteFailureIsPersistenceError(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk full")
	ss := store.NewStateStore(&failingKV{err: boom}, nil)

	err := ss.SaveCycle(context.Background(), "octocat", nil, model.Snapshot{}, nil)
	require.ErrorIs(t, err, boom)
	assert.True(t, store.IsPersistenceError(err))
}

type countingKV struct {
	store.KV
	writes int
}

func (c *countingKV) Set(ctx context.Context, values map[string][]byte) error {
	c.writes++
	return c.KV.Set(ctx, values)
}

func (c *countingKV) CompareAndSet(ctx context.Context, guard string, expected []byte, values map[string][]byte) (bool, error) {
	c.writes++
	return c.KV.CompareAndSet(ctx, guard, expected, values)
}

type failingKV struct{ err error }

func (f *failingKV) Get(context.Context, ...string) (map[string][]byte, error) { return nil, f.err }
func (f *failingKV) Set(context.Context, map[string][]byte) error { return f.err }
func (f *failingKV) Close() error { return nil }

func (f *failingKV) CompareAndSet(context.Context, string, []byte, map[string][]byte) (bool, error) {
	return false, f.err
}
