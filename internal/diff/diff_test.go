package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/repowatch/internal/model"
	"github.com/nhle/repowatch/internal/source"
)

func TestNewIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		prev []int64
		cur  []int64
		want []int64
	}{
		{name: "one new", prev: []int64{1, 2}, cur: []int64{1, 2, 3}, want: []int64{3}},
		{name: "unchanged", prev: []int64{1, 2}, cur: []int64{2, 1}, want: nil},
		{name: "closed items are not news", prev: []int64{1, 2, 3}, cur: []int64{3}, want: nil},
		{name: "order follows current", prev: []int64{5}, cur: []int64{9, 5, 7}, want: []int64{9, 7}},
		{name: "duplicates collapse", prev: nil, cur: []int64{4, 4}, want: []int64{4}},
		{name: "empty current", prev: []int64{1}, cur: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewIDs(tt.prev, tt.cur))
		})
	}
}

func TestRunState(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", RunState(source.Run{Status: "completed", Conclusion: "success"}))
	assert.Equal(t, "in_progress", RunState(source.Run{Status: "in_progress"}))
	assert.Equal(t, "queued", RunState(source.Run{Status: "queued", Conclusion: "ignored"}))
}

func TestChangedRunsReportsTransitions(t *testing.T) {
	t.Parallel()

	prev := map[int64]string{101: "in_progress", 102: "success"}
	runs := []source.Run{
		{ID: 101, Status: "completed", Conclusion: "success"},
		{ID: 102, Status: "completed", Conclusion: "success"},
		{ID: 103, Status: "queued"},
	}

	assert.Equal(t, []int64{101, 103}, ChangedRuns(prev, runs))
	assert.Nil(t, ChangedRuns(RunStates(runs), runs))
}

func TestDetectDispatchesOnCategory(t *testing.T) {
	t.Parallel()

	prev := model.RepoSnapshot{
		Issues:  []int64{1, 2},
		Actions: map[int64]string{101: "in_progress"},
	}

	issues := model.Observation{Category: model.CategoryIssues, IDs: []int64{1, 2, 3}}
	assert.Equal(t, []int64{3}, Detect(prev, issues))

	actions := model.Observation{
		Category: model.CategoryActions,
		IDs:      []int64{101},
		States:   map[int64]string{101: "success"},
	}
	assert.Equal(t, []int64{101}, Detect(prev, actions))

	// the same observation against the updated baseline is quiet
	next := model.MergeSnapshot(prev, actions, true)
	assert.Nil(t, Detect(next, actions))

	releases := model.Observation{Category: model.CategoryNewReleases, IDs: []int64{8}}
	assert.Equal(t, []int64{8}, Detect(prev, releases))
}
