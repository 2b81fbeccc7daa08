package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSnapshotFailedFetchKeepsPrevious(t *testing.T) {
	t.Parallel()

	prev := RepoSnapshot{
		Issues:  []int64{1, 2},
		Actions: map[int64]string{101: "in_progress"},
	}

	next := MergeSnapshot(prev, Observation{Category: CategoryActions}, false)
	assert.Equal(t, prev, next)
}

func TestMergeSnapshotReplacesOnlyObservedCategory(t *testing.T) {
	t.Parallel()

	prev := RepoSnapshot{
		Issues:  []int64{1, 2},
		Actions: map[int64]string{101: "in_progress"},
	}

	next := MergeSnapshot(prev, Observation{Category: CategoryIssues, IDs: []int64{1, 2, 3}}, true)
	assert.Equal(t, []int64{1, 2, 3}, next.Issues)
	assert.Equal(t, map[int64]string{101: "in_progress"}, next.Actions)
	assert.Nil(t, next.PRs)

	next = MergeSnapshot(next, Observation{
		Category: CategoryActions,
		States:   map[int64]string{101: "success", 102: "queued"},
	}, true)
	assert.Equal(t, map[int64]string{101: "success", 102: "queued"}, next.Actions)
	assert.Equal(t, []int64{1, 2, 3}, next.Issues)

	// prev must not be aliased by the merged value
	assert.Equal(t, map[int64]string{101: "in_progress"}, prev.Actions)
}

func TestMergeSnapshotEmptyObservationIsObserved(t *testing.T) {
	t.Parallel()

	next := MergeSnapshot(RepoSnapshot{}, Observation{Category: CategoryNewReleases}, true)
	assert.True(t, next.Observed(CategoryNewReleases))
	assert.False(t, next.Observed(CategoryIssues))
	assert.Empty(t, next.Releases)
}

func TestRepoSnapshotJSONKeepsEmptyDistinctFromMissing(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		"o/r": RepoSnapshot{
			Issues:  []int64{},
			Actions: map[int64]string{7: "success"},
		},
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"prs":null`)
	assert.Contains(t, string(data), `"issues":[]`)

	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back["o/r"].Observed(CategoryIssues))
	assert.False(t, back["o/r"].Observed(CategoryNewPRs))
	assert.Equal(t, "success", back["o/r"].Actions[7])
}

func TestCategorySnapshotKeys(t *testing.T) {
	t.Parallel()

	want := map[Category]string{
		CategoryIssues:      "issues",
		CategoryNewPRs:      "prs",
		CategoryAssignedPRs: "assignedPRs",
		CategoryActions:     "actions",
		CategoryNewReleases: "releases",
	}
	for _, c := range AllCategories() {
		assert.Equal(t, want[c], c.SnapshotKey(), c)
	}
	assert.Equal(t, KindStateMap, CategoryActions.Kind())
	assert.Equal(t, KindIDList, CategoryNewPRs.Kind())

	c, err := ParseCategory("assignedPRs")
	require.NoError(t, err)
	assert.Equal(t, CategoryAssignedPRs, c)

	_, err = ParseCategory("stars")
	assert.Error(t, err)
}
