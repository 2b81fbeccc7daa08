package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/repowatch/internal/model"
)

func TestMergeAppendsOnlyUnseen(t *testing.T) {
	t.Parallel()

	got := Merge([]int64{3}, []int64{3, 4})
	assert.Equal(t, []int64{3, 4}, got)

	// idempotent under repeated application
	assert.Equal(t, []int64{3, 4}, Merge(got, []int64{3, 4}))

	// associative: (a+b)+c == a+(b+c)
	a, b, c := []int64{1}, []int64{2, 1}, []int64{3, 2}
	assert.Equal(t, Merge(Merge(a, b), c), Merge(a, Merge(b, c)))
}

func TestMergeEmptyIsNoop(t *testing.T) {
	t.Parallel()

	existing := []int64{1, 2}
	got := Merge(existing, nil)
	assert.Equal(t, existing, got)
	assert.Same(t, &existing[0], &got[0])
}

func TestMergeDoesNotWriteIntoCallerBackingArray(t *testing.T) {
	t.Parallel()

	backing := make([]int64, 1, 4)
	backing[0] = 1
	other := backing[:2]

	Merge(backing, []int64{9})
	assert.Equal(t, int64(0), other[1])
}

func TestAccumulateAcrossCycles(t *testing.T) {
	t.Parallel()

	n := model.Notifications{}
	assert.True(t, Accumulate(n, "o/r", model.CategoryIssues, []int64{3}))
	assert.True(t, Accumulate(n, "o/r", model.CategoryIssues, []int64{3, 4}))
	assert.False(t, Accumulate(n, "o/r", model.CategoryIssues, []int64{4}))
	assert.False(t, Accumulate(n, "o/r", model.CategoryNewPRs, nil))

	assert.Equal(t, model.Notifications{"o/r": {model.CategoryIssues: {3, 4}}}, n)
}

func TestClearOnlyTouchesItsCategory(t *testing.T) {
	t.Parallel()

	n := model.Notifications{
		"o/r": {model.CategoryIssues: {3}, model.CategoryNewPRs: {9}},
	}

	assert.True(t, Clear(n, "o/r", model.CategoryIssues))
	assert.Equal(t, model.Notifications{"o/r": {model.CategoryNewPRs: {9}}}, n)

	assert.False(t, Clear(n, "o/r", model.CategoryIssues))
	assert.False(t, Clear(n, "x/y", model.CategoryIssues))

	assert.True(t, Clear(n, "o/r", model.CategoryNewPRs))
	assert.Empty(t, n)
}
