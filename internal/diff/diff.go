// Package diff computes which items of a freshly fetched category are new
// relative to the previous snapshot.
//
// Id-list categories (issues, pull requests, assigned pull requests and
// releases) report plain set subtraction: ids present now that were absent
// before. The workflow-run category is a state-transition detector: a run
// is reported when it is unknown or its state differs from the last one
// recorded, so each lifecycle step (queued, in_progress, a conclusion) is
// reported once.
package diff

import (
	"github.com/nhle/repowatch/internal/model"
	"github.com/nhle/repowatch/internal/source"
)

const statusCompleted = "completed"

// NewIDs returns the ids of cur that do not appear in prev, in the order
// they appear in cur. Duplicates in cur are reported once.
func NewIDs(prev, cur []int64) []int64 {
	seen := make(map[int64]struct{}, len(prev)+len(cur))
	for _, id := range prev {
		seen[id] = struct{}{}
	}

	var out []int64
	for _, id := range cur {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RunState is the comparable state of a run: its conclusion once completed,
// otherwise its status.
func RunState(r source.Run) string {
	if r.Status == statusCompleted {
		return r.Conclusion
	}
	return r.Status
}

// RunStates maps every run id to its current state.
func RunStates(runs []source.Run) map[int64]string {
	out := make(map[int64]string, len(runs))
	for _, r := range runs {
		out[r.ID] = RunState(r)
	}
	return out
}

// ChangedRuns returns the ids of runs that are unknown to prev or whose
// state differs from the recorded one, in the order of runs.
func ChangedRuns(prev map[int64]string, runs []source.Run) []int64 {
	ids := make([]int64, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	return ChangedStates(prev, ids, RunStates(runs))
}

// ChangedStates is ChangedRuns over an already reduced observation: ids
// lists the runs in fetch order and cur holds their states.
func ChangedStates(prev map[int64]string, ids []int64, cur map[int64]string) []int64 {
	var out []int64
	reported := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := reported[id]; dup {
			continue
		}
		if old, ok := prev[id]; ok && old == cur[id] {
			continue
		}
		reported[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Detect applies the novelty rule of the observed category.
func Detect(prev model.RepoSnapshot, obs model.Observation) []int64 {
	switch obs.Category.Kind() {
	case model.KindStateMap:
		return ChangedStates(prev.Actions, obs.IDs, obs.States)
	default:
		return NewIDs(prev.IDs(obs.Category), obs.IDs)
	}
}
