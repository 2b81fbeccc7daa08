// Package notify maintains the backlog of undelivered notification markers
// and derives the badge shown by the external indicator.
package notify

import (
	"slices"

	"github.com/nhle/repowatch/internal/model"
)

// Merge appends the ids of fresh that are not yet in existing, keeping
// insertion order (earliest detected first). When nothing is appended the
// existing slice itself is returned, so callers can detect a no-op by
// length. Merge is idempotent: merging the same ids twice adds them once.
func Merge(existing, fresh []int64) []int64 {
	if len(fresh) == 0 {
		return existing
	}

	seen := make(map[int64]struct{}, len(existing)+len(fresh))
	for _, id := range existing {
		seen[id] = struct{}{}
	}

	out := slices.Clip(existing)
	for _, id := range fresh {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Accumulate merges fresh markers into n[repo][cat] and reports whether
// anything was added. Entries are only created when there is something to
// store.
func Accumulate(n model.Notifications, repo string, cat model.Category, fresh []int64) bool {
	existing := n[repo][cat]
	merged := Merge(existing, fresh)
	if len(merged) == len(existing) {
		return false
	}

	if n[repo] == nil {
		n[repo] = make(map[model.Category][]int64)
	}
	n[repo][cat] = merged
	return true
}

// Clear removes every marker of one repository category. The repository
// entry is deleted once it has no categories left. It reports whether
// anything was removed.
func Clear(n model.Notifications, repo string, cat model.Category) bool {
	cats, ok := n[repo]
	if !ok {
		return false
	}

	_, had := cats[cat]
	delete(cats, cat)
	if len(cats) == 0 {
		delete(n, repo)
	}
	return had
}
