package model

import "maps"

// RepoSnapshot is the last observed state of every category of one
// repository. A nil field means the category has never been observed; it
// encodes as JSON null so an observed-but-empty list survives a round trip.
type RepoSnapshot struct {
	Issues      []int64          `json:"issues"`
	PRs         []int64          `json:"prs"`
	AssignedPRs []int64          `json:"assignedPRs"`
	Releases    []int64          `json:"releases"`
	Actions     map[int64]string `json:"actions"`
}

// Snapshot maps a repository full name to its last observed state.
type Snapshot map[string]RepoSnapshot

// Observation is the result of one successful fetch of one category.
type Observation struct {
	Category Category

	// IDs holds the ids of the first page in fetch order.
	IDs []int64

	// States holds run id -> state for state-map categories.
	States map[int64]string

	// TotalPages is the number of pages the collection spans upstream.
	TotalPages int
}

// IDs returns the id list stored for an id-list category.
func (s RepoSnapshot) IDs(c Category) []int64 {
	switch c {
	case CategoryIssues:
		return s.Issues
	case CategoryNewPRs:
		return s.PRs
	case CategoryAssignedPRs:
		return s.AssignedPRs
	case CategoryNewReleases:
		return s.Releases
	default:
		return nil
	}
}

// Observed reports whether the category has a recorded previous state.
func (s RepoSnapshot) Observed(c Category) bool {
	if c.Kind() == KindStateMap {
		return s.Actions != nil
	}
	return s.IDs(c) != nil
}

// MergeSnapshot returns the next snapshot entry for a repository after one
// category fetch. A failed fetch (ok == false) leaves prev untouched; a
// successful one replaces exactly the observed category.
func MergeSnapshot(prev RepoSnapshot, obs Observation, ok bool) RepoSnapshot {
	if !ok {
		return prev
	}

	next := prev
	switch obs.Category {
	case CategoryIssues:
		next.Issues = nonNilIDs(obs.IDs)
	case CategoryNewPRs:
		next.PRs = nonNilIDs(obs.IDs)
	case CategoryAssignedPRs:
		next.AssignedPRs = nonNilIDs(obs.IDs)
	case CategoryNewReleases:
		next.Releases = nonNilIDs(obs.IDs)
	case CategoryActions:
		states := make(map[int64]string, len(obs.States))
		maps.Copy(states, obs.States)
		next.Actions = states
	}
	return next
}

// Clone returns a copy of the snapshot whose entries can be replaced
// without affecting the original.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	maps.Copy(out, s)
	return out
}

// nonNilIDs keeps an empty observation distinguishable from "never observed".
func nonNilIDs(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}
