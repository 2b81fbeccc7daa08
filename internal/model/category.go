package model

import "fmt"

// Category identifies one of the monitored resource collections of a
// repository. The string value doubles as the alert flag name and as the
// key used in the notification store.
type Category string

const (
	CategoryIssues      Category = "issues"
	CategoryNewPRs      Category = "newPRs"
	CategoryAssignedPRs Category = "assignedPRs"
	CategoryActions     Category = "actions"
	CategoryNewReleases Category = "newReleases"
)

// Kind describes how a category's previous state is represented.
type Kind int

const (
	// KindIDList categories remember the ids seen on the last fetch and
	// report ids that were not seen before.
	KindIDList Kind = iota

	// KindStateMap categories remember an id -> state mapping and report
	// ids whose state changed.
	KindStateMap
)

// AllCategories returns every category in the fixed processing order.
func AllCategories() []Category {
	return []Category{
		CategoryIssues,
		CategoryNewPRs,
		CategoryAssignedPRs,
		CategoryActions,
		CategoryNewReleases,
	}
}

// ParseCategory converts a flag name into a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Kind returns the snapshot representation used by the category.
func (c Category) Kind() Kind {
	if c == CategoryActions {
		return KindStateMap
	}
	return KindIDList
}

// SnapshotKey returns the key under which the category's previous state is
// stored in a repository snapshot.
func (c Category) SnapshotKey() string {
	switch c {
	case CategoryIssues:
		return "issues"
	case CategoryNewPRs:
		return "prs"
	case CategoryAssignedPRs:
		return "assignedPRs"
	case CategoryActions:
		return "actions"
	case CategoryNewReleases:
		return "releases"
	default:
		return string(c)
	}
}

// Label is a short human-readable name for the category.
func (c Category) Label() string {
	switch c {
	case CategoryIssues:
		return "Issues"
	case CategoryNewPRs:
		return "Pull requests"
	case CategoryAssignedPRs:
		return "Assigned pull requests"
	case CategoryActions:
		return "Workflow runs"
	case CategoryNewReleases:
		return "Releases"
	default:
		return string(c)
	}
}
