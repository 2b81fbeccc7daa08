package model

import "sort"

// CategorySet holds the per-category switches of one repository.
type CategorySet map[Category]bool

// AlertConfig maps a repository full name ("owner/name") to the categories
// that participate in a poll cycle. A missing repository monitors nothing.
type AlertConfig map[string]CategorySet

// Enabled returns the categories switched on for repo, in processing order.
func (a AlertConfig) Enabled(repo string) []Category {
	set, ok := a[repo]
	if !ok {
		return nil
	}

	var out []Category
	for _, c := range AllCategories() {
		if set[c] {
			out = append(out, c)
		}
	}
	return out
}

// Repositories returns the configured repository names in sorted order.
func (a AlertConfig) Repositories() []string {
	repos := make([]string, 0, len(a))
	for repo := range a {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}

// IsEmpty reports whether no repository has any category enabled.
func (a AlertConfig) IsEmpty() bool {
	for repo := range a {
		if len(a.Enabled(repo)) > 0 {
			return false
		}
	}
	return true
}

// Set switches a single category on or off for repo. Switching off the last
// category removes the repository entry.
func (a AlertConfig) Set(repo string, c Category, enabled bool) {
	set, ok := a[repo]
	if !ok {
		if !enabled {
			return
		}
		set = make(CategorySet)
		a[repo] = set
	}

	if enabled {
		set[c] = true
	} else {
		delete(set, c)
	}

	if len(set) == 0 {
		delete(a, repo)
	}
}
