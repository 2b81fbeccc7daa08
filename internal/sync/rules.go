package sync

import (
	"context"

	"github.com/nhle/repowatch/internal/diff"
	"github.com/nhle/repowatch/internal/model"
	"github.com/nhle/repowatch/internal/source"
)

// fetchFunc fetches the first page of one category and reduces it to an
// observation.
type fetchFunc func(ctx context.Context, src source.Source, repo, login string, opts source.FetchOptions) (model.Observation, error)

// categoryRules holds the fetcher of every category. The novelty rule and key
// type follow from Category.Kind.
var categoryRules = map[model.Category]fetchFunc{
	model.CategoryIssues: func(ctx context.Context, src source.Source, repo, _ string, opts source.FetchOptions) (model.Observation, error) {
		page, err := src.FetchIssues(ctx, repo, "open", opts)
		return itemObservation(model.CategoryIssues, page, err)
	},
	model.CategoryNewPRs: func(ctx context.Context, src source.Source, repo, _ string, opts source.FetchOptions) (model.Observation, error) {
		page, err := src.FetchPullRequests(ctx, repo, "open", opts)
		return itemObservation(model.CategoryNewPRs, page, err)
	},
	model.CategoryAssignedPRs: func(ctx context.Context, src source.Source, repo, login string, opts source.FetchOptions) (model.Observation, error) {
		page, err := src.FetchAssignedPullRequests(ctx, repo, login, opts)
		return itemObservation(model.CategoryAssignedPRs, page, err)
	},
	model.CategoryActions: func(ctx context.Context, src source.Source, repo, _ string, opts source.FetchOptions) (model.Observation, error) {
		page, err := src.FetchWorkflowRuns(ctx, repo, "", opts)
		if err != nil {
			return model.Observation{}, err
		}
		ids := make([]int64, 0, len(page.Items))
		for _, r := range page.Items {
			ids = append(ids, r.ID)
		}
		return model.Observation{
			Category:   model.CategoryActions,
			IDs:        ids,
			States:     diff.RunStates(page.Items),
			TotalPages: page.TotalPages,
		}, nil
	},
	model.CategoryNewReleases: func(ctx context.Context, src source.Source, repo, _ string, opts source.FetchOptions) (model.Observation, error) {
		page, err := src.FetchReleases(ctx, repo, opts)
		return itemObservation(model.CategoryNewReleases, page, err)
	},
}

func itemObservation(c model.Category, page *source.Page[source.Item], err error) (model.Observation, error) {
	if err != nil {
		return model.Observation{}, err
	}
	ids := make([]int64, 0, len(page.Items))
	for _, it := range page.Items {
		ids = append(ids, it.ID)
	}
	return model.Observation{
		Category:   c,
		IDs:        ids,
		TotalPages: page.TotalPages,
	}, nil
}
