package github

import (
	"context"

	"github.com/google/go-github/v28/github"
)

const githubResultsPageSize = 100

// readAllPages calls fetch for each page of a GitHub list endpoint, starting at page 1 and following
// NextPage until GitHub reports no more, and returns the combined results.
func readAllPages[T any](fetch func(page github.ListOptions) ([]T, *github.Response, error)) ([]T, error) {
	var results []T
	page := github.ListOptions{Page: 1, PerPage: githubResultsPageSize}
	for {
		items, res, err := fetch(page)
		if err != nil {
			return nil, err
		}
		results = append(results, items...)
		if res == nil || res.NextPage == 0 {
			return results, nil
		}
		page.Page = res.NextPage
	}
}

// listUserRepos lists the repos owned by the authenticated user, of any visibility.
func listUserRepos(ctx context.Context, client *github.Client) ([]*github.Repository, error) {
	return readAllPages(func(page github.ListOptions) ([]*github.Repository, *github.Response, error) {
		return client.Repositories.List(ctx, "", &github.RepositoryListOptions{
			Visibility:  "all",
			Affiliation: "owner",
			ListOptions: page,
		})
	})
}

func listOrganizationRepos(ctx context.Context, client *github.Client, organizationLogin string) ([]*github.Repository, error) {
	return readAllPages(func(page github.ListOptions) ([]*github.Repository, *github.Response, error) {
		return client.Repositories.ListByOrg(ctx, organizationLogin, &github.RepositoryListByOrgOptions{ListOptions: page})
	})
}

// listActiveMemberships lists the authenticated user's active organization memberships. Each
// membership carries the organization and the user's role in it.
func listActiveMemberships(ctx context.Context, client *github.Client) ([]*github.Membership, error) {
	return readAllPages(func(page github.ListOptions) ([]*github.Membership, *github.Response, error) {
		return client.Organizations.ListOrgMemberships(ctx, &github.ListOrgMembershipsOptions{
			State:       "active",
			ListOptions: page,
		})
	})
}

func listRepoHooks(ctx context.Context, client *github.Client, owner string, repo string) ([]*github.Hook, error) {
	return readAllPages(func(page github.ListOptions) ([]*github.Hook, *github.Response, error) {
		return client.Repositories.ListHooks(ctx, owner, repo, &page)
	})
}
