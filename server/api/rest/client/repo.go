package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
)

const (
	reposPath     = "/api/v1/repos"
	repoHooksPath = "/api/v1/repos/hooks"
)

type repoPage struct {
	documents.PaginatedResponse
	Results []*documents.Repo `json:"results"`
}

func (a *APIClient) GetRepo(ctx context.Context, repoID fmt.Stringer) (*documents.Repo, error) {
	repo := &documents.Repo{}
	_, err := a.getJSON(ctx, fmt.Sprintf("%s/%s", reposPath, repoID), repo, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// ListRepos reads every page of the signed in account's managed repos matching req.
func (a *APIClient) ListRepos(ctx context.Context, req *documents.RepoListRequest) ([]*documents.Repo, error) {
	if req == nil {
		req = documents.NewRepoListRequest()
	}
	var repos []*documents.Repo
	next := documents.AddQueryParams(reposPath, req)
	for next != "" {
		page := &repoPage{}
		_, err := a.getJSON(ctx, next, page, http.StatusOK)
		if err != nil {
			return nil, err
		}
		repos = append(repos, page.Results...)
		next = page.NextURL
	}
	return repos, nil
}

// UpdateRepoHooks applies a hook selection. A selection that stopped part way is returned
// without error; check PartiallyApplied on the response.
func (a *APIClient) UpdateRepoHooks(ctx context.Context, req *documents.PostRepoHooksRequest) (*documents.PostRepoHooksResponse, error) {
	res := &documents.PostRepoHooksResponse{}
	_, err := a.postJSON(ctx, repoHooksPath, req, res, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateRepoHooksForm applies a hook selection submitted as an HTML form would submit it.
func (a *APIClient) UpdateRepoHooksForm(ctx context.Context, form url.Values) (*documents.PostRepoHooksResponse, error) {
	statusCode, _, body, err := a.doRequest(ctx, http.MethodPost, repoHooksPath, contentTypeForm, []byte(form.Encode()))
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK && statusCode != http.StatusAccepted {
		return nil, a.makeHTTPError(statusCode, body)
	}
	res := &documents.PostRepoHooksResponse{}
	err = unmarshal(body, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeliverHook posts a hook payload to path, as the provider would. Returns the response status code.
func (a *APIClient) DeliverHook(ctx context.Context, path string, contentType string, payload []byte) (int, error) {
	statusCode, _, _, err := a.doRequest(ctx, http.MethodPost, path, contentType, payload)
	return statusCode, err
}
