package server

import (
	"net/http"
	"strings"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
	"github.com/vmware-archive/salt-ci/server/api/rest/routes"
	"github.com/vmware-archive/salt-ci/server/services"
)

type RepoAPI struct {
	repoService services.RepoService
	hookService services.HookService
	*APIBase
}

func NewRepoAPI(
	repoService services.RepoService,
	hookService services.HookService,
	authorizationService services.AuthorizationService,
	logFactory logger.LogFactory) *RepoAPI {
	return &RepoAPI{
		repoService: repoService,
		hookService: hookService,
		APIBase:     NewAPIBase(authorizationService, logFactory("RepoAPI")),
	}
}

func (a *RepoAPI) Get(w http.ResponseWriter, r *http.Request) {
	account, err := a.RequireAccount(r, models.AuthenticatedPermission)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	repoID, err := routes.RepoIDParam(r, "repo_id")
	if err != nil {
		a.Error(w, r, gerror.NewErrNotFound("Not Found").Wrap(err))
		return
	}
	repo, err := a.repoService.ReadManaged(r.Context(), nil, account.ID, repoID)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	res := documents.MakeRepo(routes.RequestCtx(r), repo)
	a.GotResource(w, r, res)
}

// List lists the signed in account's managed repos.
func (a *RepoAPI) List(w http.ResponseWriter, r *http.Request) {
	account, err := a.RequireAccount(r, models.AuthenticatedPermission)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	req := documents.NewRepoListRequest()
	err = req.FromQuery(r.URL.Query())
	if err != nil {
		a.Error(w, r, err)
		return
	}
	repos, cursor, err := a.repoService.SearchManaged(r.Context(), nil, account.ID, req.RepoFilter, req.Pagination)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	docs := documents.MakeRepos(routes.RequestCtx(r), repos)
	res := documents.NewPaginatedResponse(models.RepoResourceKind, routes.MakeReposLink(routes.RequestCtx(r)), req, docs, cursor)
	a.JSON(w, r, res)
}

// UpdateHooks applies the desired hook selection for each kind in the request. Push is applied
// before pull. A kind that stopped part way is reported in the 202 response rather than failing it.
func (a *RepoAPI) UpdateHooks(w http.ResponseWriter, r *http.Request) {
	account, err := a.RequireAccount(r, models.AuthenticatedPermission)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	req := &documents.PostRepoHooksRequest{}
	if isFormRequest(r) {
		err = req.FromForm(r)
	} else {
		err = a.Bind(r, req)
	}
	if err != nil {
		a.Error(w, r, err)
		return
	}
	selections := req.Selections()
	res := &documents.PostRepoHooksResponse{}
	for _, kind := range models.AllHookKinds {
		desired, ok := selections[kind]
		if !ok {
			continue
		}
		result, err := a.hookService.ApplySelection(r.Context(), account.ID, kind, desired)
		if err != nil {
			a.Error(w, r, err)
			return
		}
		switch kind {
		case models.HookKindPush:
			res.Push = result
		case models.HookKindPull:
			res.Pull = result
		}
	}
	if res.PartiallyApplied() {
		a.Accepted(w, r, res)
		return
	}
	a.JSON(w, r, res)
}

func isFormRequest(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data")
}
