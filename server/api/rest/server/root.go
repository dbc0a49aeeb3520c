package server

import (
	"net/http"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
	"github.com/vmware-archive/salt-ci/server/api/rest/routes"
	"github.com/vmware-archive/salt-ci/server/services"
)

var rootDocumentPaths = map[string]func(ctx routes.RequestContext) string{
	"account_url":               routes.MakeAccountLink,
	"repos_url":                 routes.MakeReposLink,
	"repo_hooks_url":            routes.MakeRepoHooksLink,
	"sync_url":                  routes.MakeSyncLink,
	"github_authentication_url": routes.MakeGitHubAuthenticationURL,
	"signout_url":               routes.MakeSignOutURL,
}

type RootAPI struct {
	*APIBase
}

func NewRootAPI(
	authorizationService services.AuthorizationService,
	logFactory logger.LogFactory) *RootAPI {

	return &RootAPI{
		APIBase: NewAPIBase(authorizationService, logFactory("RootAPI")),
	}
}

func (a *RootAPI) GetRootDocument(w http.ResponseWriter, r *http.Request) {
	res := make(documents.GetRootDocumentResponse)
	for name, fn := range rootDocumentPaths {
		res[name] = fn(routes.RequestCtx(r))
	}
	a.JSON(w, r, res)
}
