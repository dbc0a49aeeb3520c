package routes

import (
	"fmt"

	"github.com/vmware-archive/salt-ci/common/models"
)

func MakeRepoLink(rctx RequestContext, repoID models.RepoID) string {
	return fmt.Sprintf("%s/api/v1/repos/%s", rctx.BaseURL(), repoID)
}

func MakeReposLink(rctx RequestContext) string {
	return fmt.Sprintf("%s/api/v1/repos", rctx.BaseURL())
}

func MakeRepoHooksLink(rctx RequestContext) string {
	return fmt.Sprintf("%s/hooks", MakeReposLink(rctx))
}
