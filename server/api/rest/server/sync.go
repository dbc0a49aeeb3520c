package server

import (
	"net/http"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
	"github.com/vmware-archive/salt-ci/server/services"
)

type SyncAPI struct {
	syncService services.SyncService
	*APIBase
}

func NewSyncAPI(
	syncService services.SyncService,
	authorizationService services.AuthorizationService,
	logFactory logger.LogFactory) *SyncAPI {
	return &SyncAPI{
		syncService: syncService,
		APIBase:     NewAPIBase(authorizationService, logFactory("SyncAPI")),
	}
}

// Sync reconciles the signed in account with the provider. A sync that stopped part way is not an
// error: the response is 202 and describes the failure alongside the work that was committed.
func (a *SyncAPI) Sync(w http.ResponseWriter, r *http.Request) {
	account, err := a.RequireAccount(r, models.AuthenticatedPermission)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	result, err := a.syncService.SyncAccount(r.Context(), account.ID)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	res := documents.MakeSyncResponse(result)
	if result.IsPartial() {
		a.Accepted(w, r, res)
		return
	}
	a.JSON(w, r, res)
}
