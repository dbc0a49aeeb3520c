package server

import (
	"net/http"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
	"github.com/vmware-archive/salt-ci/server/api/rest/routes"
	"github.com/vmware-archive/salt-ci/server/services"
)

type AccountAPI struct {
	accountService services.AccountService
	*APIBase
}

func NewAccountAPI(
	accountService services.AccountService,
	authorizationService services.AuthorizationService,
	logFactory logger.LogFactory) *AccountAPI {
	return &AccountAPI{
		accountService: accountService,
		APIBase:        NewAPIBase(authorizationService, logFactory("AccountAPI")),
	}
}

func (a *AccountAPI) Get(w http.ResponseWriter, r *http.Request) {
	account, err := a.RequireAccount(r, models.AuthenticatedPermission)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	res := documents.MakeAccount(routes.RequestCtx(r), account)
	a.GotResource(w, r, res)
}

func (a *AccountAPI) Patch(w http.ResponseWriter, r *http.Request) {
	account, err := a.RequireAccount(r, models.AuthenticatedPermission)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	req := &documents.PatchAccountRequest{}
	err = a.Bind(r, req)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	var locale, timezone string
	if req.Locale != nil {
		locale = *req.Locale
	}
	if req.Timezone != nil {
		timezone = *req.Timezone
	}
	account, err = a.accountService.UpdatePreferences(r.Context(), nil, account.ID, locale, timezone)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	res := documents.MakeAccount(routes.RequestCtx(r), account)
	a.UpdatedResource(w, r, res)
}

// RegenerateHooksToken issues the account a new hooks token. Hooks delivered to URLs built on
// the old token are rejected from then on.
func (a *AccountAPI) RegenerateHooksToken(w http.ResponseWriter, r *http.Request) {
	account, err := a.RequireAccount(r, models.AuthenticatedPermission)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	account, err = a.accountService.RegenerateHooksToken(r.Context(), nil, account.ID)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	res := documents.MakeAccount(routes.RequestCtx(r), account)
	a.UpdatedResource(w, r, res)
}
