package app

import (
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/api/rest/server"
	"github.com/vmware-archive/salt-ci/server/services"
	"github.com/vmware-archive/salt-ci/server/services/scm"
)

type Server struct {
	AuthorizationService services.AuthorizationService
	AccountService       services.AccountService
	GroupService         services.GroupService
	SyncService          services.SyncService
	HookService          services.HookService
	Provider             scm.Provider
	AppAPIServer         *server.AppAPIServer
	LogFactory           logger.LogFactory
}

func NewServer(
	authorizationService services.AuthorizationService,
	accountService services.AccountService,
	groupService services.GroupService,
	syncService services.SyncService,
	hookService services.HookService,
	provider scm.Provider,
	appAPIServer *server.AppAPIServer,
	logFactory logger.LogFactory,
) *Server {
	return &Server{
		AuthorizationService: authorizationService,
		AccountService:       accountService,
		GroupService:         groupService,
		SyncService:          syncService,
		HookService:          hookService,
		Provider:             provider,
		AppAPIServer:         appAPIServer,
		LogFactory:           logFactory,
	}
}
