package server_test

import (
	"github.com/benbjohnson/clock"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/api/rest/server"
	"github.com/vmware-archive/salt-ci/server/services"
	"github.com/vmware-archive/salt-ci/server/services/scm/fake_scm"
	"github.com/vmware-archive/salt-ci/server/store"
)

type TestServer struct {
	DB                          *store.DB
	Clock                       *clock.Mock
	FakeProvider                *fake_scm.FakeProvider
	AccountStore                store.AccountStore
	PrivilegeStore              store.PrivilegeStore
	GroupStore                  store.GroupStore
	GroupMembershipStore        store.GroupMembershipStore
	GrantStore                  store.GrantStore
	AuthorizationStore          store.AuthorizationStore
	OrganizationStore           store.OrganizationStore
	OrganizationMembershipStore store.OrganizationMembershipStore
	RepoStore                   store.RepoStore
	RepoAdministratorStore      store.RepoAdministratorStore
	AuthorizationService        services.AuthorizationService
	AccountService              services.AccountService
	GroupService                services.GroupService
	AuthenticationService       services.AuthenticationService
	RepoService                 services.RepoService
	SyncService                 services.SyncService
	HookService                 services.HookService
	LogFactory                  logger.LogFactory

	AppAPIServer *server.AppAPIServer
}

func NewTestServer(
	db *store.DB,
	clk *clock.Mock,
	fakeProvider *fake_scm.FakeProvider,
	accountStore store.AccountStore,
	privilegeStore store.PrivilegeStore,
	groupStore store.GroupStore,
	groupMembershipStore store.GroupMembershipStore,
	grantStore store.GrantStore,
	authorizationStore store.AuthorizationStore,
	organizationStore store.OrganizationStore,
	organizationMembershipStore store.OrganizationMembershipStore,
	repoStore store.RepoStore,
	repoAdministratorStore store.RepoAdministratorStore,
	authorizationService services.AuthorizationService,
	accountService services.AccountService,
	groupService services.GroupService,
	authenticationService services.AuthenticationService,
	repoService services.RepoService,
	syncService services.SyncService,
	hookService services.HookService,
	logFactory logger.LogFactory,
	appAPIServer *server.AppAPIServer,
) *TestServer {
	return &TestServer{
		DB:                          db,
		Clock:                       clk,
		FakeProvider:                fakeProvider,
		AccountStore:                accountStore,
		PrivilegeStore:              privilegeStore,
		GroupStore:                  groupStore,
		GroupMembershipStore:        groupMembershipStore,
		GrantStore:                  grantStore,
		AuthorizationStore:          authorizationStore,
		OrganizationStore:           organizationStore,
		OrganizationMembershipStore: organizationMembershipStore,
		RepoStore:                   repoStore,
		RepoAdministratorStore:      repoAdministratorStore,
		AuthorizationService:        authorizationService,
		AccountService:              accountService,
		GroupService:                groupService,
		AuthenticationService:       authenticationService,
		RepoService:                 repoService,
		SyncService:                 syncService,
		HookService:                 hookService,
		LogFactory:                  logFactory,
		AppAPIServer:                appAPIServer,
	}
}
