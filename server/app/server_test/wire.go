//go:build wireinject
// +build wireinject

package server_test

import (
	"github.com/benbjohnson/clock"
	"github.com/google/wire"

	"github.com/vmware-archive/salt-ci/common/logger"
	rest_server "github.com/vmware-archive/salt-ci/server/api/rest/server"
	"github.com/vmware-archive/salt-ci/server/api/rest/server/servertest"
	"github.com/vmware-archive/salt-ci/server/app"
	"github.com/vmware-archive/salt-ci/server/services"
	"github.com/vmware-archive/salt-ci/server/services/account"
	"github.com/vmware-archive/salt-ci/server/services/authentication"
	"github.com/vmware-archive/salt-ci/server/services/authorization"
	"github.com/vmware-archive/salt-ci/server/services/group"
	"github.com/vmware-archive/salt-ci/server/services/hook"
	"github.com/vmware-archive/salt-ci/server/services/repo"
	"github.com/vmware-archive/salt-ci/server/services/scm"
	"github.com/vmware-archive/salt-ci/server/services/scm/fake_scm"
	"github.com/vmware-archive/salt-ci/server/services/sync"
	"github.com/vmware-archive/salt-ci/server/store"
	"github.com/vmware-archive/salt-ci/server/store/accounts"
	"github.com/vmware-archive/salt-ci/server/store/authorizations"
	"github.com/vmware-archive/salt-ci/server/store/grants"
	"github.com/vmware-archive/salt-ci/server/store/group_memberships"
	"github.com/vmware-archive/salt-ci/server/store/groups"
	"github.com/vmware-archive/salt-ci/server/store/organization_memberships"
	"github.com/vmware-archive/salt-ci/server/store/organizations"
	"github.com/vmware-archive/salt-ci/server/store/privileges"
	"github.com/vmware-archive/salt-ci/server/store/repo_administrators"
	"github.com/vmware-archive/salt-ci/server/store/repos"
	"github.com/vmware-archive/salt-ci/server/store/store_test"
)

func New(config *app.ServerConfig) (*TestServer, func(), error) {
	panic(wire.Build(
		NewTestServer,
		wire.FieldsOf(new(*app.ServerConfig), "AppAPIConfig", "AppAPIRouterConfig", "AuthenticationConfig", "SyncConfig", "HookConfig", "LogLevels"),
		store_test.Connect,

		accounts.NewStore,
		wire.Bind(new(store.AccountStore), new(*accounts.AccountStore)),
		privileges.NewStore,
		wire.Bind(new(store.PrivilegeStore), new(*privileges.PrivilegeStore)),
		groups.NewStore,
		wire.Bind(new(store.GroupStore), new(*groups.GroupStore)),
		group_memberships.NewStore,
		wire.Bind(new(store.GroupMembershipStore), new(*group_memberships.GroupMembershipStore)),
		grants.NewStore,
		wire.Bind(new(store.GrantStore), new(*grants.GrantStore)),
		authorizations.NewStore,
		wire.Bind(new(store.AuthorizationStore), new(*authorizations.AuthorizationStore)),
		organizations.NewStore,
		wire.Bind(new(store.OrganizationStore), new(*organizations.OrganizationStore)),
		organization_memberships.NewStore,
		wire.Bind(new(store.OrganizationMembershipStore), new(*organization_memberships.OrganizationMembershipStore)),
		repos.NewStore,
		wire.Bind(new(store.RepoStore), new(*repos.RepoStore)),
		repo_administrators.NewStore,
		wire.Bind(new(store.RepoAdministratorStore), new(*repo_administrators.RepoAdministratorStore)),

		authorization.NewAuthorizationService,
		wire.Bind(new(services.AuthorizationService), new(*authorization.AuthorizationService)),
		account.NewAccountService,
		wire.Bind(new(services.AccountService), new(*account.AccountService)),
		group.NewGroupService,
		wire.Bind(new(services.GroupService), new(*group.GroupService)),
		authentication.NewAuthenticationService,
		wire.Bind(new(services.AuthenticationService), new(*authentication.AuthenticationService)),
		repo.NewRepoService,
		wire.Bind(new(services.RepoService), new(*repo.RepoService)),
		sync.NewSyncService,
		wire.Bind(new(services.SyncService), new(*sync.SyncService)),
		hook.NewHookService,
		wire.Bind(new(services.HookService), new(*hook.HookService)),
		fake_scm.NewFakeProvider,
		wire.Bind(new(scm.Provider), new(*fake_scm.FakeProvider)),

		rest_server.NewRootAPI,
		rest_server.NewAuthenticationAPI,
		rest_server.NewAccountAPI,
		rest_server.NewSyncAPI,
		rest_server.NewRepoAPI,
		rest_server.NewInboundHookAPI,
		rest_server.NewAppAPIServer,
		rest_server.NewAppAPIRouter,
		servertest.HTTPTestServerFactory,

		logger.NewLogRegistry,
		logger.MakeLogrusLogFactoryStdOut,
		MakeMockClock,
		wire.Bind(new(clock.Clock), new(*clock.Mock)),
	))
}
