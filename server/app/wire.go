//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/google/wire"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/api/rest/server"
	"github.com/vmware-archive/salt-ci/server/services"
	"github.com/vmware-archive/salt-ci/server/services/account"
	"github.com/vmware-archive/salt-ci/server/services/authentication"
	"github.com/vmware-archive/salt-ci/server/services/authorization"
	"github.com/vmware-archive/salt-ci/server/services/group"
	"github.com/vmware-archive/salt-ci/server/services/hook"
	"github.com/vmware-archive/salt-ci/server/services/repo"
	"github.com/vmware-archive/salt-ci/server/services/scm"
	"github.com/vmware-archive/salt-ci/server/services/scm/github"
	"github.com/vmware-archive/salt-ci/server/services/sync"
	"github.com/vmware-archive/salt-ci/server/store"
	"github.com/vmware-archive/salt-ci/server/store/accounts"
	"github.com/vmware-archive/salt-ci/server/store/authorizations"
	"github.com/vmware-archive/salt-ci/server/store/grants"
	"github.com/vmware-archive/salt-ci/server/store/group_memberships"
	"github.com/vmware-archive/salt-ci/server/store/groups"
	"github.com/vmware-archive/salt-ci/server/store/migrations"
	"github.com/vmware-archive/salt-ci/server/store/organization_memberships"
	"github.com/vmware-archive/salt-ci/server/store/organizations"
	"github.com/vmware-archive/salt-ci/server/store/privileges"
	"github.com/vmware-archive/salt-ci/server/store/repo_administrators"
	"github.com/vmware-archive/salt-ci/server/store/repos"
)

// MakeProvider creates the GitHub provider accounts sign in with and synchronize against.
func MakeProvider(config github.AppConfig, logFactory logger.LogFactory) scm.Provider {
	return github.NewGitHubProvider(config, logFactory)
}

func New(ctx context.Context, config *ServerConfig) (*Server, func(), error) {
	panic(wire.Build(
		NewServer,
		wire.FieldsOf(new(*ServerConfig), "AppAPIConfig", "AppAPIRouterConfig", "AuthenticationConfig", "DatabaseConfig", "GitHubAppConfig", "SyncConfig", "HookConfig", "LogLevels"),
		store.NewDatabase,
		migrations.NewServerGolangMigrateRunner,
		wire.Bind(new(store.MigrationRunner), new(*migrations.GolangMigrateRunner)),

		// Stores
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

		// Services
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
		MakeProvider,

		// APIs
		server.NewRootAPI,
		server.NewAuthenticationAPI,
		server.NewAccountAPI,
		server.NewSyncAPI,
		server.NewRepoAPI,
		server.NewInboundHookAPI,

		// HTTP Servers
		server.NewAppAPIServer,
		server.NewAppAPIRouter,
		server.RealHTTPServerFactory,

		logger.NewLogRegistry,
		logger.MakeLogrusLogFactoryStdOut,
		clock.New,
	))
}
