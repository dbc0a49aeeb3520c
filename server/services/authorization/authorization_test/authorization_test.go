package authorization_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/app/server_test"
)

func TestEffectivePrivileges(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	alice := server_test.CreateAccount(t, ctx, app, "alice", "Alice First")
	bob := server_test.CreateAccount(t, ctx, app, "bob", "Bob Second")

	// Brand new accounts hold nothing
	privileges, err := app.AuthorizationService.ResolveEffectivePrivileges(ctx, nil, alice.ID)
	require.NoError(t, err)
	require.Empty(t, privileges)

	// Direct privilege plus a group bundling another privilege
	_, err = app.AuthorizationService.GrantPrivilege(ctx, nil, alice.ID, "repos.sync")
	require.NoError(t, err)
	group, err := app.GroupService.Create(ctx, nil, "release-team", "Ships releases")
	require.NoError(t, err)
	_, err = app.AuthorizationService.GrantGroupPrivilege(ctx, nil, group.ID, "repos.hooks")
	require.NoError(t, err)
	err = app.GroupService.AddMember(ctx, nil, group.ID, alice.ID)
	require.NoError(t, err)

	privileges, err = app.AuthorizationService.ResolveEffectivePrivileges(ctx, nil, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.NewPrivilegeSet("repos.sync", "repos.hooks"), privileges)

	// Bob is not in the group so holds nothing
	privileges, err = app.AuthorizationService.ResolveEffectivePrivileges(ctx, nil, bob.ID)
	require.NoError(t, err)
	require.Empty(t, privileges)

	// A privilege held both directly and through a group is counted once
	_, err = app.AuthorizationService.GrantPrivilege(ctx, nil, alice.ID, "repos.hooks")
	require.NoError(t, err)
	privileges, err = app.AuthorizationService.ResolveEffectivePrivileges(ctx, nil, alice.ID)
	require.NoError(t, err)
	require.Len(t, privileges, 2)

	// Leaving the group keeps the direct grant
	err = app.GroupService.RemoveMember(ctx, nil, group.ID, alice.ID)
	require.NoError(t, err)
	err = app.AuthorizationService.RevokePrivilege(ctx, nil, alice.ID, "repos.sync")
	require.NoError(t, err)
	privileges, err = app.AuthorizationService.ResolveEffectivePrivileges(ctx, nil, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.NewPrivilegeSet("repos.hooks"), privileges)

	// Revoking something never granted is a no-op
	err = app.AuthorizationService.RevokePrivilege(ctx, nil, bob.ID, "never.granted")
	require.NoError(t, err)
}

func TestStandardGroupsGrantPrivileges(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	carol := server_test.CreateAccount(t, ctx, app, "carol", "Carol Third")

	admins, err := app.GroupService.ReadByName(ctx, nil, models.AdministratorsStandardGroup.Name)
	require.NoError(t, err)
	require.True(t, admins.IsInternal)
	err = app.GroupService.AddMember(ctx, nil, admins.ID, carol.ID)
	require.NoError(t, err)

	identity := app.AuthorizationService.ResolveIdentity(ctx, carol.ID)
	require.True(t, identity.IsAuthenticated())
	require.True(t, identity.HasPrivilege(models.AdministratorPrivilege))
	require.False(t, identity.HasPrivilege(models.ManagerPrivilege))
	require.Contains(t, identity.Needs, models.Need{Kind: models.NeedKindRole, Name: models.AdministratorPrivilege.String()})
	require.Empty(t, identity.ActionNeeds())

	// A member of Managers with no direct privileges holds exactly "manager"
	alice := server_test.CreateAccount(t, ctx, app, "alice", "Alice First")
	managers, err := app.GroupService.ReadByName(ctx, nil, models.ManagersStandardGroup.Name)
	require.NoError(t, err)
	err = app.GroupService.AddMember(ctx, nil, managers.ID, alice.ID)
	require.NoError(t, err)
	privileges, err := app.AuthorizationService.ResolveEffectivePrivileges(ctx, nil, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.NewPrivilegeSet(models.ManagerPrivilege), privileges)

	groups, err := app.GroupService.ListForAccount(ctx, nil, alice.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, models.ManagersStandardGroup.Name, groups[0].Name)
}

func TestResolveIdentityDegradesToAnonymous(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	identity := app.AuthorizationService.ResolveIdentity(ctx, models.AccountID{})
	require.True(t, identity.IsAnonymous())

	identity = app.AuthorizationService.ResolveIdentity(ctx, models.NewAccountID())
	require.True(t, identity.IsAnonymous())
	require.Empty(t, identity.Privileges)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	dave := server_test.CreateAccount(t, ctx, app, "dave", "")
	_, err = app.AuthorizationService.GrantPrivilege(ctx, nil, dave.ID, "repos.sync")
	require.NoError(t, err)

	anonymous := models.NewAnonymousIdentity()
	identity := app.AuthorizationService.ResolveIdentity(ctx, dave.ID)

	require.NoError(t, app.AuthorizationService.Require(anonymous, models.AnonymousPermission))
	require.NoError(t, app.AuthorizationService.Require(identity, models.AnonymousPermission))

	err = app.AuthorizationService.Require(anonymous, models.AuthenticatedPermission)
	require.True(t, gerror.IsUnauthorized(err))
	require.NoError(t, app.AuthorizationService.Require(identity, models.AuthenticatedPermission))

	require.NoError(t, app.AuthorizationService.Require(identity, models.RequirePrivilege("repos.sync")))
	err = app.AuthorizationService.Require(identity, models.RequirePrivilege(models.AdministratorPrivilege))
	require.True(t, gerror.IsForbidden(err))
	err = app.AuthorizationService.Require(anonymous, models.RequirePrivilege("repos.sync"))
	require.True(t, gerror.IsUnauthorized(err))

	require.NoError(t, app.AuthorizationService.Require(identity, models.RequireAnyOf(models.AdministratorPrivilege, "repos.sync")))
	err = app.AuthorizationService.Require(identity, models.RequireAnyOf(models.AdministratorPrivilege, models.ManagerPrivilege))
	require.True(t, gerror.IsForbidden(err))
	err = app.AuthorizationService.Require(identity, models.RequireAnyOf())
	require.True(t, gerror.IsForbidden(err))
}

func TestGetOrCreatePrivilege(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	first, err := app.AuthorizationService.GetOrCreatePrivilege(ctx, nil, models.PrivilegeName("builds.cancel"))
	require.NoError(t, err)
	second, err := app.AuthorizationService.GetOrCreatePrivilege(ctx, nil, models.PrivilegeName("builds.cancel"))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// A privilege-like value is resolved by name, so a stale id is never trusted
	stale := models.NewPrivilege(models.NewTime(app.Clock.Now()), "builds.cancel")
	require.NotEqual(t, first.ID, stale.ID)
	third, err := app.AuthorizationService.GetOrCreatePrivilege(ctx, nil, stale)
	require.NoError(t, err)
	require.Equal(t, first.ID, third.ID)
	_, err = app.AuthorizationService.GrantPrivilege(ctx, nil, server_test.CreateAccount(t, ctx, app, "dora", "Dora Fourth").ID, third.Name)
	require.NoError(t, err)

	// Seeded privileges are found rather than recreated
	admin, err := app.AuthorizationService.GetOrCreatePrivilege(ctx, nil, models.AdministratorPrivilege)
	require.NoError(t, err)
	require.Equal(t, models.AdministratorPrivilege, admin.Name)

	_, err = app.AuthorizationService.GetOrCreatePrivilege(ctx, nil, models.PrivilegeName("Not Valid!"))
	require.True(t, gerror.IsValidationFailed(err))
	_, err = app.AuthorizationService.GetOrCreatePrivilege(ctx, nil, models.PrivilegeName(""))
	require.True(t, gerror.IsValidationFailed(err))
}

func TestPersistIdentityNeeds(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	erin := server_test.CreateAccount(t, ctx, app, "erin", "Erin Fifth")
	managers, err := app.GroupService.ReadByName(ctx, nil, models.ManagersStandardGroup.Name)
	require.NoError(t, err)
	err = app.GroupService.AddMember(ctx, nil, managers.ID, erin.ID)
	require.NoError(t, err)

	identity := app.AuthorizationService.ResolveIdentity(ctx, erin.ID)
	identity.AddNeed(models.Need{Kind: models.NeedKindAction, Name: "repos.sync"})
	identity.AddNeed(models.Need{Kind: models.NeedKindAction, Name: "repos.hooks"})
	identity.AddNeed(models.Need{Kind: models.NeedKindAction, Name: "repos.hooks"})
	require.Len(t, identity.ActionNeeds(), 2)

	err = app.AuthorizationService.PersistIdentityNeeds(ctx, nil, identity)
	require.NoError(t, err)
	// Persisting twice creates nothing new
	err = app.AuthorizationService.PersistIdentityNeeds(ctx, nil, identity)
	require.NoError(t, err)

	direct, err := app.AuthorizationStore.ListDirectPrivilegeNames(ctx, nil, erin.ID)
	require.NoError(t, err)
	require.Equal(t, []models.PrivilegeName{"repos.hooks", "repos.sync"}, direct)

	// Type and role needs stay out of the direct grants
	reloaded := app.AuthorizationService.ResolveIdentity(ctx, erin.ID)
	require.True(t, reloaded.HasPrivilege(models.ManagerPrivilege))
	require.NotContains(t, direct, models.ManagerPrivilege)
	require.Len(t, reloaded.ActionNeeds(), 2)

	// Anonymous identities have nothing to persist
	err = app.AuthorizationService.PersistIdentityNeeds(ctx, nil, models.NewAnonymousIdentity())
	require.NoError(t, err)
}
