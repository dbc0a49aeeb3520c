package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/app/server_test"
	"github.com/vmware-archive/salt-ci/server/services/scm/fake_scm"
	"github.com/vmware-archive/salt-ci/server/services/sync"
)

func managedRepoNames(t *testing.T, ctx context.Context, app *server_test.TestServer, accountID models.AccountID) []string {
	repos, err := app.RepoStore.ListManagedByAccount(ctx, nil, accountID, models.RepoFilter{})
	require.NoError(t, err)
	var names []string
	for _, repo := range repos {
		names = append(names, repo.Name)
	}
	return names
}

func TestSyncCreatesOrganizationAndRepos(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	alice := server_test.CreateAccount(t, ctx, app, "alice", "Alice First")
	app.FakeProvider.CreateOrganization("acme", "Acme Corp")
	app.FakeProvider.SetOrganizationMember("acme", "alice", false)
	widgetsID := app.FakeProvider.CreateOrganizationRepo("acme", "widgets", "alice")

	result := server_test.SyncAccount(t, ctx, app, alice.ID)
	require.Equal(t, 2, result.Succeeded) // acme plus personal repos
	require.Equal(t, 1, result.OrganizationsCreated)
	require.Equal(t, 1, result.ReposCreated)

	acme, err := app.OrganizationStore.ReadByLogin(ctx, nil, "acme")
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", acme.Name)
	membership, err := app.OrganizationMembershipStore.ReadByMember(ctx, nil, acme.ID, alice.ID)
	require.NoError(t, err)
	require.False(t, membership.IsAdmin)

	widgets, err := app.RepoStore.ReadByProviderID(ctx, nil, widgetsID)
	require.NoError(t, err)
	require.Equal(t, "widgets", widgets.Name)
	require.Equal(t, acme.ID, widgets.OrganizationID)
	require.False(t, widgets.OwnerAccountID.Valid())
	require.Equal(t, "https://fake-scm.example.com/acme/widgets", widgets.URL)
	require.False(t, widgets.PushActive)
	require.False(t, widgets.PullActive)
	require.Equal(t, []string{"widgets"}, managedRepoNames(t, ctx, app, alice.ID))

	// Nothing changed upstream, so nothing changes locally
	again := server_test.SyncAccount(t, ctx, app, alice.ID)
	require.False(t, again.HasChanges())
	require.Equal(t, 2, again.Succeeded)
	reread := server_test.ReadRepo(t, ctx, app, widgets.ID)
	require.Equal(t, widgets.ETag, reread.ETag)
}

func TestSyncIgnoresReposWithoutAdmin(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	bob := server_test.CreateAccount(t, ctx, app, "bob", "Bob Second")
	app.FakeProvider.CreateOrganization("acme", "Acme Corp")
	app.FakeProvider.SetOrganizationMember("acme", "bob", false)
	gadgetsID := app.FakeProvider.CreateOrganizationRepo("acme", "gadgets")

	result := server_test.SyncAccount(t, ctx, app, bob.ID)
	require.Equal(t, 1, result.OrganizationsCreated)
	require.Zero(t, result.ReposCreated)
	_, err = app.RepoStore.ReadByProviderID(ctx, nil, gadgetsID)
	require.True(t, gerror.IsNotFound(err))
	require.Empty(t, managedRepoNames(t, ctx, app, bob.ID))

	// Organization admins administer every repo in the organization
	app.FakeProvider.SetOrganizationMember("acme", "bob", true)
	result = server_test.SyncAccount(t, ctx, app, bob.ID)
	require.Equal(t, 1, result.ReposCreated)
	require.Equal(t, []string{"gadgets"}, managedRepoNames(t, ctx, app, bob.ID))
	acme, err := app.OrganizationStore.ReadByLogin(ctx, nil, "acme")
	require.NoError(t, err)
	membership, err := app.OrganizationMembershipStore.ReadByMember(ctx, nil, acme.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, membership.IsAdmin)
}

func TestSyncPersonalRepos(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	carol := server_test.CreateAccount(t, ctx, app, "carol", "Carol Third")
	dotfiles := server_test.CreatePersonalRepo(t, ctx, app, carol, "dotfiles")
	require.Equal(t, carol.ID, dotfiles.OwnerAccountID)
	require.False(t, dotfiles.OrganizationID.Valid())
	require.Equal(t, "carol", dotfiles.OwnerLogin)

	// Upstream attribute changes are copied onto the existing row
	app.FakeProvider.UpdateRepo(dotfiles.ProviderID, "dotfiles", "My dotfiles", true)
	result := server_test.SyncAccount(t, ctx, app, carol.ID)
	require.Equal(t, 1, result.ReposUpdated)
	require.Zero(t, result.ReposCreated)
	updated := server_test.ReadRepo(t, ctx, app, dotfiles.ID)
	require.Equal(t, "My dotfiles", updated.Description)
	require.True(t, updated.Private)

	// A repo that disappears upstream is unlinked but its row is kept
	app.FakeProvider.DeleteRepo(dotfiles.ProviderID)
	result = server_test.SyncAccount(t, ctx, app, carol.ID)
	require.Equal(t, 1, result.ReposUnlinked)
	orphan := server_test.ReadRepo(t, ctx, app, dotfiles.ID)
	require.False(t, orphan.OwnerAccountID.Valid())
	require.False(t, orphan.OrganizationID.Valid())
	require.Empty(t, managedRepoNames(t, ctx, app, carol.ID))
}

func TestSyncUnlinksOrganizationAndRevokedRepos(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	dave := server_test.CreateAccount(t, ctx, app, "dave", "Dave Fourth")
	widgets := server_test.CreateOrganizationRepo(t, ctx, app, dave, "acme", "widgets", true)
	sprockets := server_test.CreateOrganizationRepo(t, ctx, app, dave, "acme", "sprockets", true)
	require.ElementsMatch(t, []string{"widgets", "sprockets"}, managedRepoNames(t, ctx, app, dave.ID))

	// Losing admin on one repo unlinks it from the organization and the managed set
	app.FakeProvider.SetRepoAdmin(sprockets.ProviderID, "dave", false)
	result := server_test.SyncAccount(t, ctx, app, dave.ID)
	require.Equal(t, 1, result.ReposUnlinked)
	require.Equal(t, []string{"widgets"}, managedRepoNames(t, ctx, app, dave.ID))
	unlinked := server_test.ReadRepo(t, ctx, app, sprockets.ID)
	require.False(t, unlinked.OrganizationID.Valid())

	// Leaving the organization removes the membership and the rest of its repos
	app.FakeProvider.RemoveOrganizationMember("acme", "dave")
	result = server_test.SyncAccount(t, ctx, app, dave.ID)
	require.Equal(t, 1, result.OrganizationsUnlinked)
	require.Equal(t, 1, result.Succeeded) // only personal repos remain
	require.Empty(t, managedRepoNames(t, ctx, app, dave.ID))

	acme, err := app.OrganizationStore.ReadByLogin(ctx, nil, "acme")
	require.NoError(t, err)
	_, err = app.OrganizationMembershipStore.ReadByMember(ctx, nil, acme.ID, dave.ID)
	require.True(t, gerror.IsNotFound(err))
	orgs, err := app.OrganizationStore.ListForAccount(ctx, nil, dave.ID)
	require.NoError(t, err)
	require.Empty(t, orgs)
	// The repo row survives for other members of the organization
	kept := server_test.ReadRepo(t, ctx, app, widgets.ID)
	require.Equal(t, acme.ID, kept.OrganizationID)
}

func TestSyncSharedOrganizationRepo(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	alice := server_test.CreateAccount(t, ctx, app, "alice", "Alice First")
	bob := server_test.CreateAccount(t, ctx, app, "bob", "Bob Second")
	widgets := server_test.CreateOrganizationRepo(t, ctx, app, alice, "acme", "widgets", true)

	app.FakeProvider.SetOrganizationMember("acme", "bob", false)
	app.FakeProvider.SetRepoAdmin(widgets.ProviderID, "bob", true)
	result := server_test.SyncAccount(t, ctx, app, bob.ID)
	require.Zero(t, result.OrganizationsCreated)
	require.Zero(t, result.ReposCreated)

	// Both accounts manage the same row
	isAdmin, err := app.RepoAdministratorStore.IsAdministrator(ctx, nil, widgets.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, isAdmin)
	isAdmin, err = app.RepoAdministratorStore.IsAdministrator(ctx, nil, widgets.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, isAdmin)
}

func TestSyncStopsAtFailedScope(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	erin := server_test.CreateAccount(t, ctx, app, "erin", "Erin Fifth")
	app.FakeProvider.CreateOrganization("acme", "Acme Corp")
	app.FakeProvider.SetOrganizationMember("acme", "erin", true)
	app.FakeProvider.CreateOrganizationRepo("acme", "widgets")
	app.FakeProvider.CreateOrganization("beta", "Beta Labs")
	app.FakeProvider.SetOrganizationMember("beta", "erin", true)
	app.FakeProvider.CreateOrganizationRepo("beta", "gizmos")
	app.FakeProvider.CreateUserRepo("erin", "notes")

	app.FakeProvider.FailNext(fake_scm.OpListOrganizationRepos, "beta", gerror.NewErrProviderAPIFailed("API rate limit exceeded"))
	userRepoCalls := app.FakeProvider.CallCount(fake_scm.OpListUserRepos)

	result, err := app.SyncService.SyncAccount(ctx, erin.ID)
	require.NoError(t, err)
	require.True(t, result.IsPartial())
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, "beta", result.Failure.Scope)
	require.Equal(t, string(gerror.ErrCodeProviderAPIFailed), result.Failure.Code)
	require.Equal(t, "API rate limit exceeded", result.Failure.Message)
	require.Equal(t, userRepoCalls, app.FakeProvider.CallCount(fake_scm.OpListUserRepos))

	// acme was committed before the failure
	require.Equal(t, []string{"widgets"}, managedRepoNames(t, ctx, app, erin.ID))
	_, err = app.OrganizationStore.ReadByLogin(ctx, nil, "beta")
	require.True(t, gerror.IsNotFound(err))

	// The next sync picks up where the failed one stopped
	result = server_test.SyncAccount(t, ctx, app, erin.ID)
	require.Equal(t, 3, result.Succeeded)
	require.ElementsMatch(t, []string{"widgets", "gizmos", "notes"}, managedRepoNames(t, ctx, app, erin.ID))
}

func TestSyncReportsRevokedToken(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	frank := server_test.CreateAccount(t, ctx, app, "frank", "")
	app.FakeProvider.RevokeToken(frank.AccessToken)

	result, err := app.SyncService.SyncAccount(ctx, frank.ID)
	require.NoError(t, err)
	require.True(t, result.IsPartial())
	require.Zero(t, result.Succeeded)
	require.Equal(t, "organizations", result.Failure.Scope)
	require.Equal(t, string(gerror.ErrCodeProviderAuthFailed), result.Failure.Code)
}

func TestSyncLease(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	grace := server_test.CreateAccount(t, ctx, app, "grace", "")

	// Simulate a sync that is still running, or crashed without releasing its lease
	now := app.Clock.Now()
	err = app.AccountStore.AcquireSyncLease(ctx, nil, grace.ID, models.NewTime(now), models.NewTime(now.Add(sync.DefaultLeaseDuration)))
	require.NoError(t, err)

	_, err = app.SyncService.SyncAccount(ctx, grace.ID)
	require.True(t, gerror.IsSyncInProgress(err))

	app.Clock.Add(sync.DefaultLeaseDuration - time.Second)
	_, err = app.SyncService.SyncAccount(ctx, grace.ID)
	require.True(t, gerror.IsSyncInProgress(err))

	// Once the lease expires a new sync may start, and it releases the lease when done
	app.Clock.Add(2 * time.Second)
	server_test.SyncAccount(t, ctx, app, grace.ID)
	server_test.SyncAccount(t, ctx, app, grace.ID)

	_, err = app.SyncService.SyncAccount(ctx, models.NewAccountID())
	require.True(t, gerror.IsNotFound(err))
}
