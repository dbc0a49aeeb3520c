package hook_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/app/server_test"
	"github.com/vmware-archive/salt-ci/server/services/scm/fake_scm"
)

func TestApplySelectionEnablesThenDisables(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	alice := server_test.CreateAccount(t, ctx, app, "alice", "Alice First")
	widgets := server_test.CreateOrganizationRepo(t, ctx, app, alice, "acme", "widgets", true)
	require.False(t, widgets.PushActive)

	creates := app.FakeProvider.CallCount(fake_scm.OpCreateRepoHook)
	result, err := app.HookService.ApplySelection(ctx, alice.ID, models.HookKindPush, []models.RepoID{widgets.ID})
	require.NoError(t, err)
	require.False(t, result.IsPartial())
	require.Equal(t, []models.RepoID{widgets.ID}, result.Enabled)
	require.Empty(t, result.Disabled)
	require.Equal(t, creates+1, app.FakeProvider.CallCount(fake_scm.OpCreateRepoHook))

	hooks := app.FakeProvider.RepoHooks(widgets.ProviderID)
	require.Len(t, hooks, 1)
	require.Equal(t, []string{"push"}, hooks[0].Events)
	require.Equal(t, server_test.TestCallbackBaseURL+"/api/v1/hooks/push/alice/acme/widgets", hooks[0].URL())
	widgets = server_test.ReadRepo(t, ctx, app, widgets.ID)
	require.True(t, widgets.PushActive)
	require.False(t, widgets.PullActive)

	// Submitting the same selection again makes no provider writes
	result, err = app.HookService.ApplySelection(ctx, alice.ID, models.HookKindPush, []models.RepoID{widgets.ID})
	require.NoError(t, err)
	require.Zero(t, result.Succeeded)
	require.Equal(t, creates+1, app.FakeProvider.CallCount(fake_scm.OpCreateRepoHook))
	require.Len(t, app.FakeProvider.RepoHooks(widgets.ProviderID), 1)

	// Omitting the repo disables its hook
	deletes := app.FakeProvider.CallCount(fake_scm.OpDeleteRepoHook)
	result, err = app.HookService.ApplySelection(ctx, alice.ID, models.HookKindPush, nil)
	require.NoError(t, err)
	require.Equal(t, []models.RepoID{widgets.ID}, result.Disabled)
	require.Equal(t, deletes+1, app.FakeProvider.CallCount(fake_scm.OpDeleteRepoHook))
	require.Empty(t, app.FakeProvider.RepoHooks(widgets.ProviderID))
	widgets = server_test.ReadRepo(t, ctx, app, widgets.ID)
	require.False(t, widgets.PushActive)
}

func TestApplySelectionKindsAreIndependent(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	bob := server_test.CreateAccount(t, ctx, app, "bob", "")
	tools := server_test.CreatePersonalRepo(t, ctx, app, bob, "tools")

	_, err = app.HookService.ApplySelection(ctx, bob.ID, models.HookKindPush, []models.RepoID{tools.ID})
	require.NoError(t, err)
	_, err = app.HookService.ApplySelection(ctx, bob.ID, models.HookKindPull, []models.RepoID{tools.ID})
	require.NoError(t, err)

	hooks := app.FakeProvider.RepoHooks(tools.ProviderID)
	require.Len(t, hooks, 2)
	require.Equal(t, server_test.TestCallbackBaseURL+"/api/v1/hooks/push/bob/tools", hooks[0].URL())
	require.Equal(t, []string{"pull_request"}, hooks[1].Events)
	require.Equal(t, server_test.TestCallbackBaseURL+"/api/v1/hooks/pull/bob/tools", hooks[1].URL())

	// Disabling pull leaves the push hook in place
	_, err = app.HookService.ApplySelection(ctx, bob.ID, models.HookKindPull, []models.RepoID{})
	require.NoError(t, err)
	hooks = app.FakeProvider.RepoHooks(tools.ProviderID)
	require.Len(t, hooks, 1)
	require.Equal(t, []string{"push"}, hooks[0].Events)
	tools = server_test.ReadRepo(t, ctx, app, tools.ID)
	require.True(t, tools.PushActive)
	require.False(t, tools.PullActive)
}

func TestEnableReusesExistingAppHookAndIgnoresForeignHooks(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	carol := server_test.CreateAccount(t, ctx, app, "carol", "")
	site := server_test.CreatePersonalRepo(t, ctx, app, carol, "site")

	// A hook left behind by an earlier process, and one owned by another application
	app.FakeProvider.AddRepoHook(site.ProviderID, "push", server_test.TestCallbackBaseURL+"/api/v1/hooks/push/carol/site")
	foreignID := app.FakeProvider.AddRepoHook(site.ProviderID, "push", "https://other-ci.example.com/hooks")

	creates := app.FakeProvider.CallCount(fake_scm.OpCreateRepoHook)
	_, err = app.HookService.ApplySelection(ctx, carol.ID, models.HookKindPush, []models.RepoID{site.ID})
	require.NoError(t, err)
	require.Equal(t, creates, app.FakeProvider.CallCount(fake_scm.OpCreateRepoHook))
	require.Len(t, app.FakeProvider.RepoHooks(site.ProviderID), 2)
	require.True(t, server_test.ReadRepo(t, ctx, app, site.ID).PushActive)

	_, err = app.HookService.ApplySelection(ctx, carol.ID, models.HookKindPush, nil)
	require.NoError(t, err)
	hooks := app.FakeProvider.RepoHooks(site.ProviderID)
	require.Len(t, hooks, 1)
	require.Equal(t, foreignID, hooks[0].ID)
}

func TestDisableWithNoHookClearsFlag(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	dave := server_test.CreateAccount(t, ctx, app, "dave", "")
	repo := server_test.CreatePersonalRepo(t, ctx, app, dave, "scratch")

	// The flag says active but the hook was deleted out of band
	repo.PushActive = true
	err = app.RepoStore.Update(ctx, nil, repo)
	require.NoError(t, err)

	deletes := app.FakeProvider.CallCount(fake_scm.OpDeleteRepoHook)
	result, err := app.HookService.ApplySelection(ctx, dave.ID, models.HookKindPush, nil)
	require.NoError(t, err)
	require.Equal(t, []models.RepoID{repo.ID}, result.Disabled)
	require.Equal(t, deletes, app.FakeProvider.CallCount(fake_scm.OpDeleteRepoHook))
	require.False(t, server_test.ReadRepo(t, ctx, app, repo.ID).PushActive)
}

func TestApplySelectionIgnoresUnmanagedRepos(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	erin := server_test.CreateAccount(t, ctx, app, "erin", "")
	frank := server_test.CreateAccount(t, ctx, app, "frank", "")
	franks := server_test.CreatePersonalRepo(t, ctx, app, frank, "private-stuff")

	result, err := app.HookService.ApplySelection(ctx, erin.ID, models.HookKindPush, []models.RepoID{franks.ID, models.NewRepoID()})
	require.NoError(t, err)
	require.Zero(t, result.Succeeded)
	require.Empty(t, app.FakeProvider.RepoHooks(franks.ProviderID))
	require.False(t, server_test.ReadRepo(t, ctx, app, franks.ID).PushActive)

	_, err = app.HookService.ApplySelection(ctx, erin.ID, models.HookKind("tag"), nil)
	require.True(t, gerror.IsValidationFailed(err))
}

func TestApplySelectionStopsAtProviderFailure(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	grace := server_test.CreateAccount(t, ctx, app, "grace", "")
	first := server_test.CreatePersonalRepo(t, ctx, app, grace, "first")
	app.Clock.Add(time.Second) // managed repos are processed oldest first
	second := server_test.CreatePersonalRepo(t, ctx, app, grace, "second")

	app.FakeProvider.FailNext(fake_scm.OpCreateRepoHook, "grace/second", gerror.NewErrProviderAPIFailed("Resource not accessible by integration"))
	result, err := app.HookService.ApplySelection(ctx, grace.ID, models.HookKindPush, []models.RepoID{first.ID, second.ID})
	require.NoError(t, err)
	require.True(t, result.IsPartial())
	require.Equal(t, second.ID.String(), result.Failure.Scope)
	require.Equal(t, string(gerror.ErrCodeProviderAPIFailed), result.Failure.Code)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, []models.RepoID{first.ID}, result.Enabled)

	require.True(t, server_test.ReadRepo(t, ctx, app, first.ID).PushActive)
	require.False(t, server_test.ReadRepo(t, ctx, app, second.ID).PushActive)
	require.Empty(t, app.FakeProvider.RepoHooks(second.ProviderID))

	// Retrying completes the remaining repo only
	result, err = app.HookService.ApplySelection(ctx, grace.ID, models.HookKindPush, []models.RepoID{first.ID, second.ID})
	require.NoError(t, err)
	require.Equal(t, []models.RepoID{second.ID}, result.Enabled)
	require.Len(t, app.FakeProvider.RepoHooks(first.ProviderID), 1)
	require.Len(t, app.FakeProvider.RepoHooks(second.ProviderID), 1)
}

func TestResolveInboundTarget(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	alice := server_test.CreateAccount(t, ctx, app, "alice", "")
	bob := server_test.CreateAccount(t, ctx, app, "bob", "")
	widgets := server_test.CreateOrganizationRepo(t, ctx, app, alice, "acme", "widgets", true)
	notes := server_test.CreatePersonalRepo(t, ctx, app, alice, "notes")
	server_test.CreatePersonalRepo(t, ctx, app, bob, "notes")

	// Nothing is active yet
	_, err = app.HookService.ResolveInboundTarget(ctx, models.HookKindPush, "alice", "acme", "widgets")
	require.True(t, gerror.IsNotFound(err))

	_, err = app.HookService.ApplySelection(ctx, alice.ID, models.HookKindPush, []models.RepoID{widgets.ID, notes.ID})
	require.NoError(t, err)

	target, err := app.HookService.ResolveInboundTarget(ctx, models.HookKindPush, "alice", "acme", "widgets")
	require.NoError(t, err)
	require.Equal(t, widgets.ID, target.Repo.ID)
	require.Equal(t, alice.ID, target.Account.ID)
	require.Equal(t, "acme", target.Organization.Login)

	target, err = app.HookService.ResolveInboundTarget(ctx, models.HookKindPush, "alice", "", "notes")
	require.NoError(t, err)
	require.Equal(t, notes.ID, target.Repo.ID)
	require.Nil(t, target.Organization)
	require.NoError(t, app.HookService.HandleInboundPayload(ctx, target, []byte(`{"ref":"refs/heads/main"}`)))

	rejected := []struct {
		kind  models.HookKind
		login string
		org   string
		repo  string
	}{
		{models.HookKindPull, "alice", "acme", "widgets"},    // kind not active
		{models.HookKind("tag"), "alice", "acme", "widgets"}, // unknown kind
		{models.HookKindPush, "mallory", "acme", "widgets"},  // unknown account
		{models.HookKindPush, "bob", "acme", "widgets"},      // not a member
		{models.HookKindPush, "alice", "other", "widgets"},   // unknown organization
		{models.HookKindPush, "alice", "acme", "missing"},    // unknown repo
		{models.HookKindPush, "alice", "", "widgets"},        // organization repo addressed as personal
		{models.HookKindPush, "bob", "", "notes"},            // bob's notes never enabled
	}
	for _, r := range rejected {
		_, err = app.HookService.ResolveInboundTarget(ctx, r.kind, r.login, r.org, r.repo)
		require.True(t, gerror.IsNotFound(err), "expected %s %s/%s/%s to be rejected", r.kind, r.login, r.org, r.repo)
	}

	// Losing administration of the repo stops delivery even though the flag is still set
	err = app.RepoAdministratorStore.DeleteByAdministrator(ctx, nil, widgets.ID, alice.ID)
	require.NoError(t, err)
	_, err = app.HookService.ResolveInboundTarget(ctx, models.HookKindPush, "alice", "acme", "widgets")
	require.True(t, gerror.IsNotFound(err))
}

func TestResolveInboundTokenTarget(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	alice := server_test.CreateAccount(t, ctx, app, "alice", "")
	widgets := server_test.CreateOrganizationRepo(t, ctx, app, alice, "acme", "widgets", true)
	notes := server_test.CreatePersonalRepo(t, ctx, app, alice, "notes")
	_, err = app.HookService.ApplySelection(ctx, alice.ID, models.HookKindPush, []models.RepoID{widgets.ID, notes.ID})
	require.NoError(t, err)

	target, err := app.HookService.ResolveInboundTokenTarget(ctx, alice.HooksToken, "acme", "widgets")
	require.NoError(t, err)
	require.Equal(t, widgets.ID, target.Repo.ID)
	require.Equal(t, models.HookKindPush, target.Kind)

	target, err = app.HookService.ResolveInboundTokenTarget(ctx, alice.HooksToken, "alice", "notes")
	require.NoError(t, err)
	require.Equal(t, notes.ID, target.Repo.ID)

	_, err = app.HookService.ResolveInboundTokenTarget(ctx, "0123456789abcdef0123456789abcdef", "alice", "notes")
	require.True(t, gerror.IsNotFound(err))
	_, err = app.HookService.ResolveInboundTokenTarget(ctx, "", "alice", "notes")
	require.True(t, gerror.IsNotFound(err))

	// A regenerated token invalidates the old one
	updated, err := app.AccountService.RegenerateHooksToken(ctx, nil, alice.ID)
	require.NoError(t, err)
	_, err = app.HookService.ResolveInboundTokenTarget(ctx, alice.HooksToken, "alice", "notes")
	require.True(t, gerror.IsNotFound(err))
	_, err = app.HookService.ResolveInboundTokenTarget(ctx, updated.HooksToken, "alice", "notes")
	require.NoError(t, err)
}
