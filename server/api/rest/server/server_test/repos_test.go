package api_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/client/clienttest"
	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
	"github.com/vmware-archive/salt-ci/server/app/server_test"
	"github.com/vmware-archive/salt-ci/server/services/scm/fake_scm"
)

func TestSyncAPI(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.Nil(t, err)
	defer cleanup()

	app.AppAPIServer.Start()
	defer app.AppAPIServer.Stop(ctx)

	apiClient, account := clienttest.MakeSignedInClient(t, ctx, app, "alice")
	app.FakeProvider.CreateOrganization("acme", "Acme Corp")
	app.FakeProvider.SetOrganizationMember("acme", account.Login, true)
	app.FakeProvider.CreateOrganizationRepo("acme", "widgets")
	app.FakeProvider.CreateUserRepo(account.Login, "notes")

	res, err := apiClient.Sync(ctx)
	require.NoError(t, err)
	require.False(t, res.Partial)
	require.Nil(t, res.Failure)
	require.Equal(t, 1, res.OrganizationsCreated)
	require.Equal(t, 2, res.ReposCreated)

	// A provider failure part way is reported rather than raised
	app.FakeProvider.CreateUserRepo(account.Login, "scratch")
	app.FakeProvider.FailNext(fake_scm.OpListUserRepos, "", gerror.NewErrProviderAPIFailed("Server Error"))
	res, err = apiClient.Sync(ctx)
	require.NoError(t, err)
	require.True(t, res.Partial)
	require.NotNil(t, res.Failure)
	require.Equal(t, "personal", res.Failure.Scope)
	require.Equal(t, string(gerror.ErrCodeProviderAPIFailed), res.Failure.Code)
	require.Equal(t, 1, res.Succeeded)

	res, err = apiClient.Sync(ctx)
	require.NoError(t, err)
	require.False(t, res.Partial)
	require.Equal(t, 1, res.ReposCreated)
}

func TestRepoAPI(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.Nil(t, err)
	defer cleanup()

	app.AppAPIServer.Start()
	defer app.AppAPIServer.Stop(ctx)

	aliceClient, alice := clienttest.MakeSignedInClient(t, ctx, app, "alice")
	_, bob := clienttest.MakeSignedInClient(t, ctx, app, "bob")

	names := []string{"one", "two", "three"}
	var repos []*models.Repo
	for _, name := range names {
		repos = append(repos, server_test.CreatePersonalRepo(t, ctx, app, alice, name))
		app.Clock.Add(time.Second)
	}
	bobRepo := server_test.CreatePersonalRepo(t, ctx, app, bob, "secret")

	t.Run("Get", func(t *testing.T) {
		doc, err := aliceClient.GetRepo(ctx, repos[0].ID)
		require.NoError(t, err)
		require.Equal(t, repos[0].ID, doc.ID)
		require.Equal(t, "one", doc.Name)
		require.Equal(t, "alice", doc.OwnerLogin)
		require.False(t, doc.PushActive)

		// Another account's repo is indistinguishable from a missing one
		_, err = aliceClient.GetRepo(ctx, bobRepo.ID)
		require.True(t, gerror.IsNotFound(err))
		_, err = aliceClient.GetRepo(ctx, models.NewRepoID())
		require.True(t, gerror.IsNotFound(err))
	})

	t.Run("ListPaged", func(t *testing.T) {
		req := documents.NewRepoListRequest()
		req.Limit = 2
		docs, err := aliceClient.ListRepos(ctx, req)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		// Newest first
		require.Equal(t, "three", docs[0].Name)
		require.Equal(t, "one", docs[2].Name)
	})

	t.Run("UpdateHooksJSON", func(t *testing.T) {
		res, err := aliceClient.UpdateRepoHooks(ctx, &documents.PostRepoHooksRequest{
			PushActive: []models.RepoID{repos[0].ID, repos[1].ID, bobRepo.ID},
		})
		require.NoError(t, err)
		require.False(t, res.PartiallyApplied())
		require.NotNil(t, res.Push)
		require.Nil(t, res.Pull)
		require.ElementsMatch(t, []models.RepoID{repos[0].ID, repos[1].ID}, res.Push.Enabled)
		require.Empty(t, res.Push.Disabled)

		// Bob's repo was not touched
		require.False(t, server_test.ReadRepo(t, ctx, app, bobRepo.ID).PushActive)
		require.Empty(t, app.FakeProvider.RepoHooks(bobRepo.ProviderID))

		pushActive := true
		req := documents.NewRepoListRequest()
		req.PushActive = &pushActive
		docs, err := aliceClient.ListRepos(ctx, req)
		require.NoError(t, err)
		require.Len(t, docs, 2)

		pushActive = false
		docs, err = aliceClient.ListRepos(ctx, req)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, "three", docs[0].Name)

		// A request naming neither kind is rejected
		_, err = aliceClient.UpdateRepoHooks(ctx, &documents.PostRepoHooksRequest{})
		require.True(t, gerror.IsValidationFailed(err))
	})

	t.Run("UpdateHooksForm", func(t *testing.T) {
		// A form carries both kinds, so leaving push boxes unchecked disables every push hook
		form := url.Values{}
		form.Add("pull_active", repos[2].ID.String())
		res, err := aliceClient.UpdateRepoHooksForm(ctx, form)
		require.NoError(t, err)
		require.NotNil(t, res.Push)
		require.NotNil(t, res.Pull)
		require.ElementsMatch(t, []models.RepoID{repos[0].ID, repos[1].ID}, res.Push.Disabled)
		require.Equal(t, []models.RepoID{repos[2].ID}, res.Pull.Enabled)

		for _, repo := range repos {
			require.False(t, server_test.ReadRepo(t, ctx, app, repo.ID).PushActive)
		}
		require.True(t, server_test.ReadRepo(t, ctx, app, repos[2].ID).PullActive)

		form = url.Values{}
		form.Add("push_active", "not-an-id")
		_, err = aliceClient.UpdateRepoHooksForm(ctx, form)
		require.True(t, gerror.IsValidationFailed(err))
	})

	t.Run("UpdateHooksPartial", func(t *testing.T) {
		app.FakeProvider.FailNext(fake_scm.OpCreateRepoHook, "alice/one", gerror.NewErrProviderAPIFailed("Server Error"))
		res, err := aliceClient.UpdateRepoHooks(ctx, &documents.PostRepoHooksRequest{
			PushActive: []models.RepoID{repos[0].ID},
		})
		require.NoError(t, err)
		require.True(t, res.PartiallyApplied())
		require.Equal(t, repos[0].ID.String(), res.Push.Failure.Scope)
		require.False(t, server_test.ReadRepo(t, ctx, app, repos[0].ID).PushActive)
	})
}
