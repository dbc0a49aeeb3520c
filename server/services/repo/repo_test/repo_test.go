package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/app/server_test"
)

func TestReadManaged(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	alice := server_test.CreateAccount(t, ctx, app, "alice", "")
	bob := server_test.CreateAccount(t, ctx, app, "bob", "")
	notes := server_test.CreatePersonalRepo(t, ctx, app, alice, "notes")

	repo, err := app.RepoService.ReadManaged(ctx, nil, alice.ID, notes.ID)
	require.NoError(t, err)
	require.Equal(t, notes.ID, repo.ID)

	// Another account's repo looks exactly like one that does not exist
	_, err = app.RepoService.ReadManaged(ctx, nil, bob.ID, notes.ID)
	require.True(t, gerror.IsNotFound(err))
	_, err = app.RepoService.ReadManaged(ctx, nil, alice.ID, models.NewRepoID())
	require.True(t, gerror.IsNotFound(err))
}

func TestSearchManagedPagesAndFilters(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	carol := server_test.CreateAccount(t, ctx, app, "carol", "")
	names := []string{"one", "two", "three", "four", "five"}
	var repos []*models.Repo
	for _, name := range names {
		repos = append(repos, server_test.CreatePersonalRepo(t, ctx, app, carol, name))
		app.Clock.Add(time.Second)
	}

	// Newest first, two at a time
	var seen []string
	pagination := models.NewPagination(2, nil)
	for {
		page, cursor, err := app.RepoService.SearchManaged(ctx, nil, carol.ID, models.RepoFilter{}, pagination)
		require.NoError(t, err)
		for _, repo := range page {
			seen = append(seen, repo.Name)
		}
		if cursor == nil || cursor.Next == nil {
			break
		}
		pagination.Cursor = cursor.Next
	}
	require.Equal(t, []string{"five", "four", "three", "two", "one"}, seen)

	_, err = app.HookService.ApplySelection(ctx, carol.ID, models.HookKindPush, []models.RepoID{repos[1].ID, repos[3].ID})
	require.NoError(t, err)

	active, _, err := app.RepoService.SearchManaged(ctx, nil, carol.ID, models.HookActiveFilter(models.HookKindPush, true), models.NewPagination(0, nil))
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "four", active[0].Name)
	require.Equal(t, "two", active[1].Name)

	inactive, _, err := app.RepoService.SearchManaged(ctx, nil, carol.ID, models.HookActiveFilter(models.HookKindPush, false), models.NewPagination(0, nil))
	require.NoError(t, err)
	require.Len(t, inactive, 3)

	pull, _, err := app.RepoService.SearchManaged(ctx, nil, carol.ID, models.HookActiveFilter(models.HookKindPull, true), models.NewPagination(0, nil))
	require.NoError(t, err)
	require.Empty(t, pull)
}
