package api_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/server/api/rest/client/clienttest"
	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
	"github.com/vmware-archive/salt-ci/server/app/server_test"
)

func TestSignIn(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.Nil(t, err)
	defer cleanup()

	app.AppAPIServer.Start()
	defer app.AppAPIServer.Stop(ctx)

	t.Run("Success", func(t *testing.T) {
		apiClient, account := clienttest.MakeSignedInClient(t, ctx, app, "alice")
		doc, err := apiClient.GetAccount(ctx)
		require.NoError(t, err)
		require.Equal(t, account.ID, doc.ID)
		require.Equal(t, "alice", doc.Login)
		require.Equal(t, "alice", doc.DisplayName)
	})

	t.Run("TamperedState", func(t *testing.T) {
		server_test.RegisterSignInCode(t, app, "bob", "code-bob")
		apiClient := clienttest.MakeAPIClient(t, app)
		authorizeURL, err := apiClient.BeginSignIn(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, authorizeURL.Query().Get("state"))

		redirect, err := apiClient.CompleteSignIn(ctx, "not-the-state", "code-bob")
		require.NoError(t, err)
		require.Equal(t, "/error", redirect)

		_, err = app.AccountService.ReadByLogin(ctx, nil, "bob")
		require.True(t, gerror.IsNotFound(err))
		_, err = apiClient.GetAccount(ctx)
		require.True(t, gerror.IsUnauthorized(err))
	})

	t.Run("MissingState", func(t *testing.T) {
		server_test.RegisterSignInCode(t, app, "carol", "code-carol")
		apiClient := clienttest.MakeAPIClient(t, app)
		redirect, err := apiClient.CompleteSignIn(ctx, "", "code-carol")
		require.NoError(t, err)
		require.Equal(t, "/error", redirect)
	})

	t.Run("UnknownCode", func(t *testing.T) {
		apiClient := clienttest.MakeAPIClient(t, app)
		redirect, err := apiClient.SignIn(ctx, "never-issued")
		require.NoError(t, err)
		require.Equal(t, "/error", redirect)
	})
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.Nil(t, err)
	defer cleanup()

	app.AppAPIServer.Start()
	defer app.AppAPIServer.Stop(ctx)

	apiClient, _ := clienttest.MakeSignedInClient(t, ctx, app, "alice")
	_, err = apiClient.GetAccount(ctx)
	require.NoError(t, err)

	err = apiClient.SignOut(ctx)
	require.NoError(t, err)

	_, err = apiClient.GetAccount(ctx)
	require.True(t, gerror.IsUnauthorized(err))
	err = apiClient.SignOut(ctx)
	require.True(t, gerror.IsUnauthorized(err))
}

func TestAccountAPI(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.Nil(t, err)
	defer cleanup()

	app.AppAPIServer.Start()
	defer app.AppAPIServer.Stop(ctx)

	t.Run("Unauthenticated", func(t *testing.T) {
		apiClient := clienttest.MakeAPIClient(t, app)
		_, err := apiClient.GetAccount(ctx)
		require.True(t, gerror.IsUnauthorized(err))
		_, err = apiClient.Sync(ctx)
		require.True(t, gerror.IsUnauthorized(err))
		_, err = apiClient.ListRepos(ctx, documents.NewRepoListRequest())
		require.True(t, gerror.IsUnauthorized(err))
	})

	apiClient, account := clienttest.MakeSignedInClient(t, ctx, app, "dave")

	t.Run("Patch", func(t *testing.T) {
		locale := "fr"
		timezone := "Europe/Paris"
		doc, err := apiClient.PatchAccount(ctx, &documents.PatchAccountRequest{Locale: &locale, Timezone: &timezone})
		require.NoError(t, err)
		require.Equal(t, "fr", doc.Locale)
		require.Equal(t, "Europe/Paris", doc.Timezone)

		// Fields left out are unchanged
		locale = "de"
		doc, err = apiClient.PatchAccount(ctx, &documents.PatchAccountRequest{Locale: &locale})
		require.NoError(t, err)
		require.Equal(t, "de", doc.Locale)
		require.Equal(t, "Europe/Paris", doc.Timezone)

		timezone = "Nowhere/Special"
		_, err = apiClient.PatchAccount(ctx, &documents.PatchAccountRequest{Timezone: &timezone})
		require.True(t, gerror.IsValidationFailed(err))

		stored, err := app.AccountService.Read(ctx, nil, account.ID)
		require.NoError(t, err)
		require.Equal(t, "Europe/Paris", stored.Timezone)
	})

	t.Run("RegenerateHooksToken", func(t *testing.T) {
		before, err := apiClient.GetAccount(ctx)
		require.NoError(t, err)
		after, err := apiClient.RegenerateHooksToken(ctx)
		require.NoError(t, err)
		require.Len(t, after.HooksToken, 32)
		require.NotEqual(t, before.HooksToken, after.HooksToken)
	})
}

func TestStaleSessionIsRejected(t *testing.T) {
	ctx := context.Background()

	// Two servers sharing session keys; a session issued by one names an account unknown to the other
	issuer, cleanupIssuer, err := server_test.New(server_test.TestConfig(t))
	require.Nil(t, err)
	defer cleanupIssuer()
	other, cleanupOther, err := server_test.New(server_test.TestConfig(t))
	require.Nil(t, err)
	defer cleanupOther()

	issuer.AppAPIServer.Start()
	defer issuer.AppAPIServer.Stop(ctx)
	other.AppAPIServer.Start()
	defer other.AppAPIServer.Stop(ctx)

	apiClient, _ := clienttest.MakeSignedInClient(t, ctx, issuer, "erin")
	// Cookies are scoped by host rather than port so the session follows the client
	apiClient.SetEndpoint(other.AppAPIServer.GetServerURL())

	_, err = apiClient.GetAccount(ctx)
	require.True(t, gerror.IsUnauthorized(err))
}
