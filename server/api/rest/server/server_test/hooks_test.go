package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/client/clienttest"
	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
	"github.com/vmware-archive/salt-ci/server/app/server_test"
)

const contentTypeJSON = "application/json"

// callbackPath returns the path of the callback URL registered for the repo's hook of kind.
func callbackPath(t *testing.T, ctx context.Context, app *server_test.TestServer, kind models.HookKind, account *models.Account, repo *models.Repo) string {
	callbackURL, err := app.HookService.CallbackURL(ctx, kind, account, repo)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(callbackURL, server_test.TestCallbackBaseURL))
	return strings.TrimPrefix(callbackURL, server_test.TestCallbackBaseURL)
}

func TestInboundHooks(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.Nil(t, err)
	defer cleanup()

	app.AppAPIServer.Start()
	defer app.AppAPIServer.Stop(ctx)

	aliceClient, alice := clienttest.MakeSignedInClient(t, ctx, app, "alice")
	notes := server_test.CreatePersonalRepo(t, ctx, app, alice, "notes")
	widgets := server_test.CreateOrganizationRepo(t, ctx, app, alice, "acme", "widgets", true)

	_, err = aliceClient.UpdateRepoHooks(ctx, &documents.PostRepoHooksRequest{
		PushActive: []models.RepoID{notes.ID, widgets.ID},
	})
	require.NoError(t, err)

	// The provider is the only caller and needs no session
	provider := clienttest.MakeAPIClient(t, app)
	payload := []byte(`{"ref":"refs/heads/main"}`)

	notesPush := callbackPath(t, ctx, app, models.HookKindPush, alice, notes)
	require.Equal(t, "/api/v1/hooks/push/alice/notes", notesPush)
	widgetsPush := callbackPath(t, ctx, app, models.HookKindPush, alice, widgets)
	require.Equal(t, "/api/v1/hooks/push/alice/acme/widgets", widgetsPush)

	t.Run("Accepted", func(t *testing.T) {
		status, err := provider.DeliverHook(ctx, notesPush, contentTypeJSON, payload)
		require.NoError(t, err)
		require.Equal(t, http.StatusNoContent, status)

		status, err = provider.DeliverHook(ctx, widgetsPush, contentTypeJSON, payload)
		require.NoError(t, err)
		require.Equal(t, http.StatusNoContent, status)

		form := url.Values{}
		form.Set("payload", string(payload))
		status, err = provider.DeliverHook(ctx, notesPush, "application/x-www-form-urlencoded", []byte(form.Encode()))
		require.NoError(t, err)
		require.Equal(t, http.StatusNoContent, status)
	})

	t.Run("Rejected", func(t *testing.T) {
		tests := []struct {
			name    string
			path    string
			payload []byte
		}{
			{name: "InactiveKind", path: "/api/v1/hooks/pull/alice/notes", payload: payload},
			{name: "UnknownKind", path: "/api/v1/hooks/fetch/alice/notes", payload: payload},
			{name: "UnknownAccount", path: "/api/v1/hooks/push/mallory/notes", payload: payload},
			{name: "UnknownRepo", path: "/api/v1/hooks/push/alice/missing", payload: payload},
			{name: "OrgRepoWithoutOrg", path: "/api/v1/hooks/push/alice/widgets", payload: payload},
			{name: "PersonalRepoUnderOrg", path: "/api/v1/hooks/push/alice/acme/notes", payload: payload},
			{name: "WrongOrg", path: "/api/v1/hooks/push/alice/other/widgets", payload: payload},
			{name: "EmptyPayload", path: notesPush, payload: nil},
		}
		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				status, err := provider.DeliverHook(ctx, test.path, contentTypeJSON, test.payload)
				require.NoError(t, err)
				require.Equal(t, http.StatusNotFound, status)
			})
		}
	})

	t.Run("DisabledHook", func(t *testing.T) {
		_, err := aliceClient.UpdateRepoHooks(ctx, &documents.PostRepoHooksRequest{
			PushActive: []models.RepoID{widgets.ID},
		})
		require.NoError(t, err)
		status, err := provider.DeliverHook(ctx, notesPush, contentTypeJSON, payload)
		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, status)
	})
}

func TestInboundHooksByToken(t *testing.T) {
	ctx := context.Background()

	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.Nil(t, err)
	defer cleanup()

	app.AppAPIServer.Start()
	defer app.AppAPIServer.Stop(ctx)

	aliceClient, alice := clienttest.MakeSignedInClient(t, ctx, app, "alice")
	notes := server_test.CreatePersonalRepo(t, ctx, app, alice, "notes")
	_, err = aliceClient.UpdateRepoHooks(ctx, &documents.PostRepoHooksRequest{
		PushActive: []models.RepoID{notes.ID},
	})
	require.NoError(t, err)

	provider := clienttest.MakeAPIClient(t, app)
	payload := []byte(`{"ref":"refs/heads/main","repository":{"name":"notes","owner":{"login":"alice"}}}`)
	tokenPath := func(token string) string {
		return fmt.Sprintf("/api/v1/hooks/push/%s", token)
	}

	status, err := provider.DeliverHook(ctx, tokenPath(alice.HooksToken), contentTypeJSON, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, status)

	// The payload names a repo alice does not manage
	other := []byte(`{"repository":{"name":"elsewhere","owner":{"login":"alice"}}}`)
	status, err = provider.DeliverHook(ctx, tokenPath(alice.HooksToken), contentTypeJSON, other)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)

	// Malformed payloads and tokens
	status, err = provider.DeliverHook(ctx, tokenPath(alice.HooksToken), contentTypeJSON, []byte(`{"ref":"refs/heads/main"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
	status, err = provider.DeliverHook(ctx, tokenPath("not-a-token"), contentTypeJSON, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)

	// Regenerating the token retires the old address
	updated, err := aliceClient.RegenerateHooksToken(ctx)
	require.NoError(t, err)
	status, err = provider.DeliverHook(ctx, tokenPath(alice.HooksToken), contentTypeJSON, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
	status, err = provider.DeliverHook(ctx, tokenPath(updated.HooksToken), contentTypeJSON, payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, status)
}
