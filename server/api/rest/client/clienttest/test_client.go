package clienttest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/client"
	"github.com/vmware-archive/salt-ci/server/app/server_test"
)

// MakeAPIClient creates an API client with no session, to communicate with the given test server.
func MakeAPIClient(t *testing.T, app *server_test.TestServer) *client.APIClient {
	apiClient, err := client.NewAPIClient(app.AppAPIServer.GetServerURL(), app.LogFactory)
	require.NoError(t, err)
	return apiClient
}

// MakeSignedInClient creates a user called login on the fake provider and signs them in through the
// OAuth flow. Returns the client holding the new session, and the account it is signed in as.
func MakeSignedInClient(t *testing.T, ctx context.Context, app *server_test.TestServer, login string) (*client.APIClient, *models.Account) {
	code := fmt.Sprintf("code-%s", login)
	server_test.RegisterSignInCode(t, app, login, code)

	apiClient := MakeAPIClient(t, app)
	redirect, err := apiClient.SignIn(ctx, code)
	require.NoError(t, err)
	require.Equal(t, "/", redirect, "sign-in redirected to the error URL")

	account, err := app.AccountService.ReadByLogin(ctx, nil, login)
	require.NoError(t, err)
	return apiClient, account
}
