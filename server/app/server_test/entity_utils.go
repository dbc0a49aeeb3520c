package server_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/models"
)

// CreateAccount creates a user on the fake provider and signs them in, returning the new account.
// Any errors will cause failure of the test. If name is blank the login is used as the display name.
func CreateAccount(t *testing.T, ctx context.Context, app *TestServer, login string, name string) *models.Account {
	providerID, token := app.FakeProvider.CreateUser(login, name)
	account, err := app.AccountService.SignIn(ctx, nil, token, &models.ProviderUser{
		ID:        providerID,
		Login:     login,
		Name:      name,
		AvatarURL: fmt.Sprintf("https://avatars.example.com/%s", login),
	})
	require.NoError(t, err)
	return account
}

// RegisterSignInCode makes code exchangeable for a new provider user's access token, so the user
// can sign in through the OAuth callback.
func RegisterSignInCode(t *testing.T, app *TestServer, login string, code string) {
	_, token := app.FakeProvider.CreateUser(login, "")
	app.FakeProvider.RegisterCode(code, token)
}

// SyncAccount synchronizes the account with the fake provider and requires the sync to complete.
func SyncAccount(t *testing.T, ctx context.Context, app *TestServer, accountID models.AccountID) *models.SyncResult {
	result, err := app.SyncService.SyncAccount(ctx, accountID)
	require.NoError(t, err)
	require.False(t, result.IsPartial(), "sync stopped early: %+v", result.Failure)
	return result
}

// CreatePersonalRepo creates a repo owned by the account on the fake provider, then syncs so the repo
// is in the account's managed set.
func CreatePersonalRepo(t *testing.T, ctx context.Context, app *TestServer, account *models.Account, name string) *models.Repo {
	providerID := app.FakeProvider.CreateUserRepo(account.Login, name)
	SyncAccount(t, ctx, app, account.ID)
	repo, err := app.RepoStore.ReadByProviderID(ctx, nil, providerID)
	require.NoError(t, err)
	return repo
}

// CreateOrganizationRepo creates an organization (if it does not already exist) with the account as
// a member, and a repo in it, on the fake provider. isAdmin makes the account an admin of the repo
// only. The repo is synced and returned.
func CreateOrganizationRepo(
	t *testing.T,
	ctx context.Context,
	app *TestServer,
	account *models.Account,
	orgLogin string,
	name string,
	isAdmin bool,
) *models.Repo {
	app.FakeProvider.CreateOrganization(orgLogin, orgLogin)
	app.FakeProvider.SetOrganizationMember(orgLogin, account.Login, false)
	var admins []string
	if isAdmin {
		admins = append(admins, account.Login)
	}
	providerID := app.FakeProvider.CreateOrganizationRepo(orgLogin, name, admins...)
	SyncAccount(t, ctx, app, account.ID)
	repo, err := app.RepoStore.ReadByProviderID(ctx, nil, providerID)
	require.NoError(t, err)
	return repo
}

// ReadRepo re-reads a repo so tests can observe changes made by the services.
func ReadRepo(t *testing.T, ctx context.Context, app *TestServer, id models.RepoID) *models.Repo {
	repo, err := app.RepoStore.Read(ctx, nil, id)
	require.NoError(t, err)
	return repo
}
