package scm

import (
	"context"

	"github.com/vmware-archive/salt-ci/common/models"
)

// Provider is the source-hosting service accounts sign in with, and whose organizations,
// repositories and hooks are synchronized. Every call is bounded by the provider's configured
// timeout; a call that exceeds it returns a gerror Timeout. A credential the provider rejects
// returns gerror ProviderAuthFailed, and any other failure returns gerror ProviderAPIFailed.
type Provider interface {
	// Name returns the unique name of the provider e.g. "github".
	Name() string
	// AuthCodeURL returns the URL to redirect a user to in order to start an OAuth sign-in.
	// The state is echoed back to the callback unchanged.
	AuthCodeURL(state string) string
	// ExchangeCode exchanges an OAuth authorization code for an access token.
	ExchangeCode(ctx context.Context, code string) (string, error)
	// GetAuthenticatedUser returns the user the access token belongs to.
	GetAuthenticatedUser(ctx context.Context, token string) (*models.ProviderUser, error)
	// ListOrganizations lists every organization the user is an active member of, each annotated
	// with whether the user is an admin of it.
	ListOrganizations(ctx context.Context, token string) ([]*models.ProviderOrganization, error)
	// ListOrganizationRepos lists every repo in the organization visible to the user, each
	// annotated with whether the user is an admin of it.
	ListOrganizationRepos(ctx context.Context, token string, organizationLogin string) ([]*models.ProviderRepo, error)
	// ListUserRepos lists every repo owned by the user.
	ListUserRepos(ctx context.Context, token string) ([]*models.ProviderRepo, error)
	// ListRepoHooks lists every hook registered on the repo.
	ListRepoHooks(ctx context.Context, token string, owner string, repo string) ([]*models.ProviderHook, error)
	// CreateRepoHook registers an active hook on the repo that delivers the single named event to callbackURL.
	CreateRepoHook(ctx context.Context, token string, owner string, repo string, event string, callbackURL string) (*models.ProviderHook, error)
	// DeleteRepoHook removes a hook from the repo.
	DeleteRepoHook(ctx context.Context, token string, owner string, repo string, hookID models.ProviderID) error
}
