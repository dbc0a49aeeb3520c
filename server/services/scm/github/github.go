package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v28/github"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
)

const (
	GitHubProviderName = "github"

	DefaultCallTimeout = 10 * time.Second
	MinCallTimeout     = 5 * time.Second
	MaxCallTimeout     = 15 * time.Second
	DefaultMaxRetries  = 2
)

// oauthScopes are the scopes needed to list organization memberships and manage repo hooks.
var oauthScopes = []string{"read:org", "admin:repo_hook", "repo"}

type AppConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// APIBaseURL is the root URL of a GitHub Enterprise server e.g. "https://github.example.com",
	// or "" for github.com. OAuth lives at the root and the REST API under /api/v3/.
	APIBaseURL string
	// CallTimeout bounds every call to GitHub, including retries. Clamped to [MinCallTimeout, MaxCallTimeout].
	CallTimeout time.Duration
	// MaxRetries is the number of times a call failing with a connection error or 5xx is retried.
	MaxRetries int
}

// ClampCallTimeout returns the timeout to use for provider calls given a configured value,
// using DefaultCallTimeout when unset.
func ClampCallTimeout(timeout time.Duration) time.Duration {
	switch {
	case timeout <= 0:
		return DefaultCallTimeout
	case timeout < MinCallTimeout:
		return MinCallTimeout
	case timeout > MaxCallTimeout:
		return MaxCallTimeout
	}
	return timeout
}

type GitHubProvider struct {
	config      AppConfig
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	callTimeout time.Duration
	logger.Log
}

func NewGitHubProvider(config AppConfig, logFactory logger.LogFactory) *GitHubProvider {
	log := logFactory("GitHubProvider")

	retryableClient := retryablehttp.NewClient()
	retryableClient.RetryWaitMin = time.Millisecond * 100
	retryableClient.RetryWaitMax = time.Second * 2
	retryableClient.RetryMax = config.MaxRetries
	retryableClient.Logger = NewLeveledLogger(log)
	// Hand the final response to go-github so it can decode the GitHub error document
	retryableClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	endpoint := githuboauth.Endpoint
	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")
	if config.APIBaseURL != "" {
		endpoint = oauth2.Endpoint{
			AuthURL:  config.APIBaseURL + "/login/oauth/authorize",
			TokenURL: config.APIBaseURL + "/login/oauth/access_token",
		}
	}

	return &GitHubProvider{
		config: config,
		oauthConfig: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  config.RedirectURL,
			Scopes:       oauthScopes,
		},
		httpClient:  retryableClient.StandardClient(),
		callTimeout: ClampCallTimeout(config.CallTimeout),
		Log:         log,
	}
}

// Name returns the unique name of the provider.
func (s *GitHubProvider) Name() string {
	return GitHubProviderName
}

// AuthCodeURL returns the GitHub authorization URL to redirect a user to at the start of sign-in.
func (s *GitHubProvider) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state)
}

// ExchangeCode exchanges an OAuth authorization code for an access token.
func (s *GitHubProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		if isTimeout(ctx, err) {
			return "", gerror.NewErrTimeout("exchanging authorization code").Wrap(err)
		}
		return "", gerror.NewErrProviderAuthFailed("Error exchanging authorization code").Wrap(err)
	}
	if !token.Valid() {
		return "", gerror.NewErrProviderAuthFailed("GitHub returned an invalid token")
	}
	return token.AccessToken, nil
}

// GetAuthenticatedUser returns the GitHub user the access token belongs to.
func (s *GitHubProvider) GetAuthenticatedUser(ctx context.Context, token string) (*models.ProviderUser, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	client, err := s.makeGitHubOAuthClient(ctx, token)
	if err != nil {
		return nil, err
	}
	ghUser, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, s.mapError(ctx, "reading authenticated user", err)
	}
	return &models.ProviderUser{
		ID:        models.ProviderID(ghUser.GetID()),
		Login:     ghUser.GetLogin(),
		Name:      ghUser.GetName(),
		AvatarURL: ghUser.GetAvatarURL(),
	}, nil
}

// ListOrganizations lists every organization the user is an active member of, using the user's
// organization memberships so the admin role comes back with each organization.
func (s *GitHubProvider) ListOrganizations(ctx context.Context, token string) ([]*models.ProviderOrganization, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	client, err := s.makeGitHubOAuthClient(ctx, token)
	if err != nil {
		return nil, err
	}
	memberships, err := listActiveMemberships(ctx, client)
	if err != nil {
		return nil, s.mapError(ctx, "listing organizations", err)
	}
	orgs := make([]*models.ProviderOrganization, 0, len(memberships))
	for _, membership := range memberships {
		ghOrg := membership.GetOrganization()
		if ghOrg == nil {
			continue
		}
		orgs = append(orgs, &models.ProviderOrganization{
			ID:            models.ProviderID(ghOrg.GetID()),
			Name:          ghOrg.GetName(),
			Login:         ghOrg.GetLogin(),
			AvatarURL:     ghOrg.GetAvatarURL(),
			ViewerIsAdmin: membership.GetRole() == "admin",
		})
	}
	return orgs, nil
}

// ListOrganizationRepos lists every repo in the organization visible to the user.
func (s *GitHubProvider) ListOrganizationRepos(ctx context.Context, token string, organizationLogin string) ([]*models.ProviderRepo, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	client, err := s.makeGitHubOAuthClient(ctx, token)
	if err != nil {
		return nil, err
	}
	ghRepos, err := listOrganizationRepos(ctx, client, organizationLogin)
	if err != nil {
		return nil, s.mapError(ctx, fmt.Sprintf("listing repos for organization %s", organizationLogin), err)
	}
	return toProviderRepos(ghRepos), nil
}

// ListUserRepos lists every repo owned by the user.
func (s *GitHubProvider) ListUserRepos(ctx context.Context, token string) ([]*models.ProviderRepo, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	client, err := s.makeGitHubOAuthClient(ctx, token)
	if err != nil {
		return nil, err
	}
	ghRepos, err := listUserRepos(ctx, client)
	if err != nil {
		return nil, s.mapError(ctx, "listing user repos", err)
	}
	return toProviderRepos(ghRepos), nil
}

// ListRepoHooks lists every hook registered on the repo.
func (s *GitHubProvider) ListRepoHooks(ctx context.Context, token string, owner string, repo string) ([]*models.ProviderHook, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	client, err := s.makeGitHubOAuthClient(ctx, token)
	if err != nil {
		return nil, err
	}
	ghHooks, err := listRepoHooks(ctx, client, owner, repo)
	if err != nil {
		return nil, s.mapError(ctx, fmt.Sprintf("listing hooks for %s/%s", owner, repo), err)
	}
	hooks := make([]*models.ProviderHook, 0, len(ghHooks))
	for _, ghHook := range ghHooks {
		hooks = append(hooks, toProviderHook(ghHook))
	}
	return hooks, nil
}

// CreateRepoHook registers an active JSON hook on the repo for the single named event.
func (s *GitHubProvider) CreateRepoHook(
	ctx context.Context,
	token string,
	owner string,
	repo string,
	event string,
	callbackURL string,
) (*models.ProviderHook, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	client, err := s.makeGitHubOAuthClient(ctx, token)
	if err != nil {
		return nil, err
	}
	hook := &github.Hook{
		Events: []string{event},
		Active: github.Bool(true),
		Config: map[string]interface{}{
			"url":          callbackURL,
			"content_type": "json",
		},
	}
	ghHook, _, err := client.Repositories.CreateHook(ctx, owner, repo, hook)
	if err != nil {
		return nil, s.mapError(ctx, fmt.Sprintf("creating %s hook for %s/%s", event, owner, repo), err)
	}
	s.Infof("Created %s hook %d for %s/%s", event, ghHook.GetID(), owner, repo)
	return toProviderHook(ghHook), nil
}

// DeleteRepoHook removes a hook from the repo. Deleting a hook that no longer exists is not an error.
func (s *GitHubProvider) DeleteRepoHook(ctx context.Context, token string, owner string, repo string, hookID models.ProviderID) error {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	client, err := s.makeGitHubOAuthClient(ctx, token)
	if err != nil {
		return err
	}
	res, err := client.Repositories.DeleteHook(ctx, owner, repo, int64(hookID))
	if err != nil {
		if res != nil && res.StatusCode == http.StatusNotFound {
			s.Warnf("Hook %d for %s/%s already deleted", hookID, owner, repo)
			return nil
		}
		return s.mapError(ctx, fmt.Sprintf("deleting hook %d for %s/%s", hookID, owner, repo), err)
	}
	s.Infof("Deleted hook %d for %s/%s", hookID, owner, repo)
	return nil
}

// callContext returns a context bounded by the configured call timeout.
func (s *GitHubProvider) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	return context.WithTimeout(ctx, s.callTimeout)
}

// makeGitHubOAuthClient returns a GitHub client configured to authenticate as the user owning token.
func (s *GitHubProvider) makeGitHubOAuthClient(ctx context.Context, token string) (*github.Client, error) {
	if token == "" {
		return nil, gerror.NewErrProviderAuthFailed("No GitHub access token available")
	}
	tokenSrc := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	oauthClient := oauth2.NewClient(ctx, tokenSrc)
	if s.config.APIBaseURL == "" {
		return github.NewClient(oauthClient), nil
	}
	client, err := github.NewEnterpriseClient(s.config.APIBaseURL+"/api/v3/", s.config.APIBaseURL+"/api/uploads/", oauthClient)
	if err != nil {
		return nil, gerror.NewErrConfiguration("Invalid GitHub API base URL").Wrap(err)
	}
	return client, nil
}

// mapError converts an error from a GitHub call into a Timeout, ProviderAuthFailed or ProviderAPIFailed error.
func (s *GitHubProvider) mapError(ctx context.Context, description string, err error) error {
	if isTimeout(ctx, err) {
		return gerror.NewErrTimeout(description).Wrap(err)
	}
	var errResponse *github.ErrorResponse
	if errors.As(err, &errResponse) && errResponse.Response != nil {
		switch errResponse.Response.StatusCode {
		case http.StatusUnauthorized:
			return gerror.NewErrProviderAuthFailed("GitHub rejected the access token").Wrap(err)
		}
	}
	s.Warnf("Error %s: %v", description, err)
	return gerror.NewErrProviderAPIFailed(fmt.Sprintf("Error %s", description)).Wrap(err)
}

func isTimeout(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func toProviderRepos(ghRepos []*github.Repository) []*models.ProviderRepo {
	repos := make([]*models.ProviderRepo, 0, len(ghRepos))
	for _, ghRepo := range ghRepos {
		repos = append(repos, &models.ProviderRepo{
			ID:            models.ProviderID(ghRepo.GetID()),
			Name:          ghRepo.GetName(),
			OwnerLogin:    ghRepo.GetOwner().GetLogin(),
			URL:           ghRepo.GetHTMLURL(),
			Description:   ghRepo.GetDescription(),
			Fork:          ghRepo.GetFork(),
			Private:       ghRepo.GetPrivate(),
			ViewerIsAdmin: ghRepo.GetPermissions()["admin"],
		})
	}
	return repos
}

func toProviderHook(ghHook *github.Hook) *models.ProviderHook {
	return &models.ProviderHook{
		ID:     models.ProviderID(ghHook.GetID()),
		Events: ghHook.Events,
		Config: ghHook.Config,
	}
}
