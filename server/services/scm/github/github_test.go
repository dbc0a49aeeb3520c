package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestProvider(t *testing.T, handler http.Handler) *GitHubProvider {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGitHubProvider(AppConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/callback",
		APIBaseURL:   server.URL,
		CallTimeout:  MinCallTimeout,
		MaxRetries:   0,
	}, logger.NoOpLogFactory)
}

func TestClampCallTimeout(t *testing.T) {
	require.Equal(t, DefaultCallTimeout, ClampCallTimeout(0))
	require.Equal(t, MinCallTimeout, ClampCallTimeout(time.Second))
	require.Equal(t, MaxCallTimeout, ClampCallTimeout(time.Minute))
	require.Equal(t, 12*time.Second, ClampCallTimeout(12*time.Second))
}

func TestGitHubProviderReadsUserOrganizationsAndRepos(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/user", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"id": 42, "login": "alice", "name": "Alice", "avatar_url": "https://avatars/alice",
		})
	})
	mux.HandleFunc("/api/v3/user/memberships/orgs", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "active", r.URL.Query().Get("state"))
		writeJSON(t, w, http.StatusOK, []map[string]interface{}{
			{"role": "admin", "organization": map[string]interface{}{"id": 7, "login": "acme", "name": "Acme"}},
			{"role": "member", "organization": map[string]interface{}{"id": 8, "login": "globex"}},
		})
	})
	mux.HandleFunc("/api/v3/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, []map[string]interface{}{
			{"id": 100, "name": "rocket", "owner": map[string]interface{}{"login": "acme"},
				"html_url": "https://github.com/acme/rocket", "permissions": map[string]bool{"admin": true}},
			{"id": 101, "name": "anvil", "owner": map[string]interface{}{"login": "acme"}, "fork": true,
				"permissions": map[string]bool{"admin": false, "push": true}},
		})
	})
	mux.HandleFunc("/api/v3/user/repos", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "owner", r.URL.Query().Get("affiliation"))
		writeJSON(t, w, http.StatusOK, []map[string]interface{}{
			{"id": 200, "name": "dotfiles", "private": true, "owner": map[string]interface{}{"login": "alice"},
				"permissions": map[string]bool{"admin": true}},
		})
	})
	provider := newTestProvider(t, mux)
	ctx := context.Background()

	user, err := provider.GetAuthenticatedUser(ctx, "secret-token")
	require.NoError(t, err)
	require.Equal(t, &models.ProviderUser{ID: 42, Login: "alice", Name: "Alice", AvatarURL: "https://avatars/alice"}, user)

	orgs, err := provider.ListOrganizations(ctx, "secret-token")
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	require.Equal(t, "acme", orgs[0].Login)
	require.True(t, orgs[0].ViewerIsAdmin)
	require.False(t, orgs[1].ViewerIsAdmin)

	repos, err := provider.ListOrganizationRepos(ctx, "secret-token", "acme")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	require.Equal(t, models.ProviderID(100), repos[0].ID)
	require.Equal(t, "acme", repos[0].OwnerLogin)
	require.True(t, repos[0].ViewerIsAdmin)
	require.False(t, repos[1].ViewerIsAdmin)
	require.True(t, repos[1].Fork)

	repos, err = provider.ListUserRepos(ctx, "secret-token")
	require.NoError(t, err)
	require.Len(t, repos, 1)
	require.True(t, repos[0].Private)
}

func TestGitHubProviderManagesHooks(t *testing.T) {
	deleted := false
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/alice/dotfiles/hooks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(t, w, http.StatusOK, []map[string]interface{}{
				{"id": 5, "events": []string{"push"}, "config": map[string]interface{}{"url": "https://ci.example.com/api/v1/hooks/push/alice/dotfiles"}},
			})
		case http.MethodPost:
			body := map[string]interface{}{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, []interface{}{"pull_request"}, body["events"])
			require.Equal(t, true, body["active"])
			writeJSON(t, w, http.StatusCreated, map[string]interface{}{
				"id": 6, "events": body["events"], "config": body["config"],
			})
		}
	})
	mux.HandleFunc("/api/v3/repos/alice/dotfiles/hooks/5", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v3/repos/alice/dotfiles/hooks/9", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})
	provider := newTestProvider(t, mux)
	ctx := context.Background()

	hooks, err := provider.ListRepoHooks(ctx, "secret-token", "alice", "dotfiles")
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	require.True(t, hooks[0].HasEvent("push"))
	require.Equal(t, "https://ci.example.com/api/v1/hooks/push/alice/dotfiles", hooks[0].URL())

	hook, err := provider.CreateRepoHook(ctx, "secret-token", "alice", "dotfiles", "pull_request", "https://ci.example.com/api/v1/hooks/pull/alice/dotfiles")
	require.NoError(t, err)
	require.Equal(t, models.ProviderID(6), hook.ID)
	require.Equal(t, "https://ci.example.com/api/v1/hooks/pull/alice/dotfiles", hook.URL())

	require.NoError(t, provider.DeleteRepoHook(ctx, "secret-token", "alice", "dotfiles", 5))
	require.True(t, deleted)

	// Hooks deleted out from under us are already in the desired state
	require.NoError(t, provider.DeleteRepoHook(ctx, "secret-token", "alice", "dotfiles", 9))
}

func TestGitHubProviderMapsErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
	})
	mux.HandleFunc("/api/v3/user/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, map[string]string{"message": "Server Error"})
	})
	provider := newTestProvider(t, mux)
	ctx := context.Background()

	_, err := provider.GetAuthenticatedUser(ctx, "revoked-token")
	require.True(t, gerror.IsProviderAuthFailed(err), "expected provider auth error, got %v", err)

	_, err = provider.ListUserRepos(ctx, "secret-token")
	require.True(t, gerror.IsProviderAPIFailed(err), "expected provider API error, got %v", err)

	_, err = provider.ListUserRepos(ctx, "")
	require.True(t, gerror.IsProviderAuthFailed(err))

	expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
	defer cancel()
	_, err = provider.ListUserRepos(expired, "secret-token")
	require.True(t, gerror.IsTimeout(err), "expected timeout, got %v", err)
}

func TestGitHubProviderExchangesCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "the-code", r.Form.Get("code"))
		writeJSON(t, w, http.StatusOK, map[string]string{"access_token": "fresh-token", "token_type": "bearer"})
	})
	provider := newTestProvider(t, mux)

	token, err := provider.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	require.Equal(t, "fresh-token", token)

	authURL, err := url.Parse(provider.AuthCodeURL("state-123"))
	require.NoError(t, err)
	require.Equal(t, "/login/oauth/authorize", authURL.Path)
	require.Equal(t, "state-123", authURL.Query().Get("state"))
}

func TestGitHubProviderEnterpriseRootURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"id": 42, "login": "alice"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	// A trailing slash on the root is tolerated for both OAuth and the REST API
	provider := NewGitHubProvider(AppConfig{
		ClientID:    "client-id",
		APIBaseURL:  server.URL + "/",
		CallTimeout: MinCallTimeout,
	}, logger.NoOpLogFactory)

	require.True(t, strings.HasPrefix(provider.AuthCodeURL("s"), server.URL+"/login/oauth/authorize?"))
	user, err := provider.GetAuthenticatedUser(context.Background(), "secret-token")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Login)
}

func TestGitHubProviderFollowsPages(t *testing.T) {
	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/user/repos", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "100", r.URL.Query().Get("per_page"))
		switch r.URL.Query().Get("page") {
		case "1":
			w.Header().Set("Link", `<`+serverURL+`/api/v3/user/repos?page=2&per_page=100>; rel="next"`)
			writeJSON(t, w, http.StatusOK, []map[string]interface{}{
				{"id": 1, "name": "first", "owner": map[string]interface{}{"login": "alice"}},
			})
		case "2":
			writeJSON(t, w, http.StatusOK, []map[string]interface{}{
				{"id": 2, "name": "second", "owner": map[string]interface{}{"login": "alice"}},
			})
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	provider := newTestProvider(t, mux)
	serverURL = provider.config.APIBaseURL

	repos, err := provider.ListUserRepos(context.Background(), "secret-token")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	require.Equal(t, "first", repos[0].Name)
	require.Equal(t, "second", repos[1].Name)
}
