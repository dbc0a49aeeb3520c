package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/middleware"
	"github.com/vmware-archive/salt-ci/server/services"
)

const (
	sessionName                        = "saltci"
	sessionAccountIDKeyName            = "account_id"
	sessionOAuthStateKeyName           = "oauth_state"
	sessionOAuthRedirectSuccessKeyName = "redirect_success_url"
	sessionOAuthRedirectErrorKeyName   = "redirect_error_url"

	DefaultSessionLifetimeSeconds = 1600
)

// UseSameSiteNoneMode is a setting to set SameSite=none mode when issuing session cookies, so the cookies will
// be sent along with cross-site requests. This should only be used in development environments, not in production.
type UseSameSiteNoneMode bool

func (b UseSameSiteNoneMode) Bool() bool {
	return bool(b)
}

type AuthenticationConfig struct {
	// SessionAuthenticationKey signs session cookies and must be 32 bytes.
	SessionAuthenticationKey []byte
	// SessionEncryptionKey encrypts session cookies when set, and must be 32 bytes.
	SessionEncryptionKey   []byte
	SessionLifetimeSeconds int
	// InsecureCookies allows session cookies over plain HTTP, for local development and tests.
	InsecureCookies     bool
	UseSameSiteNoneMode UseSameSiteNoneMode
	// SuccessRedirectURL and ErrorRedirectURL are where the browser is sent after sign-in when the
	// request does not name its own (relative) redirect URLs.
	SuccessRedirectURL string
	ErrorRedirectURL   string
}

type AuthenticationAPI struct {
	authenticationService services.AuthenticationService
	sessionStore          *sessions.CookieStore
	config                AuthenticationConfig
	*APIBase
}

func NewAuthenticationAPI(
	authenticationService services.AuthenticationService,
	authorizationService services.AuthorizationService,
	logFactory logger.LogFactory,
	config AuthenticationConfig,
) *AuthenticationAPI {

	keyPairs := [][]byte{config.SessionAuthenticationKey}
	if len(config.SessionEncryptionKey) > 0 {
		keyPairs = append(keyPairs, config.SessionEncryptionKey)
	}
	sessionStore := sessions.NewCookieStore(keyPairs...)

	lifetime := config.SessionLifetimeSeconds
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetimeSeconds
	}
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   lifetime,
		Secure:   !config.InsecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	// https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Set-Cookie/SameSite
	if config.UseSameSiteNoneMode {
		sessionStore.Options.SameSite = http.SameSiteNoneMode
	}
	if config.SuccessRedirectURL == "" {
		config.SuccessRedirectURL = "/"
	}
	if config.ErrorRedirectURL == "" {
		config.ErrorRedirectURL = "/"
	}

	return &AuthenticationAPI{
		authenticationService: authenticationService,
		sessionStore:          sessionStore,
		config:                config,
		APIBase:               NewAPIBase(authorizationService, logFactory("AuthenticationAPI")),
	}
}

// AuthenticateGitHub uses OAuth to authenticate the user using GitHub.
// This endpoint will redirect the browser to GitHub, which will then redirect back to
// the AuthenticateGitHubCallback handler.
func (a *AuthenticationAPI) AuthenticateGitHub(w http.ResponseWriter, r *http.Request) {
	state := a.authenticationService.NewOAuthState()
	pairs := map[string]string{
		sessionOAuthStateKeyName:           state,
		sessionOAuthRedirectSuccessKeyName: a.redirectURL(r.URL.Query().Get("success_url"), a.config.SuccessRedirectURL),
		sessionOAuthRedirectErrorKeyName:   a.redirectURL(r.URL.Query().Get("error_url"), a.config.ErrorRedirectURL),
	}
	err := a.setSessionValues(w, r, pairs)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	http.Redirect(w, r, a.authenticationService.AuthCodeURL(state), http.StatusFound)
}

// AuthenticateGitHubCallback is the second step in the OAuth flow for GitHub authentication.
// It exchanges the code for a GitHub user token and signs the user in, creating their account if
// required. On success a session cookie is issued and the browser is redirected to the success url,
// on error the browser is redirected to the error url.
func (a *AuthenticationAPI) AuthenticateGitHubCallback(w http.ResponseWriter, r *http.Request) {
	session := a.getSession(r)
	expectedState := a.getSessionValue(session, sessionOAuthStateKeyName)
	successRedirectURL := a.redirectURL(a.getSessionValue(session, sessionOAuthRedirectSuccessKeyName), a.config.SuccessRedirectURL)
	errorRedirectURL := a.redirectURL(a.getSessionValue(session, sessionOAuthRedirectErrorKeyName), a.config.ErrorRedirectURL)

	// The state is single use
	delete(session.Values, sessionOAuthStateKeyName)
	delete(session.Values, sessionOAuthRedirectSuccessKeyName)
	delete(session.Values, sessionOAuthRedirectErrorKeyName)

	if expectedState == "" || r.URL.Query().Get("state") != expectedState {
		a.Warnf("OAuth state missing or tampered with on callback")
		a.saveSessionOrLog(w, r, session)
		http.Redirect(w, r, errorRedirectURL, http.StatusFound)
		return
	}
	if errStr := r.URL.Query().Get("error"); errStr != "" {
		a.Infof("Sign-in was declined at the provider: %s", errStr)
		a.saveSessionOrLog(w, r, session)
		http.Redirect(w, r, errorRedirectURL, http.StatusFound)
		return
	}

	account, err := a.authenticationService.AuthenticateWithCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.Errorf("Error authenticating: %s", err)
		a.saveSessionOrLog(w, r, session)
		http.Redirect(w, r, errorRedirectURL, http.StatusFound)
		return
	}

	session.Values[sessionAccountIDKeyName] = account.ID.String()
	err = session.Save(r, w)
	if err != nil {
		a.Errorf("Error issuing session: %s", err)
		http.Redirect(w, r, errorRedirectURL, http.StatusFound)
		return
	}

	a.Infof("Account %s (%s) authenticated using GitHub", account.ID, account.Login)
	http.Redirect(w, r, successRedirectURL, http.StatusFound)
}

// SignOut invalidates the session cookie.
func (a *AuthenticationAPI) SignOut(w http.ResponseWriter, r *http.Request) {
	_, err := a.Require(r, models.AuthenticatedPermission)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	err = a.invalidateSession(w, r)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionAuthenticator makes a middleware that resolves the identity of the session's account and
// places it in the request context. Requests without a valid session get the anonymous identity.
// A session naming an account that no longer resolves is invalidated.
func (a *AuthenticationAPI) SessionAuthenticator(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		identity := models.NewAnonymousIdentity()
		session := a.getSession(r)
		accountIDStr := a.getSessionValue(session, sessionAccountIDKeyName)
		if accountIDStr != "" {
			id, err := models.ParseResourceID(accountIDStr)
			if err == nil && id.Kind == models.AccountResourceKind {
				identity = a.authorizationService.ResolveIdentity(r.Context(), models.AccountIDFromResourceID(id))
			}
			if identity.IsAnonymous() {
				a.Infof("Invalidating session for unknown account %q", accountIDStr)
				err = a.invalidateSession(w, r)
				if err != nil {
					a.Warnf("Unable to invalidate session: %v", err)
				}
			} else {
				a.Tracef("Authenticated account %s using session", identity.AccountID())
			}
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), identity)))
	}
	return http.HandlerFunc(fn)
}

// redirectURL returns candidate if it is a local path, otherwise fallback.
func (a *AuthenticationAPI) redirectURL(candidate string, fallback string) string {
	if strings.HasPrefix(candidate, "/") && !strings.HasPrefix(candidate, "//") && !strings.Contains(candidate, "\\") {
		return candidate
	}
	return fallback
}

func (a *AuthenticationAPI) getSession(r *http.Request) *sessions.Session {
	session, err := a.sessionStore.Get(r, sessionName)
	if err != nil {
		session, _ = a.sessionStore.New(r, sessionName)
	}
	return session
}

func (a *AuthenticationAPI) setSessionValues(w http.ResponseWriter, r *http.Request, pairs map[string]string) error {
	session := a.getSession(r)
	for k, v := range pairs {
		session.Values[k] = v
	}
	err := session.Save(r, w)
	if err != nil {
		return errors.Wrap(err, "error saving session")
	}
	return nil
}

func (a *AuthenticationAPI) saveSessionOrLog(w http.ResponseWriter, r *http.Request, session *sessions.Session) {
	err := session.Save(r, w)
	if err != nil {
		a.Warnf("Error saving session: %v", err)
	}
}

func (a *AuthenticationAPI) invalidateSession(w http.ResponseWriter, r *http.Request) error {
	session := a.getSession(r)
	session.Values = make(map[interface{}]interface{})
	options := *a.sessionStore.Options
	options.MaxAge = -1
	session.Options = &options
	err := session.Save(r, w)
	if err != nil {
		return errors.Wrap(err, "error invalidating session")
	}
	return nil
}

func (a *AuthenticationAPI) getSessionValue(session *sessions.Session, name string) string {
	v, ok := session.Values[name]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
