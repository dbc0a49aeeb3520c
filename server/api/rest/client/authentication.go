package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

const (
	gitHubAuthenticationPath = "/api/v1/authentication/github"
	signOutPath              = "/api/v1/authentication/signout"
)

// BeginSignIn starts the OAuth flow, storing the OAuth state in the client's session cookie.
// Returns the provider URL the browser would be sent to.
func (a *APIClient) BeginSignIn(ctx context.Context) (*url.URL, error) {
	statusCode, header, body, err := a.doRequest(ctx, http.MethodGet, gitHubAuthenticationPath, "", nil)
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusFound {
		return nil, a.makeHTTPError(statusCode, body)
	}
	location, err := url.Parse(header.Get("Location"))
	if err != nil {
		return nil, errors.Wrap(err, "error parsing authorization redirect")
	}
	return location, nil
}

// CompleteSignIn delivers the provider's callback for the state issued by BeginSignIn.
// Returns the URL the server redirected to, which is the success or error redirect URL.
func (a *APIClient) CompleteSignIn(ctx context.Context, state string, code string) (string, error) {
	query := url.Values{}
	query.Set("state", state)
	query.Set("code", code)
	statusCode, header, body, err := a.doRequest(ctx, http.MethodGet, gitHubAuthenticationPath+"/callback?"+query.Encode(), "", nil)
	if err != nil {
		return "", err
	}
	if statusCode != http.StatusFound {
		return "", a.makeHTTPError(statusCode, body)
	}
	return header.Get("Location"), nil
}

// SignIn runs the whole OAuth flow using an authorization code the provider would have issued.
func (a *APIClient) SignIn(ctx context.Context, code string) (string, error) {
	authCodeURL, err := a.BeginSignIn(ctx)
	if err != nil {
		return "", err
	}
	return a.CompleteSignIn(ctx, authCodeURL.Query().Get("state"), code)
}

// SignOut invalidates the client's session.
func (a *APIClient) SignOut(ctx context.Context) error {
	_, err := a.postJSON(ctx, signOutPath, nil, nil, http.StatusNoContent)
	return err
}
