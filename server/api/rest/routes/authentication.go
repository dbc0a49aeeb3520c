package routes

import "fmt"

// GitHubAuthenticationCallbackPath is where GitHub redirects the browser back to after sign-in.
const GitHubAuthenticationCallbackPath = "/api/v1/authentication/github/callback"

func MakeGitHubAuthenticationURL(rctx RequestContext) string {
	return fmt.Sprintf("%s/api/v1/authentication/github", rctx.BaseURL())
}

func MakeSignOutURL(rctx RequestContext) string {
	return fmt.Sprintf("%s/api/v1/authentication/signout", rctx.BaseURL())
}
