package middleware

import (
	"context"
	"net/http"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
)

type identityContextKey struct{}

// ErrorWriter writes err to the response as a standard API error document.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// WithIdentity returns a copy of ctx carrying the identity.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity placed in the context by the session authenticator,
// or the anonymous identity if there is none.
func IdentityFromContext(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(identityContextKey{}).(*models.Identity)
	if !ok || identity == nil {
		return models.NewAnonymousIdentity()
	}
	return identity
}

// MakeMustAuthenticate makes a middleware that enforces that the request must be authenticated.
// If the request is not authenticated then a 401 error will be returned to the client.
func MakeMustAuthenticate(log logger.Log, writeError ErrorWriter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if IdentityFromContext(r.Context()).IsAnonymous() {
				log.Tracef("Rejecting unauthenticated request to %s", r.URL.Path)
				writeError(w, r, gerror.NewErrUnauthorized("Unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
