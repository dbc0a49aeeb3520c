package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
	"github.com/vmware-archive/salt-ci/server/api/rest/middleware"
	"github.com/vmware-archive/salt-ci/server/services"
)

type APIBase struct {
	logger.Log
	authorizationService services.AuthorizationService
}

func NewAPIBase(authorizationService services.AuthorizationService, logger logger.Log) *APIBase {
	return &APIBase{
		authorizationService: authorizationService,
		Log:                  logger,
	}
}

// JSON marshals 'v' to JSON, automatically escaping HTML and setting the
// Content-Type as application/json. Copied from chi/render.JSON and updated
// to log serialization errors.
func (a *APIBase) JSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		a.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if status, ok := r.Context().Value(render.StatusCtxKey).(int); ok {
		w.WriteHeader(status)
	}
	a.Tracef("JSON Response: %s", buf.String())
	w.Write(buf.Bytes())
}

// Error writes the specified error to the http response as a standard
// API error document. Errors are sanitized for public display before
// being written. Status code is automatically inferred from the error.
// The error is logged to the server log at a Warning level.
func (a *APIBase) Error(w http.ResponseWriter, r *http.Request, err error) {
	a.Warnf("Error in API call: %v", err)
	a.ErrorNotLogged(w, r, err)
}

// ErrorNotLogged writes the specified error to the http response as a standard
// API error document. Errors are sanitized for public display before
// being written. Status code is automatically inferred from the error.
// The error is not logged to the server log.
func (a *APIBase) ErrorNotLogged(w http.ResponseWriter, r *http.Request, err error) {
	doc := documents.MakeErrorDocument(err)
	r = r.WithContext(context.WithValue(r.Context(), render.StatusCtxKey, doc.HTTPStatusCode))
	a.JSON(w, r, doc)
}

// GotResource writes a standardized resource response to the http response object and is intended to be
// used in response to a GET request.
func (a *APIBase) GotResource(w http.ResponseWriter, r *http.Request, resource documents.ResourceDocument) {
	mutable, ok := resource.(models.MutableResource)
	if ok {
		w.Header().Set("ETag", mutable.GetETag().String())
	}
	r = r.WithContext(context.WithValue(r.Context(), render.StatusCtxKey, http.StatusOK))
	a.JSON(w, r, resource)
}

// UpdatedResource writes a standardized resource updated response to the http response object and is
// intended to be used in response to a PUT, PATCH or action POST request.
func (a *APIBase) UpdatedResource(w http.ResponseWriter, r *http.Request, resource documents.ResourceDocument) {
	w.Header().Set("Location", resource.GetLink())
	r = r.WithContext(context.WithValue(r.Context(), render.StatusCtxKey, http.StatusOK))
	a.JSON(w, r, resource)
}

// Accepted writes a 202 response for work that was only partly applied; data describes what was done.
func (a *APIBase) Accepted(w http.ResponseWriter, r *http.Request, data interface{}) {
	r = r.WithContext(context.WithValue(r.Context(), render.StatusCtxKey, http.StatusAccepted))
	a.JSON(w, r, data)
}

// Identity returns the identity the session authenticator resolved for the request.
func (a *APIBase) Identity(r *http.Request) *models.Identity {
	return middleware.IdentityFromContext(r.Context())
}

// Require checks the request's identity against a permission. It is called at the top of each handler.
func (a *APIBase) Require(r *http.Request, permission models.Permission) (*models.Identity, error) {
	identity := a.Identity(r)
	err := a.authorizationService.Require(identity, permission)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// RequireAccount is Require for handlers that act on the signed in account.
func (a *APIBase) RequireAccount(r *http.Request, permission models.Permission) (*models.Account, error) {
	identity, err := a.Require(r, permission)
	if err != nil {
		return nil, err
	}
	if identity.IsAnonymous() {
		return nil, gerror.NewErrUnauthorized("Unauthorized")
	}
	return identity.Account, nil
}

// Bind decodes the request body into v using render.Bind. Decoding failures are validation errors.
func (a *APIBase) Bind(r *http.Request, v render.Binder) error {
	err := render.Bind(r, v)
	if err != nil {
		var gErr gerror.Error
		if errors.As(err, &gErr) {
			return err
		}
		return gerror.NewErrValidationFailed("Invalid request body").Wrap(err)
	}
	return nil
}
