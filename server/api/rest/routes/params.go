package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/models"
)

// HookKindParam extracts a hook kind from the url parameters on the supplied request.
func HookKindParam(r *http.Request, key string) (models.HookKind, error) {
	return models.ParseHookKind(chi.URLParam(r, key))
}

// RepoIDParam extracts a repo id from the url parameters on the supplied request.
func RepoIDParam(r *http.Request, key string) (models.RepoID, error) {
	str := chi.URLParam(r, key)
	if str == "" {
		return models.RepoID{}, errors.Errorf("error %q param does not exist", key)
	}
	id, err := models.ParseResourceID(str)
	if err != nil {
		return models.RepoID{}, errors.Wrap(err, "error parsing repo id param")
	}
	if id.Kind != models.RepoResourceKind {
		return models.RepoID{}, errors.Errorf("error %q is not a repo id", str)
	}
	return models.RepoIDFromResourceID(id), nil
}
