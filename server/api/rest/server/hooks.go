package server

import (
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-github/v28/github"
	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/routes"
	"github.com/vmware-archive/salt-ci/server/services"
)

const maxInboundPayloadBytes = 5 << 20

var hooksTokenRegex = regexp.MustCompile(`^[0-9a-f]{32}$`)

// InboundHookAPI accepts hook payloads delivered by the provider. Every request that does not
// address an active hook on a managed repo gets the same 404, whatever the reason.
type InboundHookAPI struct {
	hookService services.HookService
	*APIBase
}

func NewInboundHookAPI(
	hookService services.HookService,
	authorizationService services.AuthorizationService,
	logFactory logger.LogFactory) *InboundHookAPI {
	return &InboundHookAPI{
		hookService: hookService,
		APIBase:     NewAPIBase(authorizationService, logFactory("InboundHookAPI")),
	}
}

// Handle accepts a payload addressed by kind, account login, optional organization login and repo name.
func (a *InboundHookAPI) Handle(w http.ResponseWriter, r *http.Request) {
	kind, err := routes.HookKindParam(r, "kind")
	if err != nil {
		a.reject(w, r, err)
		return
	}
	payload, err := readInboundPayload(w, r)
	if err != nil {
		a.reject(w, r, err)
		return
	}
	target, err := a.hookService.ResolveInboundTarget(
		r.Context(),
		kind,
		chi.URLParam(r, "login"),
		chi.URLParam(r, "org"),
		chi.URLParam(r, "repo"))
	if err != nil {
		a.reject(w, r, err)
		return
	}
	a.accept(w, r, target, payload)
}

// HandleToken accepts a push payload addressed by an account's hooks token. The repo is named by
// the payload itself.
func (a *InboundHookAPI) HandleToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if !hooksTokenRegex.MatchString(token) {
		a.reject(w, r, errors.New("error malformed hooks token"))
		return
	}
	payload, err := readInboundPayload(w, r)
	if err != nil {
		a.reject(w, r, err)
		return
	}
	ownerLogin, repoName, err := pushEventRepo(payload)
	if err != nil {
		a.reject(w, r, err)
		return
	}
	target, err := a.hookService.ResolveInboundTokenTarget(r.Context(), token, ownerLogin, repoName)
	if err != nil {
		a.reject(w, r, err)
		return
	}
	a.accept(w, r, target, payload)
}

func (a *InboundHookAPI) accept(w http.ResponseWriter, r *http.Request, target *models.InboundHookTarget, payload []byte) {
	err := a.hookService.HandleInboundPayload(r.Context(), target, payload)
	if err != nil {
		a.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *InboundHookAPI) reject(w http.ResponseWriter, r *http.Request, err error) {
	a.Debugf("Rejecting inbound hook to %s: %v", r.URL.Path, err)
	a.ErrorNotLogged(w, r, gerror.NewErrNotFound("Not Found"))
}

// readInboundPayload returns the hook payload, which is the "payload" field of a form post or
// else the whole request body.
func readInboundPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxInboundPayloadBytes)
	var payload []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		err := r.ParseForm()
		if err != nil {
			return nil, errors.Wrap(err, "error parsing form")
		}
		payload = []byte(r.PostForm.Get("payload"))
	} else {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, errors.Wrap(err, "error reading body")
		}
		payload = body
	}
	if len(payload) == 0 {
		return nil, errors.New("error empty payload")
	}
	return payload, nil
}

// pushEventRepo extracts the owner login and name of the repository a push payload describes.
func pushEventRepo(payload []byte) (ownerLogin string, repoName string, err error) {
	event, err := github.ParseWebHook("push", payload)
	if err != nil {
		return "", "", errors.Wrap(err, "error parsing push payload")
	}
	push, ok := event.(*github.PushEvent)
	if !ok || push.GetRepo() == nil {
		return "", "", errors.New("error push payload has no repository")
	}
	repo := push.GetRepo()
	repoName = repo.GetName()
	if owner := repo.GetOwner(); owner != nil {
		ownerLogin = owner.GetLogin()
		if ownerLogin == "" {
			ownerLogin = owner.GetName()
		}
	}
	if (ownerLogin == "" || repoName == "") && strings.Count(repo.GetFullName(), "/") == 1 {
		parts := strings.SplitN(repo.GetFullName(), "/", 2)
		ownerLogin, repoName = parts[0], parts[1]
	}
	if ownerLogin == "" || repoName == "" {
		return "", "", errors.New("error push payload does not name its repository")
	}
	return ownerLogin, repoName, nil
}
