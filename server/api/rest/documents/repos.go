package documents

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/api/rest/routes"
)

type Repo struct {
	resourceLink

	ID        models.RepoID `json:"id"`
	CreatedAt models.Time   `json:"created_at"`
	UpdatedAt models.Time   `json:"updated_at"`
	ETag      models.ETag   `json:"etag" hash:"ignore"`

	ProviderID     models.ProviderID     `json:"provider_id"`
	Name           string                `json:"name"`
	OwnerLogin     string                `json:"owner_login"`
	Link           string                `json:"link"`
	Description    string                `json:"description"`
	Fork           bool                  `json:"fork"`
	Private        bool                  `json:"private"`
	PushActive     bool                  `json:"push_active"`
	PullActive     bool                  `json:"pull_active"`
	OwnerAccountID models.AccountID      `json:"owner_account_id"`
	OrganizationID models.OrganizationID `json:"organization_id"`
}

func MakeRepo(rctx routes.RequestContext, repo *models.Repo) *Repo {
	return &Repo{
		resourceLink: resourceLink{
			URL: routes.MakeRepoLink(rctx, repo.ID),
		},

		ID:        repo.ID,
		CreatedAt: repo.CreatedAt,
		UpdatedAt: repo.UpdatedAt,
		ETag:      repo.ETag,

		ProviderID:     repo.ProviderID,
		Name:           repo.Name,
		OwnerLogin:     repo.OwnerLogin,
		Link:           repo.URL,
		Description:    repo.Description,
		Fork:           repo.Fork,
		Private:        repo.Private,
		PushActive:     repo.PushActive,
		PullActive:     repo.PullActive,
		OwnerAccountID: repo.OwnerAccountID,
		OrganizationID: repo.OrganizationID,
	}
}

func MakeRepos(rctx routes.RequestContext, repos []*models.Repo) []*Repo {
	docs := make([]*Repo, 0, len(repos))
	for _, model := range repos {
		docs = append(docs, MakeRepo(rctx, model))
	}
	return docs
}

func (d *Repo) GetID() models.ResourceID {
	return d.ID.ResourceID
}

func (d *Repo) GetKind() models.ResourceKind {
	return models.RepoResourceKind
}

func (d *Repo) GetCreatedAt() models.Time {
	return d.CreatedAt
}

// PostRepoHooksRequest is the desired set of managed repos with an active hook, per kind.
// A nil list leaves that kind unchanged; an empty list disables every hook of that kind.
type PostRepoHooksRequest struct {
	PushActive []models.RepoID `json:"push_active"`
	PullActive []models.RepoID `json:"pull_active"`
}

func (d *PostRepoHooksRequest) Bind(r *http.Request) error {
	if d.PushActive == nil && d.PullActive == nil {
		return gerror.NewErrValidationFailed("One of push_active or pull_active must be specified")
	}
	return nil
}

// Selections returns the desired selection for each kind included in the request.
func (d *PostRepoHooksRequest) Selections() map[models.HookKind][]models.RepoID {
	selections := make(map[models.HookKind][]models.RepoID)
	if d.PushActive != nil {
		selections[models.HookKindPush] = d.PushActive
	}
	if d.PullActive != nil {
		selections[models.HookKindPull] = d.PullActive
	}
	return selections
}

// FromForm reads the request from a submitted HTML form. Each kind is a repeated field of repo ids.
// Browsers omit unchecked boxes, so a form always carries the full selection for both kinds.
func (d *PostRepoHooksRequest) FromForm(r *http.Request) error {
	err := r.ParseForm()
	if err != nil {
		return gerror.NewErrValidationFailed("Invalid form").Wrap(err)
	}
	d.PushActive, err = parseRepoIDs(r.PostForm["push_active"])
	if err != nil {
		return err
	}
	d.PullActive, err = parseRepoIDs(r.PostForm["pull_active"])
	if err != nil {
		return err
	}
	return nil
}

func parseRepoIDs(values []string) ([]models.RepoID, error) {
	ids := make([]models.RepoID, 0, len(values))
	for _, value := range values {
		id, err := models.ParseResourceID(value)
		if err != nil {
			return nil, gerror.NewErrValidationFailed("Invalid repo id").Wrap(err)
		}
		if id.Kind != models.RepoResourceKind {
			return nil, gerror.NewErrValidationFailed("Invalid repo id").Wrap(errors.Errorf("error unexpected kind %q", id.Kind))
		}
		ids = append(ids, models.RepoIDFromResourceID(id))
	}
	return ids, nil
}

// PostRepoHooksResponse holds one result per kind that was applied.
type PostRepoHooksResponse struct {
	Push *models.HookResult `json:"push,omitempty"`
	Pull *models.HookResult `json:"pull,omitempty"`
}

// PartiallyApplied returns true if either kind stopped before completing.
func (d *PostRepoHooksResponse) PartiallyApplied() bool {
	return (d.Push != nil && d.Push.IsPartial()) || (d.Pull != nil && d.Pull.IsPartial())
}
