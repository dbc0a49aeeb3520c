package models

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

const RepoResourceKind ResourceKind = "repo"

type RepoID struct {
	ResourceID
}

func NewRepoID() RepoID {
	return RepoID{ResourceID: NewResourceID(RepoResourceKind)}
}

func RepoIDFromResourceID(id ResourceID) RepoID {
	return RepoID{ResourceID: id}
}

type RepoMetadata struct {
	ID        RepoID `json:"id" goqu:"skipupdate" db:"repo_id"`
	CreatedAt Time   `json:"created_at" goqu:"skipupdate" db:"repo_created_at"`
	UpdatedAt Time   `json:"updated_at" db:"repo_updated_at"`
	ETag      ETag   `json:"etag" db:"repo_etag" hash:"ignore"`
}

// Repo is a provider repository. It is owned by at most one of an account (personal repo) or an
// organization; a repo unlinked from its owner during a sync keeps its row with neither set.
type Repo struct {
	RepoMetadata
	ProviderID ProviderID `json:"provider_id" db:"repo_provider_id"`
	Name       string     `json:"name" db:"repo_name"`
	// OwnerLogin is the provider login of the user or organization the repo lives under.
	OwnerLogin  string `json:"owner_login" db:"repo_owner_login"`
	URL         string `json:"url" db:"repo_url"`
	Description string `json:"description" db:"repo_description"`
	Fork        bool   `json:"fork" db:"repo_fork"`
	Private     bool   `json:"private" db:"repo_private"`
	PushActive  bool   `json:"push_active" db:"repo_push_active"`
	PullActive  bool   `json:"pull_active" db:"repo_pull_active"`
	// OwnerAccountID is set for personal repos.
	OwnerAccountID AccountID `json:"owner_account_id" db:"repo_owner_account_id"`
	// OrganizationID is set for organization repos.
	OrganizationID OrganizationID `json:"organization_id" db:"repo_organization_id"`
}

// NewRepoFromProvider creates a local repo for a repo seen upstream. Hooks are never enabled
// on creation.
func NewRepoFromProvider(now Time, repo *ProviderRepo) *Repo {
	r := &Repo{
		RepoMetadata: RepoMetadata{
			ID:        NewRepoID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ProviderID: repo.ID,
	}
	r.ApplyProvider(repo)
	return r
}

// ApplyProvider copies the mutable upstream attributes onto the repo, returning true if anything changed.
func (m *Repo) ApplyProvider(repo *ProviderRepo) bool {
	changed := m.Name != repo.Name ||
		m.OwnerLogin != repo.OwnerLogin ||
		m.URL != repo.URL ||
		m.Description != repo.Description ||
		m.Fork != repo.Fork ||
		m.Private != repo.Private
	m.Name = repo.Name
	m.OwnerLogin = repo.OwnerLogin
	m.URL = repo.URL
	m.Description = repo.Description
	m.Fork = repo.Fork
	m.Private = repo.Private
	return changed
}

// HookActive returns the local activation flag for the specified kind of hook.
func (m *Repo) HookActive(kind HookKind) bool {
	switch kind {
	case HookKindPush:
		return m.PushActive
	case HookKindPull:
		return m.PullActive
	}
	return false
}

func (m *Repo) SetHookActive(kind HookKind, active bool) {
	switch kind {
	case HookKindPush:
		m.PushActive = active
	case HookKindPull:
		m.PullActive = active
	}
}

// IsOrganizationRepo returns true if the repo is currently owned by an organization.
func (m *Repo) IsOrganizationRepo() bool {
	return m.OrganizationID.Valid()
}

func (m *Repo) GetKind() ResourceKind {
	return RepoResourceKind
}

func (m *Repo) GetID() ResourceID {
	return m.ID.ResourceID
}

func (m *Repo) GetCreatedAt() Time {
	return m.CreatedAt
}

func (m *Repo) GetUpdatedAt() Time {
	return m.UpdatedAt
}

func (m *Repo) SetUpdatedAt(t Time) {
	m.UpdatedAt = t
}

func (m *Repo) GetETag() ETag {
	return m.ETag
}

func (m *Repo) SetETag(eTag ETag) {
	m.ETag = eTag
}

func (m *Repo) Validate() error {
	var result *multierror.Error
	if !m.ID.Valid() {
		result = multierror.Append(result, errors.New("error id must be set"))
	}
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	if m.UpdatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error updated at must be set"))
	}
	if !m.ProviderID.Valid() {
		result = multierror.Append(result, errors.New("error provider id must be set"))
	}
	if m.Name == "" {
		result = multierror.Append(result, errors.New("error name must be set"))
	}
	if m.OwnerAccountID.Valid() && m.OrganizationID.Valid() {
		result = multierror.Append(result, errors.New("error repo cannot be owned by both an account and an organization"))
	}
	return result.ErrorOrNil()
}

// RepoFilter narrows repo listings by hook activation state. Nil fields are not filtered on.
type RepoFilter struct {
	PushActive *bool
	PullActive *bool
}

// HookActiveFilter returns a filter matching repos whose flag for kind equals active.
func HookActiveFilter(kind HookKind, active bool) RepoFilter {
	switch kind {
	case HookKindPush:
		return RepoFilter{PushActive: &active}
	case HookKindPull:
		return RepoFilter{PullActive: &active}
	}
	return RepoFilter{}
}
