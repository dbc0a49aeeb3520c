package models

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

const RepoAdministratorResourceKind ResourceKind = "repo-administrator"

type RepoAdministratorID struct {
	ResourceID
}

func NewRepoAdministratorID() RepoAdministratorID {
	return RepoAdministratorID{ResourceID: NewResourceID(RepoAdministratorResourceKind)}
}

func RepoAdministratorIDFromResourceID(id ResourceID) RepoAdministratorID {
	return RepoAdministratorID{ResourceID: id}
}

// RepoAdministrator puts a repo into an account's managed set, allowing the account to toggle its hooks.
type RepoAdministrator struct {
	ID        RepoAdministratorID `json:"id" goqu:"skipupdate" db:"repo_administrator_id"`
	CreatedAt Time                `json:"created_at" goqu:"skipupdate" db:"repo_administrator_created_at"`
	RepoID    RepoID              `json:"repo_id" db:"repo_administrator_repo_id"`
	AccountID AccountID           `json:"account_id" db:"repo_administrator_account_id"`
}

func NewRepoAdministrator(now Time, repoID RepoID, accountID AccountID) *RepoAdministrator {
	return &RepoAdministrator{
		ID:        NewRepoAdministratorID(),
		CreatedAt: now,
		RepoID:    repoID,
		AccountID: accountID,
	}
}

func (m *RepoAdministrator) GetKind() ResourceKind {
	return RepoAdministratorResourceKind
}

func (m *RepoAdministrator) GetCreatedAt() Time {
	return m.CreatedAt
}

func (m *RepoAdministrator) GetID() ResourceID {
	return m.ID.ResourceID
}

func (m *RepoAdministrator) Validate() error {
	var result *multierror.Error
	if !m.ID.Valid() {
		result = multierror.Append(result, errors.New("error id must be set"))
	}
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	if !m.RepoID.Valid() {
		result = multierror.Append(result, errors.New("error repo id must be set"))
	}
	if !m.AccountID.Valid() {
		result = multierror.Append(result, errors.New("error account id must be set"))
	}
	return result.ErrorOrNil()
}
