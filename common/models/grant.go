package models

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

const GrantResourceKind ResourceKind = "grant"

type GrantID struct {
	ResourceID
}

func NewGrantID() GrantID {
	return GrantID{ResourceID: NewResourceID(GrantResourceKind)}
}

func GrantIDFromResourceID(id ResourceID) GrantID {
	return GrantID{ResourceID: id}
}

// Grant gives a privilege to exactly one of an account (a direct grant) or a group.
type Grant struct {
	ID          GrantID     `json:"id" goqu:"skipupdate" db:"access_control_grant_id"`
	CreatedAt   Time        `json:"created_at" goqu:"skipupdate" db:"access_control_grant_created_at"`
	PrivilegeID PrivilegeID `json:"privilege_id" db:"access_control_grant_privilege_id"`
	// AuthorizedAccountID is set for direct grants.
	AuthorizedAccountID AccountID `json:"authorized_account_id" db:"access_control_grant_authorized_account_id"`
	// AuthorizedGroupID is set for grants to every member of a group.
	AuthorizedGroupID GroupID `json:"authorized_group_id" db:"access_control_grant_authorized_group_id"`
}

func NewAccountGrant(now Time, privilegeID PrivilegeID, accountID AccountID) *Grant {
	return &Grant{
		ID:                  NewGrantID(),
		CreatedAt:           now,
		PrivilegeID:         privilegeID,
		AuthorizedAccountID: accountID,
	}
}

func NewGroupGrant(now Time, privilegeID PrivilegeID, groupID GroupID) *Grant {
	return &Grant{
		ID:                NewGrantID(),
		CreatedAt:         now,
		PrivilegeID:       privilegeID,
		AuthorizedGroupID: groupID,
	}
}

func (m *Grant) GetCreatedAt() Time {
	return m.CreatedAt
}

func (m *Grant) GetID() ResourceID {
	return m.ID.ResourceID
}

func (m *Grant) GetKind() ResourceKind {
	return GrantResourceKind
}

// IsDirect returns true if the grant is to a specific account rather than a group.
func (m *Grant) IsDirect() bool {
	return m.AuthorizedAccountID.Valid()
}

func (m *Grant) Validate() error {
	var result *multierror.Error
	if !m.ID.Valid() {
		result = multierror.Append(result, errors.New("error id must be set"))
	}
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	if !m.PrivilegeID.Valid() {
		result = multierror.Append(result, errors.New("error privilege id must be set"))
	}
	if m.AuthorizedAccountID.Valid() == m.AuthorizedGroupID.Valid() {
		result = multierror.Append(result, errors.New("error exactly one of authorized account id or group id must be set"))
	}
	return result.ErrorOrNil()
}
