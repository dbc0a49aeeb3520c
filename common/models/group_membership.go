package models

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

const GroupMembershipResourceKind ResourceKind = "group-membership"

type GroupMembershipID struct {
	ResourceID
}

func NewGroupMembershipID() GroupMembershipID {
	return GroupMembershipID{ResourceID: NewResourceID(GroupMembershipResourceKind)}
}

func GroupMembershipIDFromResourceID(id ResourceID) GroupMembershipID {
	return GroupMembershipID{ResourceID: id}
}

type GroupMembership struct {
	ID        GroupMembershipID `json:"id" goqu:"skipupdate" db:"access_control_group_membership_id"`
	CreatedAt Time              `json:"created_at" goqu:"skipupdate" db:"access_control_group_membership_created_at"`
	GroupID   GroupID           `json:"group_id" db:"access_control_group_membership_group_id"`
	AccountID AccountID         `json:"account_id" db:"access_control_group_membership_account_id"`
}

func NewGroupMembership(now Time, groupID GroupID, accountID AccountID) *GroupMembership {
	return &GroupMembership{
		ID:        NewGroupMembershipID(),
		CreatedAt: now,
		GroupID:   groupID,
		AccountID: accountID,
	}
}

func (m *GroupMembership) GetKind() ResourceKind {
	return GroupMembershipResourceKind
}

func (m *GroupMembership) GetCreatedAt() Time {
	return m.CreatedAt
}

func (m *GroupMembership) GetID() ResourceID {
	return m.ID.ResourceID
}

func (m *GroupMembership) Validate() error {
	var result *multierror.Error
	if !m.ID.Valid() {
		result = multierror.Append(result, errors.New("error id must be set"))
	}
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	if !m.GroupID.Valid() {
		result = multierror.Append(result, errors.New("error group id must be set"))
	}
	if !m.AccountID.Valid() {
		result = multierror.Append(result, errors.New("error account id must be set"))
	}
	return result.ErrorOrNil()
}
