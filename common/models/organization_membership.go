package models

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

const OrganizationMembershipResourceKind ResourceKind = "organization-membership"

type OrganizationMembershipID struct {
	ResourceID
}

func NewOrganizationMembershipID() OrganizationMembershipID {
	return OrganizationMembershipID{ResourceID: NewResourceID(OrganizationMembershipResourceKind)}
}

func OrganizationMembershipIDFromResourceID(id ResourceID) OrganizationMembershipID {
	return OrganizationMembershipID{ResourceID: id}
}

// OrganizationMembership records that an account is a member of an organization at the provider.
type OrganizationMembership struct {
	ID             OrganizationMembershipID `json:"id" goqu:"skipupdate" db:"organization_membership_id"`
	CreatedAt      Time                     `json:"created_at" goqu:"skipupdate" db:"organization_membership_created_at"`
	OrganizationID OrganizationID           `json:"organization_id" db:"organization_membership_organization_id"`
	AccountID      AccountID                `json:"account_id" db:"organization_membership_account_id"`
	// IsAdmin is the account's admin bit for the organization as last reported by the provider.
	IsAdmin bool `json:"is_admin" db:"organization_membership_is_admin"`
}

func NewOrganizationMembership(now Time, organizationID OrganizationID, accountID AccountID, isAdmin bool) *OrganizationMembership {
	return &OrganizationMembership{
		ID:             NewOrganizationMembershipID(),
		CreatedAt:      now,
		OrganizationID: organizationID,
		AccountID:      accountID,
		IsAdmin:        isAdmin,
	}
}

func (m *OrganizationMembership) GetKind() ResourceKind {
	return OrganizationMembershipResourceKind
}

func (m *OrganizationMembership) GetCreatedAt() Time {
	return m.CreatedAt
}

func (m *OrganizationMembership) GetID() ResourceID {
	return m.ID.ResourceID
}

func (m *OrganizationMembership) Validate() error {
	var result *multierror.Error
	if !m.ID.Valid() {
		result = multierror.Append(result, errors.New("error id must be set"))
	}
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	if !m.OrganizationID.Valid() {
		result = multierror.Append(result, errors.New("error organization id must be set"))
	}
	if !m.AccountID.Valid() {
		result = multierror.Append(result, errors.New("error account id must be set"))
	}
	return result.ErrorOrNil()
}
