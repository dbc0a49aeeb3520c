package models

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

const OrganizationResourceKind ResourceKind = "organization"

type OrganizationID struct {
	ResourceID
}

func NewOrganizationID() OrganizationID {
	return OrganizationID{ResourceID: NewResourceID(OrganizationResourceKind)}
}

func OrganizationIDFromResourceID(id ResourceID) OrganizationID {
	return OrganizationID{ResourceID: id}
}

type OrganizationMetadata struct {
	ID        OrganizationID `json:"id" goqu:"skipupdate" db:"organization_id"`
	CreatedAt Time           `json:"created_at" goqu:"skipupdate" db:"organization_created_at"`
	UpdatedAt Time           `json:"updated_at" db:"organization_updated_at"`
	ETag      ETag           `json:"etag" db:"organization_etag" hash:"ignore"`
}

type Organization struct {
	OrganizationMetadata
	ProviderID ProviderID `json:"provider_id" db:"organization_provider_id"`
	Name       string     `json:"name" db:"organization_name"`
	Login      string     `json:"login" db:"organization_login"`
	AvatarURL  string     `json:"avatar_url" db:"organization_avatar_url"`
}

// NewOrganizationFromProvider creates a local organization record for an organization seen upstream.
func NewOrganizationFromProvider(now Time, org *ProviderOrganization) *Organization {
	o := &Organization{
		OrganizationMetadata: OrganizationMetadata{
			ID:        NewOrganizationID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	o.ApplyProvider(org)
	return o
}

// ApplyProvider copies the mutable upstream attributes onto the organization, returning true
// if anything changed.
func (m *Organization) ApplyProvider(org *ProviderOrganization) bool {
	changed := m.ProviderID != org.ID || m.Name != org.Name || m.Login != org.Login || m.AvatarURL != org.AvatarURL
	m.ProviderID = org.ID
	m.Name = org.Name
	m.Login = org.Login
	m.AvatarURL = org.AvatarURL
	return changed
}

func (m *Organization) GetKind() ResourceKind {
	return OrganizationResourceKind
}

func (m *Organization) GetID() ResourceID {
	return m.ID.ResourceID
}

func (m *Organization) GetCreatedAt() Time {
	return m.CreatedAt
}

func (m *Organization) GetUpdatedAt() Time {
	return m.UpdatedAt
}

func (m *Organization) SetUpdatedAt(t Time) {
	m.UpdatedAt = t
}

func (m *Organization) GetETag() ETag {
	return m.ETag
}

func (m *Organization) SetETag(eTag ETag) {
	m.ETag = eTag
}

func (m *Organization) Validate() error {
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
	if m.Login == "" {
		result = multierror.Append(result, errors.New("error login must be set"))
	}
	return result.ErrorOrNil()
}
