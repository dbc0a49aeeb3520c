package models

import (
	"errors"

	"github.com/hashicorp/go-multierror"
)

const GroupResourceKind ResourceKind = "group"

type GroupID struct {
	ResourceID
}

func NewGroupID() GroupID {
	return GroupID{ResourceID: NewResourceID(GroupResourceKind)}
}

func GroupIDFromResourceID(id ResourceID) GroupID {
	return GroupID{ResourceID: id}
}

type GroupName string

func (n GroupName) String() string {
	return string(n)
}

type GroupMetadata struct {
	ID        GroupID `json:"id" goqu:"skipupdate" db:"access_control_group_id"`
	CreatedAt Time    `json:"created_at" goqu:"skipupdate" db:"access_control_group_created_at"`
	UpdatedAt Time    `json:"updated_at" db:"access_control_group_updated_at"`
	ETag      ETag    `json:"etag" db:"access_control_group_etag" hash:"ignore"`
}

// Group is a named bundle of privileges. Members of a group hold every privilege granted to it.
type Group struct {
	GroupMetadata
	Name        GroupName `json:"name" db:"access_control_group_name"`
	Description string    `json:"description" db:"access_control_group_description"`
	// IsInternal is true for groups seeded by migrations that users cannot modify.
	IsInternal bool `json:"is_internal" db:"access_control_group_is_internal"`
}

func NewGroup(now Time, name GroupName, description string, internal bool) *Group {
	return &Group{
		GroupMetadata: GroupMetadata{
			ID:        NewGroupID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        name,
		Description: description,
		IsInternal:  internal,
	}
}

func (m *Group) GetID() ResourceID {
	return m.ID.ResourceID
}

func (m *Group) GetKind() ResourceKind {
	return GroupResourceKind
}

func (m *Group) GetCreatedAt() Time {
	return m.CreatedAt
}

func (m *Group) GetUpdatedAt() Time {
	return m.UpdatedAt
}

func (m *Group) SetUpdatedAt(t Time) {
	m.UpdatedAt = t
}

func (m *Group) GetETag() ETag {
	return m.ETag
}

func (m *Group) SetETag(eTag ETag) {
	m.ETag = eTag
}

func (m *Group) Validate() error {
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
	if m.Name == "" {
		result = multierror.Append(result, errors.New("error name must be set"))
	}
	return result.ErrorOrNil()
}

// StandardGroupDefinition describes a group seeded into every database along with its privilege.
type StandardGroupDefinition struct {
	Name        GroupName
	Description string
	Privilege   PrivilegeName
}

var (
	AdministratorPrivilege PrivilegeName = "administrator"
	ManagerPrivilege       PrivilegeName = "manager"

	AdministratorsStandardGroup = &StandardGroupDefinition{
		Name:        "Administrators",
		Description: "Administrators can manage every account, group and repository.",
		Privilege:   AdministratorPrivilege,
	}
	ManagersStandardGroup = &StandardGroupDefinition{
		Name:        "Managers",
		Description: "Managers can manage groups and their members.",
		Privilege:   ManagerPrivilege,
	}

	StandardGroups = []*StandardGroupDefinition{AdministratorsStandardGroup, ManagersStandardGroup}
)

func IsStandardGroupName(name GroupName) bool {
	for _, def := range StandardGroups {
		if def.Name == name {
			return true
		}
	}
	return false
}
