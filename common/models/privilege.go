package models

import (
	"errors"
	"regexp"

	"github.com/hashicorp/go-multierror"
)

const PrivilegeResourceKind ResourceKind = "privilege"

var privilegeNameRegex = regexp.MustCompile("^[a-z0-9_.-]{1,64}$")

type PrivilegeID struct {
	ResourceID
}

func NewPrivilegeID() PrivilegeID {
	return PrivilegeID{ResourceID: NewResourceID(PrivilegeResourceKind)}
}

func PrivilegeIDFromResourceID(id ResourceID) PrivilegeID {
	return PrivilegeID{ResourceID: id}
}

// PrivilegeName names a capability e.g. "administrator".
type PrivilegeName string

func (p PrivilegeName) String() string {
	return string(p)
}

func (p PrivilegeName) Validate() error {
	if !privilegeNameRegex.MatchString(string(p)) {
		return errors.New("error privilege name must be 1-64 lowercase letters, digits, '.', '_' or '-'")
	}
	return nil
}

// NamedPrivilege is anything that carries a privilege name, such as a Privilege row.
type NamedPrivilege interface {
	GetPrivilegeName() PrivilegeName
}

func (p PrivilegeName) GetPrivilegeName() PrivilegeName {
	return p
}

// PrivilegeSet is a set of privilege names; membership is counted once regardless of how
// many grants provide it.
type PrivilegeSet map[PrivilegeName]struct{}

func NewPrivilegeSet(names ...PrivilegeName) PrivilegeSet {
	s := make(PrivilegeSet, len(names))
	for _, name := range names {
		s[name] = struct{}{}
	}
	return s
}

func (s PrivilegeSet) Has(name PrivilegeName) bool {
	_, ok := s[name]
	return ok
}

func (s PrivilegeSet) Add(name PrivilegeName) {
	s[name] = struct{}{}
}

type Privilege struct {
	ID        PrivilegeID   `json:"id" goqu:"skipupdate" db:"access_control_privilege_id"`
	CreatedAt Time          `json:"created_at" goqu:"skipupdate" db:"access_control_privilege_created_at"`
	Name      PrivilegeName `json:"name" db:"access_control_privilege_name"`
}

func NewPrivilege(now Time, name PrivilegeName) *Privilege {
	return &Privilege{
		ID:        NewPrivilegeID(),
		CreatedAt: now,
		Name:      name,
	}
}

func (m *Privilege) GetKind() ResourceKind {
	return PrivilegeResourceKind
}

func (m *Privilege) GetID() ResourceID {
	return m.ID.ResourceID
}

func (m *Privilege) GetCreatedAt() Time {
	return m.CreatedAt
}

func (m *Privilege) GetPrivilegeName() PrivilegeName {
	return m.Name
}

func (m *Privilege) Validate() error {
	var result *multierror.Error
	if !m.ID.Valid() {
		result = multierror.Append(result, errors.New("error id must be set"))
	}
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	if err := m.Name.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
