package models

import (
	"fmt"
	"strings"
)

type PermissionKind string

const (
	// PermissionKindPrivilege requires one named privilege.
	PermissionKindPrivilege PermissionKind = "privilege"
	// PermissionKindAnyOf requires at least one of a list of privileges.
	PermissionKindAnyOf PermissionKind = "any-of"
	// PermissionKindAuthenticated requires any identity resolved from a valid session.
	PermissionKindAuthenticated PermissionKind = "authenticated"
	// PermissionKindAnonymous is always satisfied.
	PermissionKindAnonymous PermissionKind = "anonymous"
)

// Permission is a requirement checked against an identity before an operation runs.
type Permission struct {
	Kind       PermissionKind
	Privileges []PrivilegeName
}

var (
	AnonymousPermission     = Permission{Kind: PermissionKindAnonymous}
	AuthenticatedPermission = Permission{Kind: PermissionKindAuthenticated}
)

func RequirePrivilege(name PrivilegeName) Permission {
	return Permission{Kind: PermissionKindPrivilege, Privileges: []PrivilegeName{name}}
}

func RequireAnyOf(names ...PrivilegeName) Permission {
	return Permission{Kind: PermissionKindAnyOf, Privileges: names}
}

func (p Permission) String() string {
	switch p.Kind {
	case PermissionKindPrivilege, PermissionKindAnyOf:
		names := make([]string, len(p.Privileges))
		for i, name := range p.Privileges {
			names[i] = name.String()
		}
		return fmt.Sprintf("%s(%s)", p.Kind, strings.Join(names, ","))
	}
	return string(p.Kind)
}
