package models

type NeedKind string

const (
	// NeedKindType is satisfied by the kind of identity e.g. "authenticated".
	NeedKindType NeedKind = "type"
	// NeedKindAction is a privilege held directly by the account.
	NeedKindAction NeedKind = "action"
	// NeedKindRole is a privilege inherited through a group.
	NeedKindRole NeedKind = "role"
)

const AuthenticatedNeedName = "authenticated"

// Need is a single capability an identity provides.
type Need struct {
	Kind NeedKind
	Name string
}

// Identity is the request-scoped view of who is making a request. An anonymous identity has no account.
type Identity struct {
	Account    *Account
	Privileges PrivilegeSet
	Needs      []Need
}

func NewAnonymousIdentity() *Identity {
	return &Identity{Privileges: NewPrivilegeSet()}
}

// NewAccountIdentity returns the identity for an account, given its direct and group-inherited privilege names.
func NewAccountIdentity(account *Account, direct []PrivilegeName, inherited []PrivilegeName) *Identity {
	identity := &Identity{
		Account:    account,
		Privileges: NewPrivilegeSet(),
		Needs:      []Need{{Kind: NeedKindType, Name: AuthenticatedNeedName}},
	}
	for _, name := range direct {
		identity.AddNeed(Need{Kind: NeedKindAction, Name: name.String()})
	}
	for _, name := range inherited {
		identity.AddNeed(Need{Kind: NeedKindRole, Name: name.String()})
	}
	return identity
}

// AddNeed adds a need to the identity if not already present. Action and role needs also add
// the privilege to the effective set.
func (i *Identity) AddNeed(need Need) {
	for _, n := range i.Needs {
		if n == need {
			return
		}
	}
	i.Needs = append(i.Needs, need)
	if need.Kind == NeedKindAction || need.Kind == NeedKindRole {
		i.Privileges.Add(PrivilegeName(need.Name))
	}
}

func (i *Identity) IsAnonymous() bool {
	return i == nil || i.Account == nil
}

func (i *Identity) IsAuthenticated() bool {
	return !i.IsAnonymous()
}

// AccountID returns the id of the identity's account, or a zero id for anonymous identities.
func (i *Identity) AccountID() AccountID {
	if i.IsAnonymous() {
		return AccountID{}
	}
	return i.Account.ID
}

// HasPrivilege returns true if the privilege is in the identity's effective set.
func (i *Identity) HasPrivilege(name PrivilegeName) bool {
	if i == nil {
		return false
	}
	return i.Privileges.Has(name)
}

// ActionNeeds returns the needs that correspond to direct account privileges.
func (i *Identity) ActionNeeds() []Need {
	var needs []Need
	for _, n := range i.Needs {
		if n.Kind == NeedKindAction {
			needs = append(needs, n)
		}
	}
	return needs
}
