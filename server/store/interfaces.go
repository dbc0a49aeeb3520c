package store

import (
	"context"

	"github.com/vmware-archive/salt-ci/common/models"
)

type AccountStore interface {
	// Create a new account.
	// Returns store.ErrAlreadyExists if an account with the same provider id already exists.
	Create(ctx context.Context, txOrNil *Tx, account *models.Account) error
	// Read an existing account, looking it up by ID.
	// Returns models.ErrNotFound if the account does not exist.
	Read(ctx context.Context, txOrNil *Tx, id models.AccountID) (*models.Account, error)
	// ReadByProviderID reads an existing account, looking it up by its provider id.
	// Returns models.ErrNotFound if the account does not exist.
	ReadByProviderID(ctx context.Context, txOrNil *Tx, providerID models.ProviderID) (*models.Account, error)
	// ReadByLogin reads an existing account, looking it up by its provider login.
	// Returns models.ErrNotFound if the account does not exist.
	ReadByLogin(ctx context.Context, txOrNil *Tx, login string) (*models.Account, error)
	// ReadByHooksToken reads an existing account, looking it up by its hooks token.
	// Returns models.ErrNotFound if the account does not exist.
	ReadByHooksToken(ctx context.Context, txOrNil *Tx, token string) (*models.Account, error)
	// Update an existing account with optimistic locking. Overrides all previous values using the supplied model.
	// Returns store.ErrOptimisticLockFailed if there is an optimistic lock mismatch.
	Update(ctx context.Context, txOrNil *Tx, account *models.Account) error
	// Upsert creates the account if no account with the same provider id exists, otherwise it updates
	// the existing account's provider attributes and access token. The supplied model is updated to
	// reflect the row as stored. Returns true,false if created and false,true if updated.
	Upsert(ctx context.Context, txOrNil *Tx, account *models.Account) (created bool, updated bool, err error)
	// AcquireSyncLease takes the account's sync lease until expiresAt, provided no other unexpired
	// lease is held at now. Returns gerror.ErrSyncInProgress if the lease is held.
	AcquireSyncLease(ctx context.Context, txOrNil *Tx, id models.AccountID, now models.Time, expiresAt models.Time) error
	// ReleaseSyncLease releases the account's sync lease. This method is idempotent.
	ReleaseSyncLease(ctx context.Context, txOrNil *Tx, id models.AccountID) error
}

type PrivilegeStore interface {
	// Create a new privilege.
	// Returns store.ErrAlreadyExists if a privilege with the same name already exists.
	Create(ctx context.Context, txOrNil *Tx, privilege *models.Privilege) error
	// Read an existing privilege, looking it up by ID.
	Read(ctx context.Context, txOrNil *Tx, id models.PrivilegeID) (*models.Privilege, error)
	// ReadByName reads an existing privilege, looking it up by name.
	// Returns models.ErrNotFound if the privilege does not exist.
	ReadByName(ctx context.Context, txOrNil *Tx, name models.PrivilegeName) (*models.Privilege, error)
	// FindOrCreate reads the privilege with the specified name, creating it if it does not exist.
	// Safe against a concurrent create of the same name. Returns true iff a new privilege was created.
	FindOrCreate(ctx context.Context, txOrNil *Tx, privilegeData *models.Privilege) (privilege *models.Privilege, created bool, err error)
}

type GroupStore interface {
	// Create a new group.
	// Returns store.ErrAlreadyExists if a group with the same name already exists.
	Create(ctx context.Context, txOrNil *Tx, group *models.Group) error
	// Read an existing group, looking it up by ID.
	Read(ctx context.Context, txOrNil *Tx, id models.GroupID) (*models.Group, error)
	// ReadByName reads an existing group, looking it up by name.
	// Returns models.ErrNotFound if the group does not exist.
	ReadByName(ctx context.Context, txOrNil *Tx, name models.GroupName) (*models.Group, error)
	// FindOrCreate reads the group with the specified name, creating it if it does not exist.
	FindOrCreate(ctx context.Context, txOrNil *Tx, groupData *models.Group) (group *models.Group, created bool, err error)
	// List all groups. Use cursor to page through results, if any.
	List(ctx context.Context, txOrNil *Tx, pagination models.Pagination) ([]*models.Group, *models.Cursor, error)
	// ListForAccount lists every group the account is a member of.
	ListForAccount(ctx context.Context, txOrNil *Tx, accountID models.AccountID) ([]*models.Group, error)
}

type GroupMembershipStore interface {
	// ReadByMember reads the membership of an account in a group.
	// Returns models.ErrNotFound if the account is not a member.
	ReadByMember(ctx context.Context, txOrNil *Tx, groupID models.GroupID, accountID models.AccountID) (*models.GroupMembership, error)
	// FindOrCreate adds an account to a group if not already a member.
	// Returns true iff a new membership was created.
	FindOrCreate(ctx context.Context, txOrNil *Tx, membershipData *models.GroupMembership) (membership *models.GroupMembership, created bool, err error)
	// DeleteByMember removes an account from a group. This method is idempotent.
	DeleteByMember(ctx context.Context, txOrNil *Tx, groupID models.GroupID, accountID models.AccountID) error
}

type GrantStore interface {
	// FindOrCreate creates a grant if no grant of the same privilege to the same account or group exists.
	// Returns true iff a new grant was created.
	FindOrCreate(ctx context.Context, txOrNil *Tx, grantData *models.Grant) (grant *models.Grant, created bool, err error)
	// ReadByAuthorizedAccount reads the direct grant of a privilege to an account.
	// Returns models.ErrNotFound if there is no such grant.
	ReadByAuthorizedAccount(ctx context.Context, txOrNil *Tx, privilegeID models.PrivilegeID, accountID models.AccountID) (*models.Grant, error)
	// ReadByAuthorizedGroup reads the grant of a privilege to a group.
	// Returns models.ErrNotFound if there is no such grant.
	ReadByAuthorizedGroup(ctx context.Context, txOrNil *Tx, privilegeID models.PrivilegeID, groupID models.GroupID) (*models.Grant, error)
	// Delete permanently and idempotently deletes a grant.
	Delete(ctx context.Context, txOrNil *Tx, id models.GrantID) error
}

type AuthorizationStore interface {
	// ListDirectPrivilegeNames lists the names of privileges granted directly to the account.
	ListDirectPrivilegeNames(ctx context.Context, txOrNil *Tx, accountID models.AccountID) ([]models.PrivilegeName, error)
	// ListInheritedPrivilegeNames lists the names of privileges granted to any group the account is a member of.
	ListInheritedPrivilegeNames(ctx context.Context, txOrNil *Tx, accountID models.AccountID) ([]models.PrivilegeName, error)
	// ListEffectivePrivilegeNames lists the distinct names of every privilege the account holds
	// directly or through a group, in name order.
	ListEffectivePrivilegeNames(ctx context.Context, txOrNil *Tx, accountID models.AccountID) ([]models.PrivilegeName, error)
}

type OrganizationStore interface {
	// Create a new organization.
	// Returns store.ErrAlreadyExists if an organization with the same provider id or login already exists.
	Create(ctx context.Context, txOrNil *Tx, organization *models.Organization) error
	// Read an existing organization, looking it up by ID.
	Read(ctx context.Context, txOrNil *Tx, id models.OrganizationID) (*models.Organization, error)
	// ReadByProviderID reads an existing organization, looking it up by its provider id.
	// Returns models.ErrNotFound if the organization does not exist.
	ReadByProviderID(ctx context.Context, txOrNil *Tx, providerID models.ProviderID) (*models.Organization, error)
	// ReadByLogin reads an existing organization, looking it up by its provider login.
	// Returns models.ErrNotFound if the organization does not exist.
	ReadByLogin(ctx context.Context, txOrNil *Tx, login string) (*models.Organization, error)
	// Update an existing organization with optimistic locking.
	// Returns store.ErrOptimisticLockFailed if there is an optimistic lock mismatch.
	Update(ctx context.Context, txOrNil *Tx, organization *models.Organization) error
	// ListForAccount lists every organization the account is a member of.
	ListForAccount(ctx context.Context, txOrNil *Tx, accountID models.AccountID) ([]*models.Organization, error)
}

type OrganizationMembershipStore interface {
	// ReadByMember reads the membership of an account in an organization.
	// Returns models.ErrNotFound if the account is not a member.
	ReadByMember(ctx context.Context, txOrNil *Tx, organizationID models.OrganizationID, accountID models.AccountID) (*models.OrganizationMembership, error)
	// FindOrCreate adds an account to an organization if not already a member.
	// Returns true iff a new membership was created.
	FindOrCreate(ctx context.Context, txOrNil *Tx, membershipData *models.OrganizationMembership) (membership *models.OrganizationMembership, created bool, err error)
	// Update an existing membership, overriding all previous values using the supplied model.
	Update(ctx context.Context, txOrNil *Tx, membership *models.OrganizationMembership) error
	// DeleteByMember removes an account from an organization. This method is idempotent.
	DeleteByMember(ctx context.Context, txOrNil *Tx, organizationID models.OrganizationID, accountID models.AccountID) error
}

type RepoStore interface {
	// Create a new repo.
	// Returns store.ErrAlreadyExists if a repo with the same provider id already exists.
	Create(ctx context.Context, txOrNil *Tx, repo *models.Repo) error
	// Read an existing repo, looking it up by ID.
	// Returns models.ErrNotFound if the repo does not exist.
	Read(ctx context.Context, txOrNil *Tx, id models.RepoID) (*models.Repo, error)
	// ReadByProviderID reads an existing repo, looking it up by its provider id.
	// Returns models.ErrNotFound if the repo does not exist.
	ReadByProviderID(ctx context.Context, txOrNil *Tx, providerID models.ProviderID) (*models.Repo, error)
	// ReadByOwnerAndName reads the repo with the specified name, owned either by the account (when
	// organizationID is zero) or by the organization.
	// Returns models.ErrNotFound if the repo does not exist.
	ReadByOwnerAndName(ctx context.Context, txOrNil *Tx, accountID models.AccountID, organizationID models.OrganizationID, name string) (*models.Repo, error)
	// Update an existing repo with optimistic locking. Overrides all previous values using the supplied model.
	// Returns store.ErrOptimisticLockFailed if there is an optimistic lock mismatch.
	Update(ctx context.Context, txOrNil *Tx, repo *models.Repo) error
	// ListForOrganization lists every repo owned by the organization.
	ListForOrganization(ctx context.Context, txOrNil *Tx, organizationID models.OrganizationID) ([]*models.Repo, error)
	// ListOwnedByAccount lists every personal repo owned by the account.
	ListOwnedByAccount(ctx context.Context, txOrNil *Tx, accountID models.AccountID) ([]*models.Repo, error)
	// ListManagedByAccount lists every repo the account administers that matches filter.
	ListManagedByAccount(ctx context.Context, txOrNil *Tx, accountID models.AccountID, filter models.RepoFilter) ([]*models.Repo, error)
	// SearchManagedByAccount is ListManagedByAccount with pagination. Use cursor to page through results, if any.
	SearchManagedByAccount(ctx context.Context, txOrNil *Tx, accountID models.AccountID, filter models.RepoFilter, pagination models.Pagination) ([]*models.Repo, *models.Cursor, error)
}

type RepoAdministratorStore interface {
	// FindOrCreate adds a repo to an account's managed set if not already present.
	// Returns true iff a new record was created.
	FindOrCreate(ctx context.Context, txOrNil *Tx, administratorData *models.RepoAdministrator) (administrator *models.RepoAdministrator, created bool, err error)
	// IsAdministrator returns true if the repo is in the account's managed set.
	IsAdministrator(ctx context.Context, txOrNil *Tx, repoID models.RepoID, accountID models.AccountID) (bool, error)
	// DeleteByAdministrator removes a repo from an account's managed set. This method is idempotent.
	DeleteByAdministrator(ctx context.Context, txOrNil *Tx, repoID models.RepoID, accountID models.AccountID) error
}
