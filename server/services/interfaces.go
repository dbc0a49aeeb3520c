package services

import (
	"context"

	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

type AuthorizationService interface {
	// ResolveIdentity builds the identity for a session's account. A missing account, or any store
	// failure, degrades to the anonymous identity rather than returning an error.
	ResolveIdentity(ctx context.Context, accountID models.AccountID) *models.Identity
	// ResolveEffectivePrivileges returns the set of privileges the account holds directly or through
	// any group it is a member of.
	ResolveEffectivePrivileges(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID) (models.PrivilegeSet, error)
	// HasPermission returns true if the identity satisfies the permission.
	HasPermission(identity *models.Identity, permission models.Permission) bool
	// Require returns nil if the identity satisfies the permission, gerror.ErrUnauthorized if the
	// identity is anonymous and gerror.ErrForbidden otherwise.
	Require(identity *models.Identity, permission models.Permission) error
	// GetOrCreatePrivilege returns the privilege with the specified name, creating it if it does not exist.
	GetOrCreatePrivilege(ctx context.Context, txOrNil *store.Tx, named models.NamedPrivilege) (*models.Privilege, error)
	// PersistIdentityNeeds grants the account each action need of the identity as a direct privilege.
	// Type and role needs are not persisted.
	PersistIdentityNeeds(ctx context.Context, txOrNil *store.Tx, identity *models.Identity) error
	// GrantPrivilege grants a privilege directly to an account, creating the privilege if required.
	GrantPrivilege(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID, name models.PrivilegeName) (*models.Grant, error)
	// GrantGroupPrivilege grants a privilege to every member of a group, creating the privilege if required.
	GrantGroupPrivilege(ctx context.Context, txOrNil *store.Tx, groupID models.GroupID, name models.PrivilegeName) (*models.Grant, error)
	// RevokePrivilege idempotently removes a direct grant of a privilege from an account.
	RevokePrivilege(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID, name models.PrivilegeName) error
}

type AccountService interface {
	// SignIn creates or refreshes the account for the authenticated provider user, storing the new
	// access token and recording the sign-in time.
	SignIn(ctx context.Context, txOrNil *store.Tx, accessToken string, user *models.ProviderUser) (*models.Account, error)
	// Read an existing account, looking it up by ID.
	// Returns models.ErrNotFound if the account does not exist.
	Read(ctx context.Context, txOrNil *store.Tx, id models.AccountID) (*models.Account, error)
	// ReadByLogin reads an existing account, looking it up by its provider login.
	// Returns models.ErrNotFound if the account does not exist.
	ReadByLogin(ctx context.Context, txOrNil *store.Tx, login string) (*models.Account, error)
	// UpdatePreferences sets the account's locale and timezone. Empty values are left unchanged.
	// Returns gerror.ErrValidationFailed if the timezone is unknown.
	UpdatePreferences(ctx context.Context, txOrNil *store.Tx, id models.AccountID, locale string, timezone string) (*models.Account, error)
	// RegenerateHooksToken replaces the account's hooks token, invalidating any hook URL built on the old one.
	RegenerateHooksToken(ctx context.Context, txOrNil *store.Tx, id models.AccountID) (*models.Account, error)
}

type GroupService interface {
	// Create a new group. Returns gerror.ErrAlreadyExists if a group with the same name already exists.
	Create(ctx context.Context, txOrNil *store.Tx, name models.GroupName, description string) (*models.Group, error)
	// ReadByName reads an existing group, looking it up by name.
	// Returns models.ErrNotFound if the group does not exist.
	ReadByName(ctx context.Context, txOrNil *store.Tx, name models.GroupName) (*models.Group, error)
	// List all groups. Use cursor to page through results, if any.
	List(ctx context.Context, txOrNil *store.Tx, pagination models.Pagination) ([]*models.Group, *models.Cursor, error)
	// AddMember adds an account to a group. This method is idempotent.
	AddMember(ctx context.Context, txOrNil *store.Tx, groupID models.GroupID, accountID models.AccountID) error
	// RemoveMember removes an account from a group. This method is idempotent.
	RemoveMember(ctx context.Context, txOrNil *store.Tx, groupID models.GroupID, accountID models.AccountID) error
	// ListForAccount lists every group the account is a member of.
	ListForAccount(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID) ([]*models.Group, error)
}

type RepoService interface {
	// ReadManaged reads a repo from the account's managed set.
	// Returns gerror.ErrNotFound if the repo does not exist or the account does not administer it.
	ReadManaged(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID, id models.RepoID) (*models.Repo, error)
	// SearchManaged lists the account's managed repos that match filter.
	// Use cursor to page through results, if any.
	SearchManaged(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID, filter models.RepoFilter, pagination models.Pagination) ([]*models.Repo, *models.Cursor, error)
}

type SyncService interface {
	// SyncAccount reconciles the account's organizations, organization repos and personal repos against
	// the provider. Each organization, and the personal repos, commit in their own transaction; a
	// provider failure stops the sync and is reported in the result alongside the work already committed.
	// Returns gerror.ErrSyncInProgress if another sync of the same account is running.
	SyncAccount(ctx context.Context, accountID models.AccountID) (*models.SyncResult, error)
}

type HookService interface {
	// ApplySelection makes the set of the account's managed repos with an active hook of the specified
	// kind equal to desired, disabling hooks before enabling them. A provider failure stops the batch
	// and is reported in the result; repos already processed keep their new state.
	ApplySelection(ctx context.Context, accountID models.AccountID, kind models.HookKind, desired []models.RepoID) (*models.HookResult, error)
	// EnableHook ensures exactly one app hook of the specified kind exists on the repo, then marks it active.
	EnableHook(ctx context.Context, account *models.Account, kind models.HookKind, repo *models.Repo) error
	// DisableHook deletes every app hook of the specified kind on the repo, then marks it inactive.
	DisableHook(ctx context.Context, account *models.Account, kind models.HookKind, repo *models.Repo) error
	// CallbackURL returns the URL the provider delivers hooks of the specified kind to, for
	// a repo managed by the account.
	CallbackURL(ctx context.Context, kind models.HookKind, account *models.Account, repo *models.Repo) (string, error)
	// ResolveInboundTarget validates the address an inbound hook payload was delivered to. organizationLogin
	// is empty for personal repos. Every mismatch returns the same gerror.ErrNotFound.
	ResolveInboundTarget(ctx context.Context, kind models.HookKind, login string, organizationLogin string, repoName string) (*models.InboundHookTarget, error)
	// ResolveInboundTokenTarget validates a push payload delivered to an account's hooks token URL.
	// repoName is taken from the payload. Every mismatch returns the same gerror.ErrNotFound.
	ResolveInboundTokenTarget(ctx context.Context, token string, ownerLogin string, repoName string) (*models.InboundHookTarget, error)
	// HandleInboundPayload accepts a validated hook payload.
	HandleInboundPayload(ctx context.Context, target *models.InboundHookTarget, payload []byte) error
}

type AuthenticationService interface {
	// NewOAuthState returns a fresh random state value to bind an OAuth redirect to the session that started it.
	NewOAuthState() string
	// AuthCodeURL returns the provider URL to redirect the user to in order to sign in.
	AuthCodeURL(state string) string
	// AuthenticateWithCode exchanges an OAuth authorization code for an access token, reads the
	// authenticated user from the provider and signs the user in, creating their account if required.
	AuthenticateWithCode(ctx context.Context, code string) (*models.Account, error)
}
