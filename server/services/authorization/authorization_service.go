package authorization

import (
	"context"
	"fmt"
	"sort"

	"github.com/benbjohnson/clock"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

type AuthorizationService struct {
	db                 *store.DB
	clock              clock.Clock
	accountStore       store.AccountStore
	privilegeStore     store.PrivilegeStore
	grantStore         store.GrantStore
	authorizationStore store.AuthorizationStore
	logger.Log
}

func NewAuthorizationService(
	db *store.DB,
	clk clock.Clock,
	accountStore store.AccountStore,
	privilegeStore store.PrivilegeStore,
	grantStore store.GrantStore,
	authorizationStore store.AuthorizationStore,
	logFactory logger.LogFactory,
) *AuthorizationService {
	return &AuthorizationService{
		db:                 db,
		clock:              clk,
		accountStore:       accountStore,
		privilegeStore:     privilegeStore,
		grantStore:         grantStore,
		authorizationStore: authorizationStore,
		Log:                logFactory("AuthorizationService"),
	}
}

// ResolveIdentity builds the identity for a session's account. A missing account, or any store
// failure, degrades to the anonymous identity rather than returning an error.
func (s *AuthorizationService) ResolveIdentity(ctx context.Context, accountID models.AccountID) *models.Identity {
	if !accountID.Valid() {
		return models.NewAnonymousIdentity()
	}
	account, err := s.accountStore.Read(ctx, nil, accountID)
	if err != nil {
		if !gerror.IsNotFound(err) {
			s.Warnf("Unable to load account %s, continuing as anonymous: %v", accountID, err)
		}
		return models.NewAnonymousIdentity()
	}
	direct, err := s.authorizationStore.ListDirectPrivilegeNames(ctx, nil, accountID)
	if err != nil {
		s.Warnf("Unable to load privileges for account %s, continuing as anonymous: %v", accountID, err)
		return models.NewAnonymousIdentity()
	}
	inherited, err := s.authorizationStore.ListInheritedPrivilegeNames(ctx, nil, accountID)
	if err != nil {
		s.Warnf("Unable to load group privileges for account %s, continuing as anonymous: %v", accountID, err)
		return models.NewAnonymousIdentity()
	}
	return models.NewAccountIdentity(account, direct, inherited)
}

// ResolveEffectivePrivileges returns the set of privileges the account holds directly or through
// any group it is a member of.
func (s *AuthorizationService) ResolveEffectivePrivileges(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID) (models.PrivilegeSet, error) {
	names, err := s.authorizationStore.ListEffectivePrivilegeNames(ctx, txOrNil, accountID)
	if err != nil {
		return nil, fmt.Errorf("error listing effective privileges: %w", err)
	}
	return models.NewPrivilegeSet(names...), nil
}

func (s *AuthorizationService) HasPermission(identity *models.Identity, permission models.Permission) bool {
	switch permission.Kind {
	case models.PermissionKindAnonymous:
		return true
	case models.PermissionKindAuthenticated:
		return identity.IsAuthenticated()
	case models.PermissionKindPrivilege, models.PermissionKindAnyOf:
		if identity.IsAnonymous() {
			return false
		}
		for _, name := range permission.Privileges {
			if identity.HasPrivilege(name) {
				return true
			}
		}
		return false
	}
	s.Warnf("Unknown permission kind %q; denying", permission.Kind)
	return false
}

func (s *AuthorizationService) Require(identity *models.Identity, permission models.Permission) error {
	if s.HasPermission(identity, permission) {
		return nil
	}
	if identity.IsAnonymous() {
		return gerror.NewErrUnauthorized("Authentication required")
	}
	s.Infof("DENIED account %s: requires %s", identity.AccountID(), permission)
	return gerror.NewErrForbidden("You do not have permission to perform this operation").
		IDetail("permission", permission.String())
}

// GetOrCreatePrivilege returns the stored privilege with the name of named, creating it if it does not
// exist. A *models.Privilege is looked up by its name too, whatever its ID.
func (s *AuthorizationService) GetOrCreatePrivilege(ctx context.Context, txOrNil *store.Tx, named models.NamedPrivilege) (*models.Privilege, error) {
	name := named.GetPrivilegeName()
	if err := name.Validate(); err != nil {
		return nil, gerror.NewErrValidationFailed(err.Error())
	}
	privilege, created, err := s.privilegeStore.FindOrCreate(ctx, txOrNil, models.NewPrivilege(models.NewTime(s.clock.Now()), name))
	if err != nil {
		return nil, fmt.Errorf("error finding or creating privilege %q: %w", name, err)
	}
	if created {
		s.Infof("Created privilege %q", name)
	}
	return privilege, nil
}

// PersistIdentityNeeds grants the account each action need of the identity as a direct privilege.
// Type and role needs are not persisted.
func (s *AuthorizationService) PersistIdentityNeeds(ctx context.Context, txOrNil *store.Tx, identity *models.Identity) error {
	if identity.IsAnonymous() {
		return nil
	}
	needs := identity.ActionNeeds()
	if len(needs) == 0 {
		return nil
	}
	// Sort so concurrent saves of the same identity create privileges in the same order
	sort.Slice(needs, func(i, j int) bool { return needs[i].Name < needs[j].Name })
	return s.db.WithTx(ctx, txOrNil, func(tx *store.Tx) error {
		for _, need := range needs {
			_, err := s.grantToAccount(ctx, tx, identity.Account.ID, models.PrivilegeName(need.Name))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *AuthorizationService) GrantPrivilege(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID, name models.PrivilegeName) (*models.Grant, error) {
	var grant *models.Grant
	err := s.db.WithTx(ctx, txOrNil, func(tx *store.Tx) error {
		var err error
		grant, err = s.grantToAccount(ctx, tx, accountID, name)
		return err
	})
	return grant, err
}

func (s *AuthorizationService) GrantGroupPrivilege(ctx context.Context, txOrNil *store.Tx, groupID models.GroupID, name models.PrivilegeName) (*models.Grant, error) {
	var grant *models.Grant
	err := s.db.WithTx(ctx, txOrNil, func(tx *store.Tx) error {
		privilege, err := s.GetOrCreatePrivilege(ctx, tx, name)
		if err != nil {
			return err
		}
		var created bool
		grant, created, err = s.grantStore.FindOrCreate(ctx, tx, models.NewGroupGrant(models.NewTime(s.clock.Now()), privilege.ID, groupID))
		if err != nil {
			return fmt.Errorf("error granting %q to group %s: %w", name, groupID, err)
		}
		if created {
			s.Infof("Granted %q to group %s", name, groupID)
		}
		return nil
	})
	return grant, err
}

func (s *AuthorizationService) RevokePrivilege(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID, name models.PrivilegeName) error {
	return s.db.WithTx(ctx, txOrNil, func(tx *store.Tx) error {
		privilege, err := s.privilegeStore.ReadByName(ctx, tx, name)
		if err != nil {
			if gerror.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("error reading privilege %q: %w", name, err)
		}
		grant, err := s.grantStore.ReadByAuthorizedAccount(ctx, tx, privilege.ID, accountID)
		if err != nil {
			if gerror.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("error reading grant: %w", err)
		}
		s.Infof("Revoked %q from account %s", name, accountID)
		return s.grantStore.Delete(ctx, tx, grant.ID)
	})
}

func (s *AuthorizationService) grantToAccount(ctx context.Context, tx *store.Tx, accountID models.AccountID, name models.PrivilegeName) (*models.Grant, error) {
	privilege, err := s.GetOrCreatePrivilege(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	grant, created, err := s.grantStore.FindOrCreate(ctx, tx, models.NewAccountGrant(models.NewTime(s.clock.Now()), privilege.ID, accountID))
	if err != nil {
		return nil, fmt.Errorf("error granting %q to account %s: %w", name, accountID, err)
	}
	if created {
		s.Infof("Granted %q to account %s", name, accountID)
	}
	return grant, nil
}
