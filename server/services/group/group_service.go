package group

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

type GroupService struct {
	db                   *store.DB
	clock                clock.Clock
	groupStore           store.GroupStore
	groupMembershipStore store.GroupMembershipStore
	logger.Log
}

func NewGroupService(
	db *store.DB,
	clk clock.Clock,
	groupStore store.GroupStore,
	groupMembershipStore store.GroupMembershipStore,
	logFactory logger.LogFactory,
) *GroupService {
	return &GroupService{
		db:                   db,
		clock:                clk,
		groupStore:           groupStore,
		groupMembershipStore: groupMembershipStore,
		Log:                  logFactory("GroupService"),
	}
}

// Create a new group. Returns gerror.ErrAlreadyExists if a group with the same name already exists.
func (s *GroupService) Create(ctx context.Context, txOrNil *store.Tx, name models.GroupName, description string) (*models.Group, error) {
	if name == "" {
		return nil, gerror.NewErrValidationFailed("Group name must be set")
	}
	group := models.NewGroup(models.NewTime(s.clock.Now()), name, description, false)
	err := s.groupStore.Create(ctx, txOrNil, group)
	if err != nil {
		return nil, fmt.Errorf("error creating group %q: %w", name, err)
	}
	s.Infof("Created group %q", name)
	return group, nil
}

// ReadByName reads an existing group, looking it up by name.
// Returns models.ErrNotFound if the group does not exist.
func (s *GroupService) ReadByName(ctx context.Context, txOrNil *store.Tx, name models.GroupName) (*models.Group, error) {
	return s.groupStore.ReadByName(ctx, txOrNil, name)
}

func (s *GroupService) List(ctx context.Context, txOrNil *store.Tx, pagination models.Pagination) ([]*models.Group, *models.Cursor, error) {
	return s.groupStore.List(ctx, txOrNil, pagination)
}

// AddMember adds an account to a group. This method is idempotent.
func (s *GroupService) AddMember(ctx context.Context, txOrNil *store.Tx, groupID models.GroupID, accountID models.AccountID) error {
	membership := models.NewGroupMembership(models.NewTime(s.clock.Now()), groupID, accountID)
	_, created, err := s.groupMembershipStore.FindOrCreate(ctx, txOrNil, membership)
	if err != nil {
		return fmt.Errorf("error adding account %s to group %s: %w", accountID, groupID, err)
	}
	if created {
		s.Infof("Added account %s to group %s", accountID, groupID)
	}
	return nil
}

// RemoveMember removes an account from a group. This method is idempotent.
func (s *GroupService) RemoveMember(ctx context.Context, txOrNil *store.Tx, groupID models.GroupID, accountID models.AccountID) error {
	err := s.groupMembershipStore.DeleteByMember(ctx, txOrNil, groupID, accountID)
	if err != nil {
		return fmt.Errorf("error removing account %s from group %s: %w", accountID, groupID, err)
	}
	return nil
}

func (s *GroupService) ListForAccount(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID) ([]*models.Group, error) {
	return s.groupStore.ListForAccount(ctx, txOrNil, accountID)
}
