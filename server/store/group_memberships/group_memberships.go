package group_memberships

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

func init() {
	store.MustDBModel(&models.GroupMembership{})
}

type GroupMembershipStore struct {
	table *store.ResourceTable
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *GroupMembershipStore {
	return &GroupMembershipStore{
		table: store.NewResourceTableWithTableName(db, logFactory, "access_control_group_memberships", &models.GroupMembership{}),
	}
}

// ReadByMember reads an existing access control group membership, looking it up by group and member account.
// Returns models.ErrNotFound if the group membership does not exist.
func (d *GroupMembershipStore) ReadByMember(
	ctx context.Context,
	txOrNil *store.Tx,
	groupID models.GroupID,
	accountID models.AccountID,
) (*models.GroupMembership, error) {
	membership := &models.GroupMembership{}
	whereClause := goqu.Ex{
		"access_control_group_membership_group_id":   groupID,
		"access_control_group_membership_account_id": accountID,
	}
	err := d.table.ReadWhere(ctx, txOrNil, membership, whereClause)
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// FindOrCreate finds and returns the group membership with the group and account specified in the
// supplied membership data. If no such membership exists then a new one is created and returned, and
// true is returned for 'created'.
func (d *GroupMembershipStore) FindOrCreate(
	ctx context.Context,
	txOrNil *store.Tx,
	membershipData *models.GroupMembership,
) (membership *models.GroupMembership, created bool, err error) {
	resource, created, err := d.table.FindOrCreate(ctx, txOrNil,
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			return d.ReadByMember(ctx, tx, membershipData.GroupID, membershipData.AccountID)
		},
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			err := d.table.Create(ctx, tx, membershipData)
			return membershipData, err
		},
	)
	if err != nil {
		return nil, false, err
	}
	return resource.(*models.GroupMembership), created, nil
}

// DeleteByMember removes an account from a group by deleting the relevant membership record.
// This method is idempotent.
func (d *GroupMembershipStore) DeleteByMember(
	ctx context.Context,
	txOrNil *store.Tx,
	groupID models.GroupID,
	accountID models.AccountID,
) error {
	return d.table.DeleteWhere(ctx, txOrNil,
		goqu.Ex{
			"access_control_group_membership_group_id":   groupID,
			"access_control_group_membership_account_id": accountID,
		})
}
