package groups

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

func init() {
	_ = models.MutableResource(&models.Group{})
	store.MustDBModel(&models.Group{})
}

type GroupStore struct {
	table *store.ResourceTable
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *GroupStore {
	return &GroupStore{
		table: store.NewResourceTableWithTableName(db, logFactory, "access_control_groups", &models.Group{}),
	}
}

// Create a new access control Group.
// Returns store.ErrAlreadyExists if a group with the same name already exists.
func (d *GroupStore) Create(ctx context.Context, txOrNil *store.Tx, group *models.Group) error {
	return d.table.Create(ctx, txOrNil, group)
}

// Read an existing access control Group, looking it up by ResourceID.
// Returns models.ErrNotFound if the Group does not exist.
func (d *GroupStore) Read(ctx context.Context, txOrNil *store.Tx, id models.GroupID) (*models.Group, error) {
	group := &models.Group{}
	err := d.table.ReadByID(ctx, txOrNil, id.ResourceID, group)
	if err != nil {
		return nil, err
	}
	return group, nil
}

// ReadByName reads an existing access control Group, looking it up by group name.
// Returns models.ErrNotFound if the group does not exist.
func (d *GroupStore) ReadByName(ctx context.Context, txOrNil *store.Tx, name models.GroupName) (*models.Group, error) {
	group := &models.Group{}
	err := d.table.ReadWhere(ctx, txOrNil, group, goqu.Ex{"access_control_group_name": name})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// FindOrCreate finds and returns the access control Group with the name specified in the supplied group data.
// If no such group exists then a new group is created and returned, and true is returned for 'created'.
func (d *GroupStore) FindOrCreate(ctx context.Context, txOrNil *store.Tx, groupData *models.Group) (group *models.Group, created bool, err error) {
	resource, created, err := d.table.FindOrCreate(ctx, txOrNil,
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			return d.ReadByName(ctx, tx, groupData.Name)
		},
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			err := d.table.Create(ctx, tx, groupData)
			return groupData, err
		},
	)
	if err != nil {
		return nil, false, err
	}
	return resource.(*models.Group), created, nil
}

// List returns every group, newest first. Use cursor to page through results, if any.
func (d *GroupStore) List(ctx context.Context, txOrNil *store.Tx, pagination models.Pagination) ([]*models.Group, *models.Cursor, error) {
	groupsSelect := d.table.Dialect().From(d.table.TableName()).Select(&models.Group{})
	var groups []*models.Group
	cursor, err := d.table.ListIn(ctx, txOrNil, &groups, pagination, groupsSelect)
	if err != nil {
		return nil, nil, err
	}
	return groups, cursor, nil
}

// ListForAccount lists every group the account is a member of, oldest first.
func (d *GroupStore) ListForAccount(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID) ([]*models.Group, error) {
	groupsSelect := d.table.Dialect().From(d.table.TableName()).Select(&models.Group{}).
		Join(goqu.T("access_control_group_memberships"),
			goqu.On(goqu.Ex{"access_control_groups.access_control_group_id": goqu.I("access_control_group_memberships.access_control_group_membership_group_id")})).
		Where(goqu.Ex{"access_control_group_membership_account_id": accountID})
	var groups []*models.Group
	err := d.table.ListWhere(ctx, txOrNil, &groups, groupsSelect)
	if err != nil {
		return nil, err
	}
	return groups, nil
}
