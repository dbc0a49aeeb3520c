package grants

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

func init() {
	store.MustDBModel(&models.Grant{})
}

type GrantStore struct {
	table *store.ResourceTable
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *GrantStore {
	return &GrantStore{
		table: store.NewResourceTableWithTableName(db, logFactory, "access_control_grants", &models.Grant{}),
	}
}

// ReadByAuthorizedAccount reads the direct grant of a privilege to an account.
// Returns models.ErrNotFound if the grant does not exist.
func (d *GrantStore) ReadByAuthorizedAccount(
	ctx context.Context,
	txOrNil *store.Tx,
	privilegeID models.PrivilegeID,
	accountID models.AccountID,
) (*models.Grant, error) {
	grant := &models.Grant{}
	err := d.table.ReadWhere(ctx, txOrNil, grant, goqu.Ex{
		"access_control_grant_privilege_id":          privilegeID,
		"access_control_grant_authorized_account_id": accountID,
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// ReadByAuthorizedGroup reads the grant of a privilege to a group.
// Returns models.ErrNotFound if the grant does not exist.
func (d *GrantStore) ReadByAuthorizedGroup(
	ctx context.Context,
	txOrNil *store.Tx,
	privilegeID models.PrivilegeID,
	groupID models.GroupID,
) (*models.Grant, error) {
	grant := &models.Grant{}
	err := d.table.ReadWhere(ctx, txOrNil, grant, goqu.Ex{
		"access_control_grant_privilege_id":        privilegeID,
		"access_control_grant_authorized_group_id": groupID,
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// Delete permanently and idempotently deletes a grant, identifying it by id.
func (d *GrantStore) Delete(ctx context.Context, txOrNil *store.Tx, id models.GrantID) error {
	d.table.Infof("Removing grant with ID %s", id)
	return d.table.DeleteByID(ctx, txOrNil, id.ResourceID)
}

// FindOrCreate finds and returns the grant of the privilege to the account or group in the supplied
// grant data. If no such grant exists then a new one is created and returned, and true is returned
// for 'created'.
func (d *GrantStore) FindOrCreate(ctx context.Context, txOrNil *store.Tx, grantData *models.Grant) (grant *models.Grant, created bool, err error) {
	resource, created, err := d.table.FindOrCreate(ctx, txOrNil,
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			if grantData.IsDirect() {
				return d.ReadByAuthorizedAccount(ctx, tx, grantData.PrivilegeID, grantData.AuthorizedAccountID)
			}
			return d.ReadByAuthorizedGroup(ctx, tx, grantData.PrivilegeID, grantData.AuthorizedGroupID)
		},
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			d.table.Infof("Creating grant of privilege %s to %s%s",
				grantData.PrivilegeID, grantData.AuthorizedAccountID, grantData.AuthorizedGroupID)
			err := d.table.Create(ctx, tx, grantData)
			return grantData, err
		},
	)
	if err != nil {
		return nil, false, err
	}
	return resource.(*models.Grant), created, nil
}
