package repo_administrators

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

func init() {
	store.MustDBModel(&models.RepoAdministrator{})
}

type RepoAdministratorStore struct {
	table *store.ResourceTable
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *RepoAdministratorStore {
	return &RepoAdministratorStore{
		table: store.NewResourceTable(db, logFactory, &models.RepoAdministrator{}),
	}
}

func (d *RepoAdministratorStore) readByAdministrator(
	ctx context.Context,
	txOrNil *store.Tx,
	repoID models.RepoID,
	accountID models.AccountID,
) (*models.RepoAdministrator, error) {
	administrator := &models.RepoAdministrator{}
	whereClause := goqu.Ex{
		"repo_administrator_repo_id":    repoID,
		"repo_administrator_account_id": accountID,
	}
	err := d.table.ReadWhere(ctx, txOrNil, administrator, whereClause)
	if err != nil {
		return nil, err
	}
	return administrator, nil
}

// FindOrCreate adds a repo to an account's managed set if not already present.
// Returns true iff a new record was created.
func (d *RepoAdministratorStore) FindOrCreate(
	ctx context.Context,
	txOrNil *store.Tx,
	administratorData *models.RepoAdministrator,
) (administrator *models.RepoAdministrator, created bool, err error) {
	resource, created, err := d.table.FindOrCreate(ctx, txOrNil,
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			return d.readByAdministrator(ctx, tx, administratorData.RepoID, administratorData.AccountID)
		},
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			err := d.table.Create(ctx, tx, administratorData)
			return administratorData, err
		},
	)
	if err != nil {
		return nil, false, err
	}
	return resource.(*models.RepoAdministrator), created, nil
}

// IsAdministrator returns true if the repo is in the account's managed set.
func (d *RepoAdministratorStore) IsAdministrator(ctx context.Context, txOrNil *store.Tx, repoID models.RepoID, accountID models.AccountID) (bool, error) {
	_, err := d.readByAdministrator(ctx, txOrNil, repoID, accountID)
	if err != nil {
		if gerror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteByAdministrator removes a repo from an account's managed set. This method is idempotent.
func (d *RepoAdministratorStore) DeleteByAdministrator(ctx context.Context, txOrNil *store.Tx, repoID models.RepoID, accountID models.AccountID) error {
	return d.table.DeleteWhere(ctx, txOrNil,
		goqu.Ex{
			"repo_administrator_repo_id":    repoID,
			"repo_administrator_account_id": accountID,
		})
}
