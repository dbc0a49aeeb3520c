package repos

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

func init() {
	_ = models.MutableResource(&models.Repo{})
	store.MustDBModel(&models.Repo{})
}

type RepoStore struct {
	table *store.ResourceTable
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *RepoStore {
	return &RepoStore{
		table: store.NewResourceTable(db, logFactory, &models.Repo{}),
	}
}

// Create a new repo.
// Returns store.ErrAlreadyExists if a repo with the same provider id already exists.
func (d *RepoStore) Create(ctx context.Context, txOrNil *store.Tx, repo *models.Repo) error {
	return d.table.Create(ctx, txOrNil, repo)
}

// Read an existing repo, looking it up by ResourceID.
// Returns models.ErrNotFound if the repo does not exist.
func (d *RepoStore) Read(ctx context.Context, txOrNil *store.Tx, id models.RepoID) (*models.Repo, error) {
	repo := &models.Repo{}
	err := d.table.ReadByID(ctx, txOrNil, id.ResourceID, repo)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// ReadByProviderID reads an existing repo, looking it up by its provider id.
// Returns models.ErrNotFound if the repo does not exist.
func (d *RepoStore) ReadByProviderID(ctx context.Context, txOrNil *store.Tx, providerID models.ProviderID) (*models.Repo, error) {
	repo := &models.Repo{}
	err := d.table.ReadWhere(ctx, txOrNil, repo, goqu.Ex{"repo_provider_id": providerID})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// ReadByOwnerAndName reads the repo with the specified name, owned either by the account (when
// organizationID is zero) or by the organization.
// Returns models.ErrNotFound if the repo does not exist.
func (d *RepoStore) ReadByOwnerAndName(
	ctx context.Context,
	txOrNil *store.Tx,
	accountID models.AccountID,
	organizationID models.OrganizationID,
	name string,
) (*models.Repo, error) {
	repo := &models.Repo{}
	whereClause := goqu.Ex{"repo_name": name}
	if organizationID.Valid() {
		whereClause["repo_organization_id"] = organizationID
	} else {
		whereClause["repo_owner_account_id"] = accountID
	}
	err := d.table.ReadWhere(ctx, txOrNil, repo, whereClause)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// Update an existing repo with optimistic locking. Overrides all previous values using the supplied model.
// Returns store.ErrOptimisticLockFailed if there is an optimistic lock mismatch.
func (d *RepoStore) Update(ctx context.Context, txOrNil *store.Tx, repo *models.Repo) error {
	return d.table.UpdateByID(ctx, txOrNil, repo)
}

// ListForOrganization lists every repo owned by the organization, oldest first.
func (d *RepoStore) ListForOrganization(ctx context.Context, txOrNil *store.Tx, organizationID models.OrganizationID) ([]*models.Repo, error) {
	reposSelect := d.table.Dialect().From(d.table.TableName()).Select(&models.Repo{}).
		Where(goqu.Ex{"repo_organization_id": organizationID})
	var repos []*models.Repo
	err := d.table.ListWhere(ctx, txOrNil, &repos, reposSelect)
	if err != nil {
		return nil, err
	}
	return repos, nil
}

// ListOwnedByAccount lists every personal repo owned by the account, oldest first.
func (d *RepoStore) ListOwnedByAccount(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID) ([]*models.Repo, error) {
	reposSelect := d.table.Dialect().From(d.table.TableName()).Select(&models.Repo{}).
		Where(goqu.Ex{"repo_owner_account_id": accountID})
	var repos []*models.Repo
	err := d.table.ListWhere(ctx, txOrNil, &repos, reposSelect)
	if err != nil {
		return nil, err
	}
	return repos, nil
}

// ListManagedByAccount lists every repo the account administers that matches filter, oldest first.
func (d *RepoStore) ListManagedByAccount(
	ctx context.Context,
	txOrNil *store.Tx,
	accountID models.AccountID,
	filter models.RepoFilter,
) ([]*models.Repo, error) {
	var repos []*models.Repo
	err := d.table.ListWhere(ctx, txOrNil, &repos, d.managedSelect(accountID, filter))
	if err != nil {
		return nil, err
	}
	return repos, nil
}

// SearchManagedByAccount lists repos the account administers that match filter, newest first.
// Use cursor to page through results, if any.
func (d *RepoStore) SearchManagedByAccount(
	ctx context.Context,
	txOrNil *store.Tx,
	accountID models.AccountID,
	filter models.RepoFilter,
	pagination models.Pagination,
) ([]*models.Repo, *models.Cursor, error) {
	var repos []*models.Repo
	cursor, err := d.table.ListIn(ctx, txOrNil, &repos, pagination, d.managedSelect(accountID, filter))
	if err != nil {
		return nil, nil, err
	}
	return repos, cursor, nil
}

func (d *RepoStore) managedSelect(accountID models.AccountID, filter models.RepoFilter) *goqu.SelectDataset {
	reposSelect := d.table.Dialect().From(d.table.TableName()).Select(&models.Repo{}).
		Join(goqu.T("repo_administrators"),
			goqu.On(goqu.Ex{"repos.repo_id": goqu.I("repo_administrators.repo_administrator_repo_id")})).
		Where(goqu.Ex{"repo_administrator_account_id": accountID})
	if filter.PushActive != nil {
		reposSelect = reposSelect.Where(goqu.Ex{"repo_push_active": *filter.PushActive})
	}
	if filter.PullActive != nil {
		reposSelect = reposSelect.Where(goqu.Ex{"repo_pull_active": *filter.PullActive})
	}
	return reposSelect
}
