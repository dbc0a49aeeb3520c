package organizations

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

func init() {
	_ = models.MutableResource(&models.Organization{})
	store.MustDBModel(&models.Organization{})
}

type OrganizationStore struct {
	table *store.ResourceTable
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *OrganizationStore {
	return &OrganizationStore{
		table: store.NewResourceTable(db, logFactory, &models.Organization{}),
	}
}

// Create a new organization.
// Returns store.ErrAlreadyExists if an organization with the same provider id or login already exists.
func (d *OrganizationStore) Create(ctx context.Context, txOrNil *store.Tx, organization *models.Organization) error {
	return d.table.Create(ctx, txOrNil, organization)
}

// Read an existing organization, looking it up by ID.
// Returns models.ErrNotFound if the organization does not exist.
func (d *OrganizationStore) Read(ctx context.Context, txOrNil *store.Tx, id models.OrganizationID) (*models.Organization, error) {
	organization := &models.Organization{}
	err := d.table.ReadByID(ctx, txOrNil, id.ResourceID, organization)
	if err != nil {
		return nil, err
	}
	return organization, nil
}

// ReadByProviderID reads an existing organization, looking it up by its provider id.
// Returns models.ErrNotFound if the organization does not exist.
func (d *OrganizationStore) ReadByProviderID(ctx context.Context, txOrNil *store.Tx, providerID models.ProviderID) (*models.Organization, error) {
	organization := &models.Organization{}
	err := d.table.ReadWhere(ctx, txOrNil, organization, goqu.Ex{"organization_provider_id": providerID})
	if err != nil {
		return nil, err
	}
	return organization, nil
}

// ReadByLogin reads an existing organization, looking it up by its provider login.
// Returns models.ErrNotFound if the organization does not exist.
func (d *OrganizationStore) ReadByLogin(ctx context.Context, txOrNil *store.Tx, login string) (*models.Organization, error) {
	organization := &models.Organization{}
	err := d.table.ReadWhere(ctx, txOrNil, organization, goqu.Ex{"organization_login": login})
	if err != nil {
		return nil, err
	}
	return organization, nil
}

// Update an existing organization with optimistic locking. Overrides all previous values using the supplied model.
// Returns store.ErrOptimisticLockFailed if there is an optimistic lock mismatch.
func (d *OrganizationStore) Update(ctx context.Context, txOrNil *store.Tx, organization *models.Organization) error {
	return d.table.UpdateByID(ctx, txOrNil, organization)
}

// ListForAccount lists every organization the account is a member of, oldest first.
func (d *OrganizationStore) ListForAccount(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID) ([]*models.Organization, error) {
	organizationsSelect := d.table.Dialect().From(d.table.TableName()).Select(&models.Organization{}).
		Join(goqu.T("organization_memberships"),
			goqu.On(goqu.Ex{"organizations.organization_id": goqu.I("organization_memberships.organization_membership_organization_id")})).
		Where(goqu.Ex{"organization_membership_account_id": accountID})
	var organizations []*models.Organization
	err := d.table.ListWhere(ctx, txOrNil, &organizations, organizationsSelect)
	if err != nil {
		return nil, err
	}
	return organizations, nil
}
