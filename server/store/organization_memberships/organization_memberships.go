package organization_memberships

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

func init() {
	store.MustDBModel(&models.OrganizationMembership{})
}

type OrganizationMembershipStore struct {
	table *store.ResourceTable
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *OrganizationMembershipStore {
	return &OrganizationMembershipStore{
		table: store.NewResourceTable(db, logFactory, &models.OrganizationMembership{}),
	}
}

// ReadByMember reads an existing organization membership, looking it up by organization and member account.
// Returns models.ErrNotFound if the membership does not exist.
func (d *OrganizationMembershipStore) ReadByMember(
	ctx context.Context,
	txOrNil *store.Tx,
	organizationID models.OrganizationID,
	accountID models.AccountID,
) (*models.OrganizationMembership, error) {
	membership := &models.OrganizationMembership{}
	whereClause := goqu.Ex{
		"organization_membership_organization_id": organizationID,
		"organization_membership_account_id":      accountID,
	}
	err := d.table.ReadWhere(ctx, txOrNil, membership, whereClause)
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// FindOrCreate finds and returns the membership with the organization and account specified in the
// supplied membership data. If no such membership exists then a new one is created and returned, and
// true is returned for 'created'.
func (d *OrganizationMembershipStore) FindOrCreate(
	ctx context.Context,
	txOrNil *store.Tx,
	membershipData *models.OrganizationMembership,
) (membership *models.OrganizationMembership, created bool, err error) {
	resource, created, err := d.table.FindOrCreate(ctx, txOrNil,
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			return d.ReadByMember(ctx, tx, membershipData.OrganizationID, membershipData.AccountID)
		},
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			err := d.table.Create(ctx, tx, membershipData)
			return membershipData, err
		},
	)
	if err != nil {
		return nil, false, err
	}
	return resource.(*models.OrganizationMembership), created, nil
}

// Update an existing membership, overriding all previous values using the supplied model.
// Returns models.ErrNotFound if the membership does not exist.
func (d *OrganizationMembershipStore) Update(ctx context.Context, txOrNil *store.Tx, membership *models.OrganizationMembership) error {
	return d.table.UpdateByID(ctx, txOrNil, membership)
}

// DeleteByMember removes an account from an organization by deleting the relevant membership record.
// This method is idempotent.
func (d *OrganizationMembershipStore) DeleteByMember(
	ctx context.Context,
	txOrNil *store.Tx,
	organizationID models.OrganizationID,
	accountID models.AccountID,
) error {
	return d.table.DeleteWhere(ctx, txOrNil,
		goqu.Ex{
			"organization_membership_organization_id": organizationID,
			"organization_membership_account_id":      accountID,
		})
}
