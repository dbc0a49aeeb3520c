package privileges

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

func init() {
	store.MustDBModel(&models.Privilege{})
}

type PrivilegeStore struct {
	table *store.ResourceTable
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *PrivilegeStore {
	return &PrivilegeStore{
		table: store.NewResourceTableWithTableName(db, logFactory, "access_control_privileges", &models.Privilege{}),
	}
}

// Create a new privilege.
// Returns store.ErrAlreadyExists if a privilege with the same name already exists.
func (d *PrivilegeStore) Create(ctx context.Context, txOrNil *store.Tx, privilege *models.Privilege) error {
	return d.table.Create(ctx, txOrNil, privilege)
}

// Read an existing privilege, looking it up by ID.
// Returns models.ErrNotFound if the privilege does not exist.
func (d *PrivilegeStore) Read(ctx context.Context, txOrNil *store.Tx, id models.PrivilegeID) (*models.Privilege, error) {
	privilege := &models.Privilege{}
	err := d.table.ReadByID(ctx, txOrNil, id.ResourceID, privilege)
	if err != nil {
		return nil, err
	}
	return privilege, nil
}

// ReadByName reads an existing privilege, looking it up by name.
// Returns models.ErrNotFound if the privilege does not exist.
func (d *PrivilegeStore) ReadByName(ctx context.Context, txOrNil *store.Tx, name models.PrivilegeName) (*models.Privilege, error) {
	privilege := &models.Privilege{}
	err := d.table.ReadWhere(ctx, txOrNil, privilege, goqu.Ex{"access_control_privilege_name": name})
	if err != nil {
		return nil, err
	}
	return privilege, nil
}

// FindOrCreate reads the privilege with the name in the supplied privilege data, creating it if it
// does not exist. Returns true iff a new privilege was created.
func (d *PrivilegeStore) FindOrCreate(
	ctx context.Context,
	txOrNil *store.Tx,
	privilegeData *models.Privilege,
) (privilege *models.Privilege, created bool, err error) {
	resource, created, err := d.table.FindOrCreate(ctx, txOrNil,
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			return d.ReadByName(ctx, tx, privilegeData.Name)
		},
		func(ctx context.Context, tx *store.Tx) (models.Resource, error) {
			err := d.table.Create(ctx, tx, privilegeData)
			return privilegeData, err
		},
	)
	if err != nil {
		return nil, false, err
	}
	return resource.(*models.Privilege), created, nil
}
