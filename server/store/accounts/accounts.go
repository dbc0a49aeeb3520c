package accounts

import (
	"context"
	"fmt"
	"reflect"

	"github.com/doug-martin/goqu/v9"
	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

const queryAcquireSyncLease = `
UPDATE
	accounts
SET
	account_sync_lease_expires_at = :account_sync_lease_expires_at
WHERE
	account_id = :account_id
AND (
	account_sync_lease_expires_at IS NULL
	OR
	account_sync_lease_expires_at < :account_sync_lease_now
)
`

func init() {
	_ = models.MutableResource(&models.Account{})
	store.MustDBModel(&models.Account{})
}

type AccountStore struct {
	db    *store.DB
	table *store.ResourceTable
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *AccountStore {
	return &AccountStore{
		db:    db,
		table: store.NewResourceTable(db, logFactory, &models.Account{}),
	}
}

// Create a new account.
// Returns store.ErrAlreadyExists if an account with the same provider id already exists.
func (d *AccountStore) Create(ctx context.Context, txOrNil *store.Tx, account *models.Account) error {
	return d.table.Create(ctx, txOrNil, account)
}

// Read an existing account, looking it up by ID.
// Returns models.ErrNotFound if the account does not exist.
func (d *AccountStore) Read(ctx context.Context, txOrNil *store.Tx, id models.AccountID) (*models.Account, error) {
	account := &models.Account{}
	err := d.table.ReadByID(ctx, txOrNil, id.ResourceID, account)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ReadByProviderID reads an existing account, looking it up by its provider id.
// Returns models.ErrNotFound if the account does not exist.
func (d *AccountStore) ReadByProviderID(ctx context.Context, txOrNil *store.Tx, providerID models.ProviderID) (*models.Account, error) {
	account := &models.Account{}
	err := d.table.ReadWhere(ctx, txOrNil, account, goqu.Ex{"account_provider_id": providerID})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ReadByLogin reads an existing account, looking it up by its provider login.
// Returns models.ErrNotFound if the account does not exist.
func (d *AccountStore) ReadByLogin(ctx context.Context, txOrNil *store.Tx, login string) (*models.Account, error) {
	account := &models.Account{}
	err := d.table.ReadWhere(ctx, txOrNil, account, goqu.Ex{"account_login": login})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ReadByHooksToken reads an existing account, looking it up by its hooks token.
// Returns models.ErrNotFound if the account does not exist.
func (d *AccountStore) ReadByHooksToken(ctx context.Context, txOrNil *store.Tx, token string) (*models.Account, error) {
	if token == "" {
		return nil, gerror.NewErrNotFound("Not Found")
	}
	account := &models.Account{}
	err := d.table.ReadWhere(ctx, txOrNil, account, goqu.Ex{"account_hooks_token": token})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Update an existing account with optimistic locking. Overrides all previous values using the supplied model.
// Returns store.ErrOptimisticLockFailed if there is an optimistic lock mismatch.
func (d *AccountStore) Update(ctx context.Context, txOrNil *store.Tx, account *models.Account) error {
	return d.table.UpdateByID(ctx, txOrNil, account)
}

// Upsert creates the account if no account with the same provider id exists, otherwise it updates
// the existing account's provider attributes and access token, leaving its preferences and hooks
// token untouched. The supplied model is updated to reflect the row as stored.
// Returns true,false if created and false,true if updated.
func (d *AccountStore) Upsert(ctx context.Context, txOrNil *store.Tx, account *models.Account) (bool, bool, error) {
	return d.table.Upsert(ctx, txOrNil,
		func(tx *store.Tx) (models.Resource, error) {
			return d.ReadByProviderID(ctx, tx, account.ProviderID)
		}, func(tx *store.Tx) error {
			return d.Create(ctx, tx, account)
		}, func(tx *store.Tx, obj models.Resource) (bool, error) {
			existing := obj.(*models.Account)
			merged := *existing
			merged.Login = account.Login
			merged.DisplayName = account.DisplayName
			merged.AvatarURL = account.AvatarURL
			merged.AccessToken = account.AccessToken
			merged.LastLoginAt = account.LastLoginAt
			if merged.HooksToken == "" {
				merged.HooksToken = account.HooksToken
			}
			if reflect.DeepEqual(existing, &merged) {
				*account = *existing
				return false, nil
			}
			merged.UpdatedAt = account.UpdatedAt
			err := d.Update(ctx, tx, &merged)
			if err != nil {
				return false, err
			}
			*account = merged
			return true, nil
		})
}

// AcquireSyncLease takes the account's sync lease until expiresAt, provided no other unexpired
// lease is held at now. Returns gerror.ErrSyncInProgress if the lease is held.
func (d *AccountStore) AcquireSyncLease(
	ctx context.Context,
	txOrNil *store.Tx,
	id models.AccountID,
	now models.Time,
	expiresAt models.Time,
) error {
	var rowsAffected int64
	err := d.db.Write(txOrNil, func(execer store.Execer, binder store.Binder) error {
		params := map[string]interface{}{
			"account_id":                    id,
			"account_sync_lease_expires_at": expiresAt,
			"account_sync_lease_now":        now,
		}
		query, args, err := binder.BindNamed(queryAcquireSyncLease, params)
		if err != nil {
			return errors.Wrap(err, "error binding query params")
		}
		d.table.LogQuery(query, args)
		res, err := execer.ExecContext(ctx, query, args...)
		if err != nil {
			return store.MakeStandardDBError(err)
		}
		rowsAffected, err = res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "error reading rows affected")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error acquiring sync lease: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a missing account from a held lease
		_, err = d.Read(ctx, txOrNil, id)
		if err != nil {
			return err
		}
		return gerror.NewErrSyncInProgress()
	}
	return nil
}

// ReleaseSyncLease releases the account's sync lease. This method is idempotent.
func (d *AccountStore) ReleaseSyncLease(ctx context.Context, txOrNil *store.Tx, id models.AccountID) error {
	return d.db.GoquWrite(txOrNil, func(db store.Writer) error {
		ds := db.Update(d.table.TableName()).
			Set(goqu.Record{"account_sync_lease_expires_at": nil}).
			Where(goqu.Ex{"account_id": id})
		_, err := d.table.LogUpdate(ds).Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("error releasing sync lease: %w", store.MakeStandardDBError(err))
		}
		return nil
	})
}
