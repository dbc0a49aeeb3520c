package authorizations

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

const queryListDirectPrivilegeNames = `
SELECT
	access_control_privilege_name
FROM
	access_control_privileges
INNER JOIN
	access_control_grants
	ON
		access_control_grant_privilege_id = access_control_privilege_id
WHERE
	access_control_grant_authorized_account_id = :access_control_authorized_account_id
`

const queryListInheritedPrivilegeNames = `
SELECT
	access_control_privilege_name
FROM
	access_control_privileges
INNER JOIN
	access_control_grants
	ON
		access_control_grant_privilege_id = access_control_privilege_id
INNER JOIN
	access_control_group_memberships
	ON
		access_control_group_membership_group_id = access_control_grant_authorized_group_id
WHERE
	access_control_group_membership_account_id = :access_control_authorized_account_id
`

// queryListEffectivePrivilegeNames returns each privilege once no matter how many grants provide it.
const queryListEffectivePrivilegeNames = queryListDirectPrivilegeNames + `
UNION
` + queryListInheritedPrivilegeNames

type AuthorizationStore struct {
	db *store.DB
}

func NewStore(db *store.DB) *AuthorizationStore {
	return &AuthorizationStore{
		db: db,
	}
}

// ListDirectPrivilegeNames lists the names of privileges granted directly to the account, in name order.
func (d *AuthorizationStore) ListDirectPrivilegeNames(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID) ([]models.PrivilegeName, error) {
	return d.listPrivilegeNames(ctx, txOrNil, queryListDirectPrivilegeNames, accountID)
}

// ListInheritedPrivilegeNames lists the names of privileges granted to any group the account is a
// member of, in name order.
func (d *AuthorizationStore) ListInheritedPrivilegeNames(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID) ([]models.PrivilegeName, error) {
	return d.listPrivilegeNames(ctx, txOrNil, queryListInheritedPrivilegeNames, accountID)
}

// ListEffectivePrivilegeNames lists the distinct names of every privilege the account holds
// directly or through a group, in name order.
func (d *AuthorizationStore) ListEffectivePrivilegeNames(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID) ([]models.PrivilegeName, error) {
	return d.listPrivilegeNames(ctx, txOrNil, queryListEffectivePrivilegeNames, accountID)
}

func (d *AuthorizationStore) listPrivilegeNames(
	ctx context.Context,
	txOrNil *store.Tx,
	query string,
	accountID models.AccountID,
) ([]models.PrivilegeName, error) {

	var names []models.PrivilegeName

	err := d.db.Read(txOrNil, func(queryer store.Queryer, binder store.Binder) error {

		params := map[string]interface{}{
			"access_control_authorized_account_id": accountID,
		}

		query, args, err := binder.BindNamed(query, params)
		if err != nil {
			return errors.Wrap(err, "error binding query params")
		}

		rows, err := queryer.QueryContext(ctx, query, args...)
		if err != nil {
			return errors.Wrap(err, "error in query")
		}
		defer rows.Close()

		seen := models.NewPrivilegeSet()
		for rows.Next() {
			var name models.PrivilegeName
			err = rows.Scan(&name)
			if err != nil {
				return errors.Wrap(err, "error in scan")
			}
			if !seen.Has(name) {
				seen.Add(name)
				names = append(names, name)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrap(err, "error listing privileges")
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}
