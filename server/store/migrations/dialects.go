package migrations

import (
	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/server/store"
)

// dialects holds the template values for each supported driver, keyed by driver.
var dialects = map[store.DBDriver]DialectTemplate{
	store.Postgres: {
		Binary:            "BYTEA",
		IntegerPrimaryKey: "SERIAL PRIMARY KEY",
	},
	store.Sqlite: {
		Binary:            "BLOB",
		IntegerPrimaryKey: "integer NOT NULL PRIMARY KEY AUTOINCREMENT",
	},
}

func NewPostgresDialectTemplate() *DialectTemplate {
	d := dialects[store.Postgres]
	return &d
}

func NewSqliteDialectTemplate() *DialectTemplate {
	d := dialects[store.Sqlite]
	return &d
}

// GetDialectForDriver returns a copy of the template values for the SQL dialect spoken by driver.
func GetDialectForDriver(driver store.DBDriver) (*DialectTemplate, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, errors.Errorf("error unsupported database driver: %s", driver)
	}
	return &d, nil
}
