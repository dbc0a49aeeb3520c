package migrations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migrate_database "github.com/golang-migrate/migrate/v4/database"
	migrate_postgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migrate_sqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	migrate_iofs "github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/psanford/memfs"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/store"
)

const migrationsDir = "migrations"

// GolangMigrateRunner applies a MigrationSet with golang-migrate. Migrations are rendered for the
// target dialect into an in-memory filesystem which golang-migrate reads through iofs.
type GolangMigrateRunner struct {
	migrations MigrationSet
	logger.Log
}

func NewGolangMigrateRunner(migrations MigrationSet, logFactory logger.LogFactory) *GolangMigrateRunner {
	return &GolangMigrateRunner{
		migrations: migrations,
		Log:        logFactory("GolangMigrateRunner"),
	}
}

// NewServerGolangMigrateRunner returns a runner for the salt-ci server schema.
func NewServerGolangMigrateRunner(logFactory logger.LogFactory) *GolangMigrateRunner {
	return NewGolangMigrateRunner(SaltCIServerMigrations, logFactory)
}

func (r *GolangMigrateRunner) LatestVersion() uint {
	return r.migrations.LatestVersion()
}

// Version returns the applied schema version. An unmigrated database is at version 0.
func (r *GolangMigrateRunner) Version(ctx context.Context, driver store.DBDriver, connectionString store.DatabaseConnectionString) (version uint, dirty bool, err error) {
	err = r.withMigrator(driver, connectionString, func(m *migrate.Migrate) error {
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			version, dirty, err = 0, false, nil
		}
		return err
	})
	return version, dirty, err
}

func (r *GolangMigrateRunner) Up(ctx context.Context, driver store.DBDriver, connectionString store.DatabaseConnectionString) error {
	r.Infof("Migrating %s database up to version %d", driver, r.LatestVersion())
	return r.withMigrator(driver, connectionString, (*migrate.Migrate).Up)
}

func (r *GolangMigrateRunner) Down(ctx context.Context, driver store.DBDriver, connectionString store.DatabaseConnectionString) error {
	r.Infof("Migrating %s database down to empty", driver)
	return r.withMigrator(driver, connectionString, (*migrate.Migrate).Down)
}

func (r *GolangMigrateRunner) Goto(ctx context.Context, driver store.DBDriver, connectionString store.DatabaseConnectionString, version uint) error {
	r.Infof("Migrating %s database to version %d", driver, version)
	return r.withMigrator(driver, connectionString, func(m *migrate.Migrate) error {
		return m.Migrate(version)
	})
}

func (r *GolangMigrateRunner) Force(ctx context.Context, driver store.DBDriver, connectionString store.DatabaseConnectionString, version uint) error {
	r.Warnf("Forcing %s database to version %d", driver, version)
	return r.withMigrator(driver, connectionString, func(m *migrate.Migrate) error {
		return m.Force(int(version))
	})
}

// withMigrator opens a dedicated connection, wraps it in a migrator and calls fn. The migrator owns
// the connection and closes it. ErrNoChange from fn is not an error.
// golang-migrate takes no context.
func (r *GolangMigrateRunner) withMigrator(driver store.DBDriver, connectionString store.DatabaseConnectionString, fn func(*migrate.Migrate) error) error {
	dialect, err := GetDialectForDriver(driver)
	if err != nil {
		return err
	}
	files, err := r.ProduceMigrationFiles(dialect)
	if err != nil {
		return err
	}
	source, err := migrate_iofs.New(files, migrationsDir)
	if err != nil {
		return fmt.Errorf("error reading rendered migrations: %w", err)
	}

	db, err := sqlx.Open(driver.String(), connectionString.String())
	if err != nil {
		return fmt.Errorf("error opening %s database for migration: %w", driver, err)
	}
	target, err := databaseDriver(driver, db)
	if err != nil {
		db.Close()
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, driver.String(), target)
	if err != nil {
		db.Close()
		return fmt.Errorf("error creating migrator: %w", err)
	}
	defer m.Close()

	err = fn(m)
	if errors.Is(err, migrate.ErrNoChange) {
		r.Debugf("%s database schema already current", driver)
		return nil
	}
	return err
}

// databaseDriver wraps db in the golang-migrate driver for its dialect.
func databaseDriver(driver store.DBDriver, db *sqlx.DB) (migrate_database.Driver, error) {
	var (
		target migrate_database.Driver
		err    error
	)
	switch driver {
	case store.Sqlite:
		// Sqlite ignores the database name
		target, err = migrate_sqlite3.WithInstance(db.DB, &migrate_sqlite3.Config{DatabaseName: "sqlite"})
	case store.Postgres:
		target, err = migrate_postgres.WithInstance(db.DB, &migrate_postgres.Config{
			StatementTimeout:      5 * time.Second,
			MultiStatementEnabled: true,
			MultiStatementMaxSize: migrate_postgres.DefaultMultiStatementMaxSize,
		})
	default:
		return nil, fmt.Errorf("error no migration driver for database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating %s migration driver: %w", driver, err)
	}
	return target, nil
}

// ProduceMigrationFiles renders every migration in the set for dialect, returning an in-memory
// filesystem holding '{version}_{name}.{up|down}.sql' files under the migrations directory.
func (r *GolangMigrateRunner) ProduceMigrationFiles(dialect *DialectTemplate) (*memfs.FS, error) {
	files := memfs.New()
	err := files.MkdirAll(migrationsDir, 0777)
	if err != nil {
		return nil, err
	}
	for _, migration := range r.migrations {
		for direction, sql := range map[string]string{"up": migration.UpSQL, "down": migration.DownSQL} {
			name := fmt.Sprintf("%s/%06d_%s.%s.sql", migrationsDir, migration.SequenceNumber, migration.Name, direction)
			rendered, err := renderMigration(name, sql, dialect)
			if err != nil {
				return nil, err
			}
			err = files.WriteFile(name, rendered, 0755)
			if err != nil {
				return nil, fmt.Errorf("error writing migration %q: %w", name, err)
			}
		}
	}
	r.Debugf("Rendered %d migrations", len(r.migrations))
	return files, nil
}

func renderMigration(name string, sql string, dialect *DialectTemplate) ([]byte, error) {
	tmpl, err := template.New(name).Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("error parsing migration %q: %w", name, err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, dialect)
	if err != nil {
		return nil, fmt.Errorf("error rendering migration %q: %w", name, err)
	}
	return buf.Bytes(), nil
}
