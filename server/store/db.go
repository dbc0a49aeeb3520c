package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/gerror"
)

type DatabaseConfig struct {
	ConnectionString   DatabaseConnectionString
	Driver             DBDriver
	MaxIdleConnections int
	MaxOpenConnections int
	// AutoMigrate migrates the schema up on startup. When false the schema version is
	// only checked, and startup fails if it is behind.
	AutoMigrate bool
}

type DBDriver string

func (d DBDriver) String() string {
	return string(d)
}

type DatabaseConnectionString string

func (d DatabaseConnectionString) String() string {
	return string(d)
}

const (
	Sqlite                            DBDriver = "sqlite3"
	Postgres                          DBDriver = "postgres"
	DefaultDatabaseMaxIdleConnections          = 2
	DefaultDatabaseMaxOpenConnections          = 4
)

type DB struct {
	*sqlx.DB
	Driver           DBDriver
	ConnectionString DatabaseConnectionString
	mu               sync.RWMutex
}

type Tx struct {
	tx *sqlx.Tx
}

// Binder interface defines database field bindings.
type Binder interface {
	BindNamed(query string, arg interface{}) (string, []interface{}, error)
}

// Queryer interface defines a set of methods for querying the database.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Execer interface defines a set of methods for executing
// read and write commands against the database.
type Execer interface {
	Queryer
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// MigrationRunner interface defines a set of methods for applying database migrations.
type MigrationRunner interface {
	// Up migrates the given database up to the latest version.
	Up(ctx context.Context, driver DBDriver, connectionString DatabaseConnectionString) error
	// Down migrates the given database down to empty.
	Down(ctx context.Context, driver DBDriver, connectionString DatabaseConnectionString) error
	// Goto migrates the given database to the specified version.
	Goto(ctx context.Context, driver DBDriver, connectionString DatabaseConnectionString, version uint) error
	// Force marks the database as clean and already migrated to the specified version.
	Force(ctx context.Context, driver DBDriver, connectionString DatabaseConnectionString, version uint) error
	// Version returns the currently applied schema version, and true if the last migration failed part way.
	Version(ctx context.Context, driver DBDriver, connectionString DatabaseConnectionString) (version uint, dirty bool, err error)
	// LatestVersion returns the version the runner would migrate up to.
	LatestVersion() uint
}

// NewDatabase performs any database specific init required before returning a new database connection
// pool using the specified DatabaseConfig, as well as a cleanup function to call to close the database again.
// If a MigrationRunner is supplied then either an 'Up' migration is performed (AutoMigrate) or the schema
// version is verified, returning a SchemaOutOfDate error if it is behind the latest version.
func NewDatabase(
	ctx context.Context,
	config DatabaseConfig,
	migrationRunner MigrationRunner,
) (*DB, func(), error) {
	switch config.Driver {
	case Sqlite:
		err := SQLiteConnectionInit(string(config.ConnectionString))
		if err != nil {
			return nil, nil, err
		}
	case Postgres:
	default:
		return nil, nil, gerror.NewErrConfiguration(fmt.Sprintf("Unknown database driver %q", config.Driver))
	}

	sqlxDB, err := sqlx.Open(string(config.Driver), string(config.ConnectionString))
	if err != nil {
		return nil, nil, fmt.Errorf("error opening %s database: %w", config.Driver, err)
	}

	err = sqlxDB.PingContext(ctx)
	if err != nil {
		sqlxDB.Close()
		return nil, nil, fmt.Errorf("error pinging %s database: %w", config.Driver, err)
	}

	if migrationRunner != nil {
		err := prepareSchema(ctx, config, migrationRunner)
		if err != nil {
			sqlxDB.Close()
			return nil, nil, err
		}
	}

	sqlxDB.SetMaxIdleConns(config.MaxIdleConnections)
	sqlxDB.SetMaxOpenConns(config.MaxOpenConnections)
	db := &DB{
		DB:               sqlxDB,
		Driver:           config.Driver,
		ConnectionString: config.ConnectionString,
	}
	return db, func() { db.Close() }, nil
}

// prepareSchema migrates the schema up, or checks that it is current.
func prepareSchema(ctx context.Context, config DatabaseConfig, migrationRunner MigrationRunner) error {
	if config.AutoMigrate {
		err := migrationRunner.Up(ctx, config.Driver, config.ConnectionString)
		if err != nil {
			return fmt.Errorf("error running %s database migrations: %w", config.Driver, err)
		}
		return nil
	}
	current, dirty, err := migrationRunner.Version(ctx, config.Driver, config.ConnectionString)
	if err != nil {
		return fmt.Errorf("error reading %s database schema version: %w", config.Driver, err)
	}
	expected := migrationRunner.LatestVersion()
	if dirty || current < expected {
		return gerror.NewErrSchemaOutOfDate(current, expected).IDetail("dirty", dirty)
	}
	return nil
}

// SQLiteConnectionInit creates the database file, and its directory, named by a file based sqlite
// connection string. In-memory databases need no initialization.
func SQLiteConnectionInit(connectionString string) error {
	path, ok := sqliteFilePath(connectionString)
	if !ok {
		return nil
	}
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("error ensuring database directory %q exists: %w", dir, err)
	}
	file, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0660)
	if err != nil {
		return fmt.Errorf("error opening or creating database file %q: %w", path, err)
	}
	err = file.Close()
	if err != nil {
		return fmt.Errorf("error closing database file: %w", err)
	}
	return nil
}

// sqliteFilePath returns the file a sqlite connection string refers to, or false for in-memory
// databases and strings with no file: directive.
// In-memory connection strings can carry a file: directive too, see https://github.com/mattn/go-sqlite3/issues/677
func sqliteFilePath(connectionString string) (string, bool) {
	if strings.Contains(connectionString, ":memory:") || strings.Contains(connectionString, "mode=memory") {
		return "", false
	}
	_, rest, ok := strings.Cut(connectionString, "file:")
	if !ok {
		return "", false
	}
	path, _, _ := strings.Cut(rest, "?")
	return path, path != ""
}

// lock serializes writers, and writers against readers, on sqlite. Other databases lock rows themselves.
// Returns the function to release the lock.
func (d *DB) lock(write bool) func() {
	if d.Driver != Sqlite {
		return func() {}
	}
	if write {
		d.mu.Lock()
		return d.mu.Unlock
	}
	d.mu.RLock()
	return d.mu.RUnlock
}

// WithTx runs fn inside a database transaction, committing if fn returns nil and rolling back
// otherwise. fn's error is returned as is. If txOrNil is supplied fn joins it instead.
func (d *DB) WithTx(ctx context.Context, txOrNil *Tx, fn func(tx *Tx) error) error {
	if txOrNil != nil {
		return fn(txOrNil)
	}
	defer d.lock(true)()

	tx, err := d.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "error beginning database transaction")
	}
	err = fn(&Tx{tx})
	if err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrapf(rollbackErr, "error rolling back database transaction: %s", err)
		}
		return err
	}
	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "error committing database transaction")
	}
	return nil
}

// WithSavepoint runs fn inside a savepoint when txOrNil is supplied, rolling back to the savepoint
// if fn fails so the enclosing transaction stays usable. Postgres aborts a transaction on any
// failed statement otherwise. Without a transaction fn simply runs.
func (d *DB) WithSavepoint(ctx context.Context, txOrNil *Tx, name string, fn func() error) error {
	if txOrNil == nil {
		return fn()
	}
	_, err := txOrNil.tx.ExecContext(ctx, "SAVEPOINT "+name)
	if err != nil {
		return errors.Wrapf(err, "error creating savepoint %s", name)
	}
	err = fn()
	if err != nil {
		if _, rollbackErr := txOrNil.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rollbackErr != nil {
			return errors.Wrapf(rollbackErr, "error rolling back to savepoint %s: %s", name, err)
		}
		return err
	}
	_, err = txOrNil.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	if err != nil {
		return errors.Wrapf(err, "error releasing savepoint %s", name)
	}
	return nil
}

// Write calls fn with the Execer to write with: the transaction if one is supplied, otherwise
// the database itself.
func (d *DB) Write(txOrNil *Tx, fn func(Execer, Binder) error) error {
	if txOrNil != nil {
		return fn(txOrNil.tx, txOrNil.tx)
	}
	defer d.lock(true)()
	return fn(d.DB, d.DB)
}

// Read is Write for queries.
func (d *DB) Read(txOrNil *Tx, fn func(Queryer, Binder) error) error {
	if txOrNil != nil {
		return fn(txOrNil.tx, txOrNil.tx)
	}
	defer d.lock(false)()
	return fn(d.DB, d.DB)
}

// Close the connection to the database. The DB object must not be used
// after a call to Close.
func (d *DB) Close() error {
	return d.DB.Close()
}

// GoquWrite is Write for goqu datasets. The goqu database uses the dialect matching the driver.
func (d *DB) GoquWrite(txOrNil *Tx, fn func(Writer) error) error {
	if txOrNil != nil {
		return fn(goqu.NewTx(d.DriverName(), txOrNil.tx))
	}
	defer d.lock(true)()
	return fn(goqu.New(d.DriverName(), d.DB))
}

// GoquRead is Read for goqu datasets.
func (d *DB) GoquRead(txOrNil *Tx, fn func(Reader) error) error {
	if txOrNil != nil {
		return fn(goqu.NewTx(d.DriverName(), txOrNil.tx))
	}
	defer d.lock(false)()
	return fn(goqu.New(d.DriverName(), d.DB))
}

type Writer interface {
	Reader
	Update(table interface{}) *goqu.UpdateDataset
	Insert(table interface{}) *goqu.InsertDataset
	Delete(table interface{}) *goqu.DeleteDataset
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Reader interface {
	From(from ...interface{}) *goqu.SelectDataset
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ScanStructsContext(ctx context.Context, i interface{}, query string, args ...interface{}) error
	ScanStructContext(ctx context.Context, i interface{}, query string, args ...interface{}) (bool, error)
	ScanValsContext(ctx context.Context, i interface{}, query string, args ...interface{}) error
	ScanValContext(ctx context.Context, i interface{}, query string, args ...interface{}) (bool, error)
}
