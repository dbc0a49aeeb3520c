package store_test

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/store"
	"github.com/vmware-archive/salt-ci/server/store/migrations"
)

const (
	testDBDriverEnvVar         = "TEST_DB_DRIVER"
	testConnectionStringEnvVar = "TEST_CONNECTION_STRING"
)

// uniqueDatabaseName returns a name no other test database in this or any concurrent run will use.
func uniqueDatabaseName() string {
	return "testdb_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Connect opens a new, migrated test database. See ConnectAndOptionallyMigrate.
func Connect(logFactory logger.LogFactory) (*store.DB, func(), error) {
	return ConnectAndOptionallyMigrate(true, logFactory)
}

// ConnectAndOptionallyMigrate opens a new test database. Each call gets a uniquely named in-memory
// sqlite database unless TEST_DB_DRIVER (and, for postgres, TEST_CONNECTION_STRING) select another.
// A postgres connection string naming no database gets a temporary one, dropped by cleanup.
func ConnectAndOptionallyMigrate(runMigrations bool, logFactory logger.LogFactory) (*store.DB, func(), error) {
	log := logFactory("TestDB")
	driver, connectionString, err := testDatabaseFromEnv()
	if err != nil {
		return nil, nil, err
	}
	var cleanups []func()
	runCleanups := func() {
		log.Info("Running cleanup")
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if driver == store.Postgres {
		str, drop, err := createTemporaryDatabase(log, driver, connectionString)
		if err != nil {
			return nil, nil, errors.Wrap(err, "error initializing test database")
		}
		connectionString = str
		cleanups = append(cleanups, drop)
	}

	var migrationRunner store.MigrationRunner
	if runMigrations {
		migrationRunner = migrations.NewServerGolangMigrateRunner(logFactory)
	}
	db, closeDB, err := store.NewDatabase(context.Background(), store.DatabaseConfig{
		ConnectionString:   connectionString,
		Driver:             driver,
		MaxIdleConnections: store.DefaultDatabaseMaxIdleConnections,
		MaxOpenConnections: store.DefaultDatabaseMaxOpenConnections,
		AutoMigrate:        true,
	}, migrationRunner)
	if err != nil {
		runCleanups()
		return nil, nil, errors.Wrap(err, "error creating database")
	}
	cleanups = append(cleanups, closeDB)
	return db, runCleanups, nil
}

func testDatabaseFromEnv() (store.DBDriver, store.DatabaseConnectionString, error) {
	driverStr, haveDriver := os.LookupEnv(testDBDriverEnvVar)
	connectionStr, haveConnection := os.LookupEnv(testConnectionStringEnvVar)
	switch {
	case !haveDriver && haveConnection:
		return "", "", errors.Errorf("error %s must be set when using %s", testDBDriverEnvVar, testConnectionStringEnvVar)
	case !haveDriver:
		connectionStr = ""
		driverStr = string(store.Sqlite)
	case connectionStr == "" && store.DBDriver(driverStr) != store.Sqlite:
		return "", "", errors.Errorf("error %s must be set alongside %s when not using sqlite", testConnectionStringEnvVar, testDBDriverEnvVar)
	}
	if connectionStr == "" {
		connectionStr = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uniqueDatabaseName())
	}
	return store.DBDriver(driverStr), store.DatabaseConnectionString(connectionStr), nil
}

// createTemporaryDatabase creates a database on the server connectionString points at, and returns
// the connection string for it along with a function that drops it. A connection string that
// already names a database is returned as is, with a no-op drop.
func createTemporaryDatabase(log logger.Log, driver store.DBDriver, connectionString store.DatabaseConnectionString) (store.DatabaseConnectionString, func(), error) {
	parsed, err := url.Parse(connectionString.String())
	if err != nil {
		return "", nil, errors.Wrapf(err, "error parsing connection string %q", connectionString)
	}
	if strings.Trim(parsed.Path, "/") != "" {
		return connectionString, func() {}, nil
	}
	server, err := sqlx.Open(driver.String(), parsed.String())
	if err != nil {
		return "", nil, errors.Wrap(err, "error connecting to database server")
	}
	name := uniqueDatabaseName()
	log.Infof("Creating test database %s", name)
	_, err = server.Exec("CREATE DATABASE " + name)
	if err != nil {
		server.Close()
		return "", nil, errors.Wrap(err, "error creating database")
	}
	drop := func() {
		log.Infof("Dropping test database %s", name)
		_, err := server.Exec("DROP DATABASE " + name)
		if err != nil {
			log.Errorf("Failed to drop test database %s: %v", name, err)
		}
		server.Close()
	}
	parsed.Path = name
	return store.DatabaseConnectionString(parsed.String()), drop, nil
}
