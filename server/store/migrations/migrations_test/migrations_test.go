package migrations_test

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/store"
	"github.com/vmware-archive/salt-ci/server/store/migrations"
	"github.com/vmware-archive/salt-ci/server/store/store_test"
)

// Three migrations over a pair of throwaway tables, exercising both dialect template fields.
var testMigrations = migrations.MigrationSet{
	{
		SequenceNumber: 1,
		Name:           "create_test_owners",
		UpSQL: `CREATE TABLE IF NOT EXISTS test_owners
				(
					owner_id text NOT NULL PRIMARY KEY,
					owner_login text NOT NULL,
					owner_created_at timestamp without time zone NOT NULL,
					owner_avatar {{ .Binary}}
				);
				CREATE UNIQUE INDEX IF NOT EXISTS test_owners_login_unique_index ON test_owners(owner_login);`,
		DownSQL: `DROP TABLE test_owners;`,
	},
	{
		SequenceNumber: 2,
		Name:           "create_test_projects",
		UpSQL: `CREATE TABLE test_projects
				(
					project_id {{ .IntegerPrimaryKey}},
					project_owner_id text NOT NULL REFERENCES test_owners (owner_id) ON DELETE CASCADE
				);`,
		DownSQL: `DROP TABLE test_projects;`,
	},
	{
		SequenceNumber: 3,
		Name:           "add_test_project_name",
		UpSQL:          `ALTER TABLE test_projects ADD project_name text;`,
		DownSQL:        `ALTER TABLE test_projects DROP COLUMN project_name;`,
	},
}

func testLogFactory(t *testing.T) logger.LogFactory {
	logRegistry, err := logger.NewLogRegistry("")
	require.NoError(t, err)
	return logger.MakeLogrusLogFactoryStdOut(logRegistry)
}

type migrationStep struct {
	name    string
	run     func(ctx context.Context, r *migrations.GolangMigrateRunner, d store.DBDriver, cs store.DatabaseConnectionString) error
	wantErr bool
}

func up(ctx context.Context, r *migrations.GolangMigrateRunner, d store.DBDriver, cs store.DatabaseConnectionString) error {
	return r.Up(ctx, d, cs)
}

func down(ctx context.Context, r *migrations.GolangMigrateRunner, d store.DBDriver, cs store.DatabaseConnectionString) error {
	return r.Down(ctx, d, cs)
}

func gotoVersion(version uint) func(context.Context, *migrations.GolangMigrateRunner, store.DBDriver, store.DatabaseConnectionString) error {
	return func(ctx context.Context, r *migrations.GolangMigrateRunner, d store.DBDriver, cs store.DatabaseConnectionString) error {
		return r.Goto(ctx, d, cs, version)
	}
}

func force(version uint) func(context.Context, *migrations.GolangMigrateRunner, store.DBDriver, store.DatabaseConnectionString) error {
	return func(ctx context.Context, r *migrations.GolangMigrateRunner, d store.DBDriver, cs store.DatabaseConnectionString) error {
		return r.Force(ctx, d, cs, version)
	}
}

func TestMigrations(t *testing.T) {
	logFactory := testLogFactory(t)
	memory := store.DatabaseConnectionString("file:migrations_test?mode=memory&cache=shared&_foreign_keys=1")
	// The shared in-memory database is dropped when its last connection closes, and the runner
	// closes its own after every step
	keepAlive, closeKeepAlive, err := store.NewDatabase(context.Background(), store.DatabaseConfig{
		ConnectionString:   memory,
		Driver:             store.Sqlite,
		MaxIdleConnections: store.DefaultDatabaseMaxIdleConnections,
		MaxOpenConnections: store.DefaultDatabaseMaxOpenConnections,
	}, nil)
	require.NoError(t, err)
	defer closeKeepAlive()
	require.NotNil(t, keepAlive)
	t.Run("SqliteInMemory", runMigrationSteps(store.Sqlite, memory, logFactory))

	database, cleanup, err := store_test.ConnectAndOptionallyMigrate(false, logFactory)
	require.NoError(t, err)
	defer cleanup()
	t.Run("TestDatabase", runMigrationSteps(database.Driver, database.ConnectionString, logFactory))
}

func runMigrationSteps(driver store.DBDriver, connectionString store.DatabaseConnectionString, logFactory logger.LogFactory) func(t *testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		runner := migrations.NewGolangMigrateRunner(testMigrations, logFactory)
		steps := []migrationStep{
			{name: "Up", run: up},
			{name: "UpAgainIsNoOp", run: up},
			{name: "Down", run: down},
			{name: "UpFromEmpty", run: up},
			{name: "GotoTwo", run: gotoVersion(2)},
			{name: "GotoOne", run: gotoVersion(1)},
			// The schema is really at 1, so undoing 3 finds no table to alter
			{name: "ForceThree", run: force(3)},
			{name: "DownAfterForce", run: down, wantErr: true},
			{name: "ForceOne", run: force(1)},
			{name: "DownAfterRepair", run: down},
			{name: "UpFinal", run: up},
		}
		for _, step := range steps {
			err := step.run(ctx, runner, driver, connectionString)
			if step.wantErr {
				require.Error(t, err, step.name)
			} else {
				require.NoError(t, err, step.name)
			}
		}

		version, dirty, err := runner.Version(ctx, driver, connectionString)
		require.NoError(t, err)
		require.False(t, dirty)
		require.Equal(t, uint(3), version)
		require.Equal(t, uint(3), runner.LatestVersion())
	}
}

func TestProduceMigrationFiles(t *testing.T) {
	dialects := map[string]*migrations.DialectTemplate{
		"Sqlite":   migrations.NewSqliteDialectTemplate(),
		"Postgres": migrations.NewPostgresDialectTemplate(),
	}
	for name, dialect := range dialects {
		t.Run(name, func(t *testing.T) {
			runner := migrations.NewGolangMigrateRunner(testMigrations, testLogFactory(t))
			files, err := runner.ProduceMigrationFiles(dialect)
			require.NoError(t, err)

			var produced []string
			err = fs.WalkDir(files, "migrations", func(path string, d fs.DirEntry, err error) error {
				if err == nil && !d.IsDir() {
					produced = append(produced, path)
				}
				return err
			})
			require.NoError(t, err)
			require.Len(t, produced, 2*len(testMigrations))
			require.Contains(t, produced, "migrations/000002_create_test_projects.up.sql")

			up, err := fs.ReadFile(files, "migrations/000002_create_test_projects.up.sql")
			require.NoError(t, err)
			require.Contains(t, string(up), dialect.IntegerPrimaryKey)
			require.False(t, strings.Contains(string(up), "{{"))
		})
	}

	t.Run("ServerMigrations", func(t *testing.T) {
		runner := migrations.NewServerGolangMigrateRunner(testLogFactory(t))
		_, err := runner.ProduceMigrationFiles(migrations.NewPostgresDialectTemplate())
		require.NoError(t, err)
	})
}

// TestServerMigrations runs the salt-ci schema up, down and up again against the test database
// configured by the environment.
func TestServerMigrations(t *testing.T) {
	logFactory := testLogFactory(t)
	ctx := context.Background()

	database, cleanup, err := store_test.ConnectAndOptionallyMigrate(true, logFactory)
	require.NoError(t, err)
	defer cleanup()

	runner := migrations.NewServerGolangMigrateRunner(logFactory)
	for _, step := range []migrationStep{{name: "UpAgainIsNoOp", run: up}, {name: "Down", run: down}, {name: "Up", run: up}} {
		require.NoError(t, step.run(ctx, runner, database.Driver, database.ConnectionString), step.name)
	}

	version, dirty, err := runner.Version(ctx, database.Driver, database.ConnectionString)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, migrations.SaltCIServerMigrations.LatestVersion(), version)
}

func TestNewDatabaseChecksSchemaVersion(t *testing.T) {
	logFactory := testLogFactory(t)
	ctx := context.Background()

	connectionString := store.DatabaseConnectionString("file:schema_check_test?mode=memory&cache=shared&_foreign_keys=1")
	runner := migrations.NewServerGolangMigrateRunner(logFactory)
	config := store.DatabaseConfig{
		ConnectionString:   connectionString,
		Driver:             store.Sqlite,
		MaxIdleConnections: store.DefaultDatabaseMaxIdleConnections,
		MaxOpenConnections: store.DefaultDatabaseMaxOpenConnections,
	}

	// Holding a connection keeps the shared in-memory database alive between opens
	_, closeKeepAlive, err := store.NewDatabase(ctx, config, nil)
	require.NoError(t, err)
	defer closeKeepAlive()

	require.NoError(t, runner.Goto(ctx, store.Sqlite, connectionString, 2))

	_, _, err = store.NewDatabase(ctx, config, runner)
	require.True(t, gerror.IsSchemaOutOfDate(err))

	config.AutoMigrate = true
	_, closeMigrated, err := store.NewDatabase(ctx, config, runner)
	require.NoError(t, err)
	defer closeMigrated()

	config.AutoMigrate = false
	_, closeChecked, err := store.NewDatabase(ctx, config, runner)
	require.NoError(t, err)
	closeChecked()
}
