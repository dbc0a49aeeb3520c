package migrate

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/cmd/saltci-tools/cli"
	"github.com/vmware-archive/salt-ci/server/cmd/saltci-tools/commands"
	"github.com/vmware-archive/salt-ci/server/store"
	"github.com/vmware-archive/salt-ci/server/store/migrations"
)

const defaultSQLiteConnectionString = "file:/var/lib/salt-ci/db/sqlite.db?cache=shared&_foreign_keys=1"

var errInvalidVersion = errors.New("error: version must be a positive number")

func init() {
	migrateRootCmd.PersistentFlags().StringVar(
		&migrateCmdConfig.databaseDriver,
		"driver",
		string(store.Sqlite),
		"The Database Driver to use for migration (i.e sqlite3|postgres)")
	migrateRootCmd.PersistentFlags().StringVar(
		&migrateCmdConfig.databaseConnectionString,
		"connection",
		defaultSQLiteConnectionString,
		"The connection string for the database to use for migration")
	migrateRootCmd.PersistentFlags().BoolVarP(
		&migrateCmdConfig.verbose,
		"verbose",
		"v",
		false,
		"Enable verbose log output")
	migrateRootCmd.PersistentFlags().BoolVarP(
		&migrateCmdConfig.skipConfirmation,
		"skip-confirmation",
		"",
		false,
		"Skip interactive confirmation and automatically answer Yes to confirmation questions")

	commands.RootCmd.AddCommand(migrateRootCmd)
	migrateRootCmd.AddCommand(migrateUpCmd)
	migrateRootCmd.AddCommand(migrateDownCmd)
	migrateRootCmd.AddCommand(migrateGotoCmd)
	migrateRootCmd.AddCommand(migrateForceCmd)
	migrateRootCmd.AddCommand(migrateVersionCmd)
}

var migrateCmdConfig = struct {
	databaseDriver           string
	databaseConnectionString string
	verbose                  bool
	skipConfirmation         bool
	migrationRunner          store.MigrationRunner
}{}

func driver() store.DBDriver {
	return store.DBDriver(migrateCmdConfig.databaseDriver)
}

func connectionString() store.DatabaseConnectionString {
	return store.DatabaseConnectionString(migrateCmdConfig.databaseConnectionString)
}

func parseVersion(arg string) (uint, error) {
	version, err := strconv.Atoi(arg)
	if err != nil || version <= 0 {
		return 0, errInvalidVersion
	}
	return uint(version), nil
}

var migrateRootCmd = &cobra.Command{
	Use:   "migrate up|down|goto V|force V|version",
	Short: "Migrates the database schema, or reports its version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levels := logger.LogLevelConfig("")
		if migrateCmdConfig.verbose {
			levels = "*=debug"
		}
		logRegistry, err := logger.NewLogRegistry(levels)
		if err != nil {
			return err
		}
		logFactory := logger.MakeLogrusLogFactoryStdOutPlain(logRegistry)
		migrateCmdConfig.migrationRunner = migrations.NewServerGolangMigrateRunner(logFactory)
		return nil
	},
}

var migrateUpCmd = &cobra.Command{
	Use:           "up",
	Short:         "Migrates the database up to the latest version",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := migrateCmdConfig.migrationRunner.Up(context.Background(), driver(), connectionString())
		if err != nil {
			return fmt.Errorf("error running 'up' migration: %w", err)
		}
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:           "down",
	Short:         "Migrates the database down to being empty",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cli.AskForConfirmation("Running a Down migration will remove ALL accounts, repos and privileges from this database. Are you sure?", migrateCmdConfig.skipConfirmation) {
			cli.Stdout.Printf("Down migration cancelled.")
			return nil
		}
		err := migrateCmdConfig.migrationRunner.Down(context.Background(), driver(), connectionString())
		if err != nil {
			return fmt.Errorf("error running 'down' migration: %w", err)
		}
		return nil
	},
}

var migrateGotoCmd = &cobra.Command{
	Use:           "goto V",
	Short:         "Migrates the database up or down as required to be at specific version V",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		if !cli.AskForConfirmation("Running a Goto migration will sometimes REMOVE data from this database. Are you sure?", migrateCmdConfig.skipConfirmation) {
			cli.Stdout.Printf("Goto migration cancelled.")
			return nil
		}
		err = migrateCmdConfig.migrationRunner.Goto(context.Background(), driver(), connectionString(), version)
		if err != nil {
			return fmt.Errorf("error running 'goto' migration: %w", err)
		}
		return nil
	},
}

var migrateForceCmd = &cobra.Command{
	Use:           "force V",
	Short:         "Marks the database as being clean and in version V, but don't run migrations",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		if !cli.AskForConfirmation("Running a Force migration should only be performed after the database has been manually checked and fixed. Are you sure?", migrateCmdConfig.skipConfirmation) {
			cli.Stdout.Printf("Force migration cancelled.")
			return nil
		}
		err = migrateCmdConfig.migrationRunner.Force(context.Background(), driver(), connectionString(), version)
		if err != nil {
			return fmt.Errorf("error running 'force' operation: %w", err)
		}
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:           "version",
	Short:         "Prints the schema version the database is at, and the latest version available",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		version, dirty, err := migrateCmdConfig.migrationRunner.Version(context.Background(), driver(), connectionString())
		if err != nil {
			return fmt.Errorf("error reading schema version: %w", err)
		}
		state := "clean"
		if dirty {
			state = "dirty"
		}
		cli.Stdout.Printf("Schema version %d (%s), latest available %d", version, state, migrateCmdConfig.migrationRunner.LatestVersion())
		return nil
	},
}
