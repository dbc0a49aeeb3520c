//go:build !windows
// +build !windows

package app

const (
	defaultConfigDir              = "/etc/salt-ci"
	defaultSQLiteConnectionString = "file:/var/lib/salt-ci/db/sqlite.db?cache=shared&_foreign_keys=1"
)
