//go:build windows
// +build windows

package app

const (
	defaultConfigDir              = "C:\\ProgramData\\salt-ci"
	defaultSQLiteConnectionString = "file:C:\\ProgramData\\salt-ci\\db\\sqlite.db?cache=shared&_foreign_keys=1"
)
