package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterOSArgs(t *testing.T) {
	var allowed = []string{
		"serve_port",
		"github_client_id",
		"github_redirect_url",
		"database_driver",
		"dev_session_insecure_cookies",
	}

	var in = []string{
		"/usr/bin/saltci-server",
		"--serve_port",
		"5123",
		"--github_client_id",
		"Iv1.53f6349a14a8c00d",
		"--github_redirect_url=https://ci.example.com/api/v1/authentication/github/callback",
		"--github_client_secret",
		"secret",
		"--database_driver",
		"postgres",
		"--database_connection_string=postgres://saltci:hunter2@db/saltci",
		"--session_authentication_key",
		"secret",
		"--dev-session-insecure-cookies",
		"-session_encryption_key",
		"secret"}

	var out = []string{
		"/usr/bin/saltci-server",
		"--serve_port",
		"5123",
		"--github_client_id",
		"Iv1.53f6349a14a8c00d",
		"--github_redirect_url=https://ci.example.com/api/v1/authentication/github/callback",
		"--github_client_secret",
		"******",
		"--database_driver",
		"postgres",
		"--database_connection_string=***********************************",
		"--session_authentication_key",
		"******",
		"--dev-session-insecure-cookies",
		"-session_encryption_key",
		"******"}

	filtered := FilterOSArgs(in, allowed)
	require.Equal(t, out, filtered)
}
