package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionToString(t *testing.T) {
	defer func(version, commit string) { VERSION, GITCOMMIT = version, commit }(VERSION, GITCOMMIT)

	VERSION, GITCOMMIT = "", ""
	require.Equal(t, "dev", VersionToString())
	VERSION = "1.4.0"
	require.Equal(t, "1.4.0", VersionToString())
	GITCOMMIT = "3f9c2a1b7d04"
	require.Equal(t, "1.4.0 - 3f9c2a1b7d04", VersionToString())
}
