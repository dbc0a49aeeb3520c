package version

import "fmt"

// VERSION is the major.minor.patch version the binary was built from, injected with -ldflags.
var VERSION string

// GITCOMMIT is the short git hash the binary was built from, injected with -ldflags.
var GITCOMMIT string

// VersionToString returns "VERSION - GITCOMMIT", or "dev" for a build with nothing injected.
func VersionToString() string {
	switch {
	case VERSION == "" && GITCOMMIT == "":
		return "dev"
	case GITCOMMIT == "":
		return VERSION
	default:
		return fmt.Sprintf("%s - %s", VERSION, GITCOMMIT)
	}
}
