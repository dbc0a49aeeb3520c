package commands

import (
	"github.com/spf13/cobra"

	"github.com/vmware-archive/salt-ci/common/version"
	"github.com/vmware-archive/salt-ci/server/cmd/saltci-tools/cli"
)

// Execute runs the root command and exits the process with its result.
func Execute() {
	cli.Exit(RootCmd.Execute())
}

var RootCmd = &cobra.Command{
	Use:     "saltci-tools command",
	Short:   "Salt CI administration tools",
	Version: version.VersionToString(),
}
